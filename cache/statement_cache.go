// Package cache keeps prepared statements keyed by their rendered SQL text.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Preparer prepares statements. *sql.DB and *sql.Conn satisfy it.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Release hands a statement back to the cache. Calling it more than once has
// no effect.
type Release func()

// entry counts the callers holding a statement. An evicted entry is closed
// once the last holder releases it.
type entry struct {
	stmt    *sql.Stmt
	refs    int
	evicted bool
}

// StatementCache is a bounded LRU of prepared statements. Evicted statements
// are closed when no caller holds them any longer.
type StatementCache struct {
	mu    sync.Mutex // guards entry counts; held around every cache mutation
	cache *lru.Cache[string, *entry]
}

func NewStatementCache(size int) (*StatementCache, error) {
	// the callback runs synchronously inside Add and Purge, with mu held
	cache, err := lru.NewWithEvict(size, func(_ string, e *entry) {
		e.evicted = true
		if e.refs == 0 {
			_ = e.stmt.Close()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("statement cache: %w", err)
	}
	return &StatementCache{cache: cache}, nil
}

func (s *StatementCache) acquire(e *entry) (*sql.Stmt, Release) {
	e.refs++
	var once sync.Once
	return e.stmt, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			e.refs--
			if e.refs == 0 && e.evicted {
				_ = e.stmt.Close()
			}
		})
	}
}

// Lookup returns the cached statement for query. The statement stays open
// until release is called, even if it is evicted meanwhile.
func (s *StatementCache) Lookup(query string) (stmt *sql.Stmt, release Release, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache.Get(query)
	if !ok {
		return nil, nil, false
	}
	stmt, release = s.acquire(e)
	return stmt, release, true
}

// Acquire returns the cached statement for query, preparing it with p on a
// miss. The caller must call release once it is done with the statement.
func (s *StatementCache) Acquire(ctx context.Context, p Preparer, query string) (*sql.Stmt, Release, error) {
	if stmt, release, ok := s.Lookup(query); ok {
		return stmt, release, nil
	}

	prepared, err := p.PrepareContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another caller may have prepared the same query meanwhile
	if e, ok := s.cache.Get(query); ok {
		_ = prepared.Close()
		stmt, release := s.acquire(e)
		return stmt, release, nil
	}
	e := &entry{stmt: prepared}
	stmt, release := s.acquire(e)
	s.cache.Add(query, e)
	return stmt, release, nil
}

// Len returns the number of cached statements.
func (s *StatementCache) Len() int { return s.cache.Len() }

// Close drops every cached statement. Statements still held are closed on
// release.
func (s *StatementCache) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Purge()
	return nil
}
