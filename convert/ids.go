package convert

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewUUID returns a random (version 4) UUID for a UUID field.
func NewUUID() (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate UUID: %w", err)
	}
	return id, nil
}

// ULIDGenerator produces ULIDs that sort in generation order, including within
// the same millisecond.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ULIDGenerator) Generate() (ulid.ULID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id, nil
}

var defaultULIDs = NewULIDGenerator()

// NewULID returns a ULID from the package generator.
func NewULID() (ulid.ULID, error) { return defaultULIDs.Generate() }
