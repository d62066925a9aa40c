package postgresadapter

import (
	"context"

	"github.com/google/uuid"
)

// UUIDGenerator issues UUIDv4 identifiers for change events.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
