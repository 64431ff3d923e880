package cashregister

import (
	"context"

	"github.com/google/uuid"
)

// RegisterRepository persists cash register sessions
type RegisterRepository interface {
	// Create fails with shared.ErrRegisterAlreadyOpen when the user already
	// has an open register in the warehouse
	Create(ctx context.Context, register *Register) error
	FindByID(ctx context.Context, id uuid.UUID) (*Register, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Register, error)
	// FindOpen returns shared.ErrNotFound when no session is open
	FindOpen(ctx context.Context, userID, warehouseID uuid.UUID) (*Register, error)
	SaveWithVersion(ctx context.Context, register *Register) error
	CreateOutflow(ctx context.Context, outflow *Outflow) error
	FindOutflows(ctx context.Context, registerID uuid.UUID) ([]Outflow, error)
}
