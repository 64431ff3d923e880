package catalog

import (
	"context"

	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitService converts quantities between units
type UnitService struct {
	uow       uow.UnitOfWork
	precision int32
}

// NewUnitService creates a new UnitService
func NewUnitService(u uow.UnitOfWork, precision int32) *UnitService {
	return &UnitService{uow: u, precision: precision}
}

// Convert converts quantity from one unit to another
func (s *UnitService) Convert(ctx context.Context, quantity decimal.Decimal, fromUnitID, toUnitID uuid.UUID) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := s.uow.Execute(ctx, func(repos uow.Repositories) error {
		resolver, err := LoadResolver(ctx, repos, s.precision)
		if err != nil {
			return err
		}
		out, err = resolver.Convert(quantity, fromUnitID, toUnitID)
		return err
	})
	return out, err
}

// LoadResolver builds a resolver over every unit visible to the unit of work
func LoadResolver(ctx context.Context, repos uow.Repositories, precision int32) (*catalog.UnitResolver, error) {
	units, err := repos.Units().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.NewUnitResolver(units, precision), nil
}
