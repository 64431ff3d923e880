package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUnitRepository implements catalog.UnitRepository using GORM
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// FindByID finds a unit by its ID
func (r *GormUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Unit, error) {
	var unit catalog.Unit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &unit, nil
}

// FindAll returns every unit ordered by code
func (r *GormUnitRepository) FindAll(ctx context.Context) ([]catalog.Unit, error) {
	var units []catalog.Unit
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// Save creates or updates a unit
func (r *GormUnitRepository) Save(ctx context.Context, unit *catalog.Unit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

var _ catalog.UnitRepository = (*GormUnitRepository)(nil)
