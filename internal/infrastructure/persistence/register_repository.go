package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/domain/cashregister"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRegisterRepository implements cashregister.RegisterRepository using GORM
type GormRegisterRepository struct {
	db *gorm.DB
}

// NewGormRegisterRepository creates a new GormRegisterRepository
func NewGormRegisterRepository(db *gorm.DB) *GormRegisterRepository {
	return &GormRegisterRepository{db: db}
}

// Create inserts a register. The unique open_key turns a second open
// session of the same user and warehouse into CASH_REGISTER_ALREADY_OPEN.
func (r *GormRegisterRepository) Create(ctx context.Context, register *cashregister.Register) error {
	if err := r.db.WithContext(ctx).Create(register).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrRegisterAlreadyOpen
		}
		return err
	}
	return nil
}

// FindByID finds a register by its ID
func (r *GormRegisterRepository) FindByID(ctx context.Context, id uuid.UUID) (*cashregister.Register, error) {
	var register cashregister.Register
	if err := r.db.WithContext(ctx).First(&register, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &register, nil
}

// FindByIDForUpdate finds and row-locks a register
func (r *GormRegisterRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*cashregister.Register, error) {
	var register cashregister.Register
	if err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		First(&register, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &register, nil
}

// FindOpen finds the open session of a user in a warehouse
func (r *GormRegisterRepository) FindOpen(ctx context.Context, userID, warehouseID uuid.UUID) (*cashregister.Register, error) {
	var register cashregister.Register
	if err := r.db.WithContext(ctx).
		Where("open_key = ?", cashregister.OpenKeyFor(userID, warehouseID)).
		First(&register).Error; err != nil {
		return nil, notFound(err)
	}
	return &register, nil
}

// SaveWithVersion persists a register whose version Close bumped
func (r *GormRegisterRepository) SaveWithVersion(ctx context.Context, register *cashregister.Register) error {
	result := r.db.WithContext(ctx).
		Model(&cashregister.Register{}).
		Where("id = ? AND version = ?", register.ID, register.Version-1).
		Updates(map[string]interface{}{
			"status":          register.Status,
			"open_key":        register.OpenKey,
			"closing_balance": register.ClosingBalance,
			"actual_cash":     register.ActualCash,
			"variance":        register.Variance,
			"note":            register.Note,
			"closed_at":       register.ClosedAt,
			"version":         register.Version,
			"updated_at":      register.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "Cash register was modified by another transaction")
	}
	return nil
}

// CreateOutflow records cash leaving the till
func (r *GormRegisterRepository) CreateOutflow(ctx context.Context, outflow *cashregister.Outflow) error {
	return r.db.WithContext(ctx).Create(outflow).Error
}

// FindOutflows lists the outflows of a register
func (r *GormRegisterRepository) FindOutflows(ctx context.Context, registerID uuid.UUID) ([]cashregister.Outflow, error) {
	var outflows []cashregister.Outflow
	if err := r.db.WithContext(ctx).
		Where("cash_register_id = ?", registerID).
		Order("created_at ASC, id ASC").
		Find(&outflows).Error; err != nil {
		return nil, err
	}
	return outflows, nil
}

var _ cashregister.RegisterRepository = (*GormRegisterRepository)(nil)
