package catalog

import (
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitOperator is the arithmetic applied to reach the base unit
type UnitOperator string

const (
	UnitOperatorMultiply UnitOperator = "*"
	UnitOperatorDivide   UnitOperator = "/"
)

// IsValid checks if the operator is valid
func (o UnitOperator) IsValid() bool {
	return o == UnitOperatorMultiply || o == UnitOperatorDivide
}

// Unit is a measurement unit. A derived unit points at its base unit:
// one derived unit equals OperationValue base units for "*", and
// 1/OperationValue base units for "/".
type Unit struct {
	shared.BaseAggregateRoot
	Code           string          `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name           string          `gorm:"type:varchar(100);not null"`
	BaseUnitID     *uuid.UUID      `gorm:"type:uuid;index"`
	Operator       UnitOperator    `gorm:"type:varchar(1)"`
	OperationValue decimal.Decimal `gorm:"type:decimal(20,6);not null;default:1"`
	IsActive       bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Unit) TableName() string {
	return "units"
}

// NewBaseUnit creates a root unit
func NewBaseUnit(code, name string) (*Unit, error) {
	if err := validateUnitCode(code, name); err != nil {
		return nil, err
	}
	return &Unit{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToLower(code),
		Name:              name,
		Operator:          UnitOperatorMultiply,
		OperationValue:    decimal.NewFromInt(1),
		IsActive:          true,
	}, nil
}

// NewDerivedUnit creates a unit expressed in terms of another unit
func NewDerivedUnit(code, name string, baseUnitID uuid.UUID, operator UnitOperator, value decimal.Decimal) (*Unit, error) {
	if err := validateUnitCode(code, name); err != nil {
		return nil, err
	}
	if baseUnitID == uuid.Nil {
		return nil, shared.NewValidationError("Base unit is required for a derived unit")
	}
	if !operator.IsValid() {
		return nil, shared.NewValidationError("Unit operator must be '*' or '/', got %q", operator)
	}
	if !value.IsPositive() {
		return nil, shared.NewValidationError("Unit operation value must be positive")
	}
	return &Unit{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToLower(code),
		Name:              name,
		BaseUnitID:        &baseUnitID,
		Operator:          operator,
		OperationValue:    value,
		IsActive:          true,
	}, nil
}

// IsBase reports whether the unit is a root of the conversion graph
func (u *Unit) IsBase() bool {
	return u.BaseUnitID == nil
}

// Rebase points the unit at a different base unit
func (u *Unit) Rebase(baseUnitID uuid.UUID, operator UnitOperator, value decimal.Decimal) error {
	if !operator.IsValid() {
		return shared.NewValidationError("Unit operator must be '*' or '/', got %q", operator)
	}
	if !value.IsPositive() {
		return shared.NewValidationError("Unit operation value must be positive")
	}
	u.BaseUnitID = &baseUnitID
	u.Operator = operator
	u.OperationValue = value
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// step returns the ratio that converts one of this unit into its base unit
func (u *Unit) step() ratio {
	if u.IsBase() {
		return unitRatio()
	}
	if u.Operator == UnitOperatorDivide {
		return ratio{num: decimal.NewFromInt(1), den: u.OperationValue}
	}
	return ratio{num: u.OperationValue, den: decimal.NewFromInt(1)}
}

func validateUnitCode(code, name string) error {
	if strings.TrimSpace(code) == "" {
		return shared.NewValidationError("Unit code cannot be empty")
	}
	if len(code) > 20 {
		return shared.NewValidationError("Unit code cannot exceed 20 characters")
	}
	if strings.TrimSpace(name) == "" {
		return shared.NewValidationError("Unit name cannot be empty")
	}
	return nil
}
