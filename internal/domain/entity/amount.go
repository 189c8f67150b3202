package entity

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

// Суммы хранятся в NUMERIC(14, 2), вес в NUMERIC(14, 3).
const (
	MoneyScale  = 2
	WeightScale = 3
)

var (
	maxMoney  = decimal.RequireFromString("999999999999.99")
	maxWeight = decimal.RequireFromString("99999999999.999")
)

// ValidateBidAmount пропускает неотрицательную сумму, которая без округления
// помещается в колонку ставки.
func ValidateBidAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperror.ErrNegativeAmount
	}
	if !fitsScale(amount, MoneyScale) {
		return apperror.ErrAmountPrecision
	}
	if amount.GreaterThan(maxMoney) {
		return apperror.ErrAmountTooLarge
	}
	return nil
}

func validateListingNumbers(weight, value decimal.Decimal) error {
	if weight.IsNegative() || value.IsNegative() {
		return apperror.New(apperror.ErrCodeValidation, "weight and value cannot be negative")
	}
	if !fitsScale(weight, WeightScale) || weight.GreaterThan(maxWeight) {
		return apperror.New(apperror.ErrCodeValidation, "weight must have at most 3 decimal places and fit 99999999999.999")
	}
	if !fitsScale(value, MoneyScale) || value.GreaterThan(maxMoney) {
		return apperror.New(apperror.ErrCodeValidation, "value must have at most 2 decimal places and fit 999999999999.99")
	}
	return nil
}

// fitsScale: 100.0000 подходит под scale 2, 100.004 нет.
func fitsScale(d decimal.Decimal, scale int32) bool {
	return d.Equal(d.Truncate(scale))
}
