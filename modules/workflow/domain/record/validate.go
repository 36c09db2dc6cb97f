package record

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	TransactionTypeExpense = "Expense"
	TransactionTypeIncome  = "Income"

	FieldTransactionType = "transactionType"
	FieldAmount          = "amount"
	FieldResolutionNote  = "resolution_note"
)

// ValidateFields checks the entity invariants of a candidate snapshot.
// Only keys present in s are checked so partial proposals validate too.
func ValidateFields(e EntityType, s Snapshot) error {
	if e != EntityPayment {
		return nil
	}
	if v, ok := s[FieldTransactionType]; ok {
		tt, _ := v.(string)
		if tt != TransactionTypeExpense && tt != TransactionTypeIncome {
			return fmt.Errorf("%w: transactionType must be %s or %s", ErrInvalidPayload, TransactionTypeExpense, TransactionTypeIncome)
		}
	}
	if v, ok := s[FieldAmount]; ok {
		amount, err := ParseAmount(v)
		if err != nil {
			return fmt.Errorf("%w: amount: %w", ErrInvalidPayload, err)
		}
		if !amount.IsPositive() {
			return fmt.Errorf("%w: amount must be positive", ErrInvalidPayload)
		}
	}
	return nil
}

// ParseAmount reads a monetary amount from a snapshot value.
func ParseAmount(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, nil
	case string:
		return decimal.NewFromString(t)
	case fmt.Stringer:
		return decimal.NewFromString(t.String())
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Decimal{}, fmt.Errorf("amount %v is not a finite number", t)
		}
		return decimal.NewFromFloat(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	}
	return decimal.Decimal{}, fmt.Errorf("unsupported amount type %T", v)
}

// TransactionType returns the payment transaction type held in s.
func TransactionType(s Snapshot) string {
	tt, _ := s[FieldTransactionType].(string)
	return tt
}
