package enums

import "fmt"

// PaymentType maps to the payment_type enum in Postgres.
type PaymentType string

const (
	// PaymentTypeInitial is the purchase payment recorded at generation.
	PaymentTypeInitial PaymentType = "initial"
	// PaymentTypeAnnual is the yearly subscription renewal fee.
	PaymentTypeAnnual PaymentType = "annual"
	// PaymentTypeUser buys additional seats and raises the user limit.
	PaymentTypeUser PaymentType = "user"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeInitial,
	PaymentTypeAnnual,
	PaymentTypeUser,
}

// String implements fmt.Stringer.
func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value matches the canonical payment_type enum.
func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentType converts raw input into PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
