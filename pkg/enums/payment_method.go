package enums

import "fmt"

// PaymentMethod identifies how money moved for a ledger entry or voucher.
type PaymentMethod string

const (
	PaymentMethodYape          PaymentMethod = "yape"
	PaymentMethodPlin          PaymentMethod = "plin"
	PaymentMethodTransferencia PaymentMethod = "transferencia"
	PaymentMethodEfectivo      PaymentMethod = "efectivo"
	// PaymentMethodBalance marks purchases settled from a prepaid balance.
	PaymentMethodBalance PaymentMethod = "balance"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodYape,
	PaymentMethodPlin,
	PaymentMethodTransferencia,
	PaymentMethodEfectivo,
	PaymentMethodBalance,
}

// voucherMethods are the methods a parent can submit a recharge voucher for.
var voucherMethods = []PaymentMethod{
	PaymentMethodYape,
	PaymentMethodPlin,
	PaymentMethodTransferencia,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsVoucherMethod reports whether the method is accepted on recharge requests.
func (p PaymentMethod) IsVoucherMethod() bool {
	for _, candidate := range voucherMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
