package basket

// PaymentMethod is the payment tag chosen during checkout.
type PaymentMethod string

const (
	PaymentOnline  PaymentMethod = "online"
	PaymentOffline PaymentMethod = "offline"
)

// ParsePaymentMethod maps a raw form value to a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case PaymentOnline, PaymentOffline:
		return PaymentMethod(s), true
	}
	return "", false
}

// Field names a single OrderDraft field.
type Field string

const (
	FieldAddress Field = "address"
	FieldPayment Field = "payment"
	FieldEmail   Field = "email"
	FieldPhone   Field = "phone"
)

// OrderDraft accumulates the checkout form state. It exists only during
// an active checkout session: created empty when checkout starts,
// discarded on success or explicit cancel.
type OrderDraft struct {
	Payment PaymentMethod `json:"payment"`
	Address string        `json:"address"`
	Email   string        `json:"email"`
	Phone   string        `json:"phone"`
}
