package enums

// OrderEventType identifies an entry in the order audit trail.
type OrderEventType string

const (
	OrderEventPaymentConfirmed       OrderEventType = "PAYMENT_CONFIRMED"
	OrderEventVendorPayoutsProcessed OrderEventType = "VENDOR_PAYOUTS_PROCESSED"
	OrderEventPayoutCompleted        OrderEventType = "PAYOUT_COMPLETED"
)

var validOrderEventTypes = []OrderEventType{
	OrderEventPaymentConfirmed,
	OrderEventVendorPayoutsProcessed,
	OrderEventPayoutCompleted,
}

// String implements fmt.Stringer.
func (t OrderEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known OrderEventType.
func (t OrderEventType) IsValid() bool {
	return oneOf(t, validOrderEventTypes)
}

// ParseOrderEventType converts raw input into an OrderEventType.
func ParseOrderEventType(value string) (OrderEventType, error) {
	return parse(value, validOrderEventTypes, "order event type")
}
