package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateVendorPayout OutboxAggregateType = "vendor_payout"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateVendorPayout,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return oneOf(a, validAggregateTypes)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(value, validAggregateTypes, "aggregate type")
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventVendorPayoutsProcessed OutboxEventType = "vendor_payouts.processed"
	EventVendorPayoutCompleted  OutboxEventType = "vendor_payout.completed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventVendorPayoutsProcessed,
	EventVendorPayoutCompleted,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	return oneOf(e, validOutboxEventTypes)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(value, validOutboxEventTypes, "outbox event type")
}
