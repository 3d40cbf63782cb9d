package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/pkg/enums"
)

// OrderEvent is an append-only audit record attached to an order.
type OrderEvent struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	EventType   enums.OrderEventType `gorm:"column:event_type;not null"`
	Description string               `gorm:"column:description;not null"`
	Metadata    OrderEventMetadata   `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// OrderEventMetadata carries the structured detail of an audit event. Only the
// fields relevant to the event type are populated.
type OrderEventMetadata struct {
	PaymentReference    string              `json:"payment_reference,omitempty"`
	SettlementReference string              `json:"settlement_reference,omitempty"`
	Payouts             []PayoutEventRecord `json:"payouts,omitempty"`
	Succeeded           int                 `json:"succeeded,omitempty"`
	Failed              int                 `json:"failed,omitempty"`
}

// PayoutEventRecord summarizes one vendor group outcome inside an audit event.
type PayoutEventRecord struct {
	PayoutID      *uuid.UUID         `json:"payout_id,omitempty"`
	VendorID      uuid.UUID          `json:"vendor_id"`
	StoreID       uuid.UUID          `json:"store_id"`
	Amount        int64              `json:"amount"`
	PlatformFee   int64              `json:"platform_fee"`
	Status        enums.PayoutStatus `json:"status"`
	FailureReason string             `json:"failure_reason,omitempty"`
}
