package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/pkg/enums"
)

// VendorPayout is the settlement obligation owed to one vendor for one order.
// (order_id, store_id) is unique.
type VendorPayout struct {
	ID                  uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID            uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null"`
	StoreID             uuid.UUID          `gorm:"column:store_id;type:uuid;not null"`
	OrderID             uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	Amount              int64              `gorm:"column:amount;not null"`
	PlatformFee         int64              `gorm:"column:platform_fee;not null"`
	TotalAmount         int64              `gorm:"column:total_amount;not null"`
	Status              enums.PayoutStatus `gorm:"column:status;not null;default:'PENDING'"`
	SubaccountCode      string             `gorm:"column:subaccount_code;not null"`
	Metadata            PayoutMetadata     `gorm:"column:metadata;type:jsonb;serializer:json"`
	SettlementReference *string            `gorm:"column:settlement_reference"`
	CompletedAt         *time.Time         `gorm:"column:completed_at"`
	CreatedAt           time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// PayoutMetadata is the itemized breakdown stored with each payout.
type PayoutMetadata struct {
	PaymentReference string           `json:"payment_reference,omitempty"`
	FeeRate          string           `json:"fee_rate"`
	Items            []PayoutLineItem `json:"items"`
}

// PayoutLineItem snapshots one order item attributed to the payout.
type PayoutLineItem struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Quantity    int       `json:"quantity"`
	Price       int64     `json:"price"`
	Total       int64     `json:"total"`
}
