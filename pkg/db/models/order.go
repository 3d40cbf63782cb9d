package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/pkg/enums"
)

// Order is a single checkout transaction. Settlement reads it and never edits line items.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;not null;default:'UNPAID'"`
	Status           enums.OrderStatus   `gorm:"column:status;not null;default:'PENDING'"`
	Total            int64               `gorm:"column:total;not null"`
	PaymentReference *string             `gorm:"column:payment_reference"`
	Items            []OrderItem         `gorm:"foreignKey:OrderID;references:ID"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
