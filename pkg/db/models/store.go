package models

import (
	"time"

	"github.com/google/uuid"
)

// Store is a vendor's catalog namespace and the unit a gateway subaccount is linked to.
type Store struct {
	ID                    uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID              *uuid.UUID `gorm:"column:vendor_id;type:uuid"`
	Name                  string     `gorm:"column:name;not null"`
	PaystackAccountCode   *string    `gorm:"column:paystack_account_code"`
	PaystackAccountActive bool       `gorm:"column:paystack_account_active;not null;default:false"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// HasActiveSubaccount reports whether payouts can be routed to the store.
func (s Store) HasActiveSubaccount() bool {
	return s.PaystackAccountActive && s.PaystackAccountCode != nil && *s.PaystackAccountCode != ""
}
