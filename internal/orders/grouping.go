package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
)

// GroupItem is one order item attributed to a vendor group.
type GroupItem struct {
	OrderItemID uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	Price       int64
	Total       int64
}

// VendorGroup is the slice of an order owed to one vendor's store.
// VendorID is uuid.Nil when the item's store or its owner could not be resolved.
type VendorGroup struct {
	VendorID         uuid.UUID
	StoreID          uuid.UUID
	StoreName        string
	SubaccountCode   *string
	SubaccountActive bool
	Items            []GroupItem
	Subtotal         int64
}

// HasVendor reports whether the group resolved to an owning vendor.
func (g VendorGroup) HasVendor() bool {
	return g.VendorID != uuid.Nil
}

// ActiveSubaccountCode returns the linked code when payouts can be routed to it.
func (g VendorGroup) ActiveSubaccountCode() (string, bool) {
	if !g.SubaccountActive || g.SubaccountCode == nil || *g.SubaccountCode == "" {
		return "", false
	}
	return *g.SubaccountCode, true
}

type groupKey struct {
	vendorID uuid.UUID
	storeID  uuid.UUID
}

// GroupItemsByVendor partitions items by owning (vendor, store). Groups keep the
// order in which their first item appears.
func GroupItemsByVendor(items []models.OrderItem, stores map[uuid.UUID]models.Store) []VendorGroup {
	groups := make([]VendorGroup, 0)
	index := make(map[groupKey]int)

	for _, item := range items {
		group := resolveGroup(item, stores)
		key := groupKey{vendorID: group.VendorID, storeID: group.StoreID}
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, group)
		}

		line := GroupItem{
			OrderItemID: item.ID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Total:       item.Total,
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
		}
		groups[pos].Items = append(groups[pos].Items, line)
		groups[pos].Subtotal += line.Total
	}
	return groups
}

func resolveGroup(item models.OrderItem, stores map[uuid.UUID]models.Store) VendorGroup {
	if item.Product == nil {
		return VendorGroup{}
	}
	store, ok := stores[item.Product.StoreID]
	if !ok {
		return VendorGroup{}
	}
	group := VendorGroup{
		StoreID:          store.ID,
		StoreName:        store.Name,
		SubaccountCode:   store.PaystackAccountCode,
		SubaccountActive: store.PaystackAccountActive,
	}
	if store.VendorID != nil {
		group.VendorID = *store.VendorID
	}
	return group
}
