package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/splitpay-backend/internal/orderevents"
	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
	"github.com/angelmondragon/splitpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
)

var (
	// ErrOrderNotFound and ErrOrderNotPaid are matched with errors.Is; details may differ.
	ErrOrderNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	ErrOrderNotPaid  = pkgerrors.New(pkgerrors.CodeStateConflict, "order not paid")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type storeReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Store, error)
}

type eventAppender interface {
	Append(ctx context.Context, tx *gorm.DB, input orderevents.AppendInput) (*models.OrderEvent, error)
}

// Service exposes the order reads settlement depends on.
type Service interface {
	Decompose(ctx context.Context, orderID uuid.UUID) ([]VendorGroup, error)
	DecomposeOrder(ctx context.Context, orderID uuid.UUID) (*Decomposition, error)
	ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*PaymentConfirmation, error)
}

// Decomposition pairs a paid order with its vendor groups.
type Decomposition struct {
	Order  *models.Order
	Groups []VendorGroup
}

// ConfirmPaymentInput identifies the order a gateway charge settled. When OrderID
// is empty the order is resolved by Reference.
type ConfirmPaymentInput struct {
	OrderID   uuid.UUID
	Reference string
}

// PaymentConfirmation reports the paid order and whether it had already been paid.
type PaymentConfirmation struct {
	Order       *models.Order
	AlreadyPaid bool
}

type service struct {
	repo   Repository
	stores storeReader
	tx     txRunner
	events eventAppender
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, stores storeReader, tx txRunner, events eventAppender) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stores == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("order events service required")
	}
	return &service{
		repo:   repo,
		stores: stores,
		tx:     tx,
		events: events,
	}, nil
}

func (s *service) Decompose(ctx context.Context, orderID uuid.UUID) ([]VendorGroup, error) {
	decomposition, err := s.DecomposeOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return decomposition.Groups, nil
}

// DecomposeOrder loads a paid order and partitions its items per vendor store.
func (s *service) DecomposeOrder(ctx context.Context, orderID uuid.UUID) (*Decomposition, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrOrderNotFound.WithDetails(map[string]any{"order_id": orderID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, ErrOrderNotPaid.WithDetails(map[string]any{"payment_status": order.PaymentStatus})
	}

	stores, err := s.stores.FindByIDs(ctx, productStoreIDs(order.Items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stores")
	}

	return &Decomposition{
		Order:  order,
		Groups: GroupItemsByVendor(order.Items, stores),
	}, nil
}

// ConfirmPayment marks the order PAID and appends PAYMENT_CONFIRMED in one transaction.
// Confirming an already paid order is a no-op.
func (s *service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*PaymentConfirmation, error) {
	reference := strings.TrimSpace(input.Reference)
	if input.OrderID == uuid.Nil && reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id or payment reference is required")
	}

	var result PaymentConfirmation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lookup(ctx, repo, input.OrderID, reference)
		if err != nil {
			return err
		}
		result.Order = order
		if order.PaymentStatus == enums.PaymentStatusPaid {
			result.AlreadyPaid = true
			return nil
		}
		if reference == "" && order.PaymentReference != nil {
			reference = *order.PaymentReference
		}

		updated, err := repo.MarkPaid(ctx, order.ID, reference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !updated {
			result.AlreadyPaid = true
			return nil
		}
		order.PaymentStatus = enums.PaymentStatusPaid
		if reference != "" {
			order.PaymentReference = &reference
		}

		_, err = s.events.Append(ctx, tx, orderevents.AppendInput{
			OrderID:     order.ID,
			Type:        enums.OrderEventPaymentConfirmed,
			Description: "payment confirmed by gateway",
			Metadata:    models.OrderEventMetadata{PaymentReference: reference},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) lookup(ctx context.Context, repo Repository, orderID uuid.UUID, reference string) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	if orderID != uuid.Nil {
		order, err = repo.FindByID(ctx, orderID)
	} else {
		order, err = repo.FindByPaymentReference(ctx, reference)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func productStoreIDs(items []models.OrderItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		if _, ok := seen[item.Product.StoreID]; ok {
			continue
		}
		seen[item.Product.StoreID] = struct{}{}
		ids = append(ids, item.Product.StoreID)
	}
	return ids
}
