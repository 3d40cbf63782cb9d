package orderevents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
	"github.com/angelmondragon/splitpay-backend/pkg/enums"
)

// Service appends and reads the audit trail of an order.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.OrderEvent, error)
	List(ctx context.Context, orderID uuid.UUID) ([]models.OrderEvent, error)
	HasEvent(ctx context.Context, orderID uuid.UUID, eventType enums.OrderEventType) (bool, error)
}

// AppendInput captures the immutable data an audit event requires.
type AppendInput struct {
	OrderID     uuid.UUID
	Type        enums.OrderEventType
	Description string
	Metadata    models.OrderEventMetadata
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires an order event service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order events repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Append records an event. When tx is non-nil the insert joins that transaction.
func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.OrderEvent, error) {
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid order event type %q", input.Type)
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = input.Type.String()
	}

	event := &models.OrderEvent{
		ID:          uuid.New(),
		OrderID:     input.OrderID,
		EventType:   input.Type,
		Description: description,
		Metadata:    input.Metadata,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, fmt.Errorf("append %s event: %w", input.Type, err)
	}
	return event, nil
}

func (s *service) List(ctx context.Context, orderID uuid.UUID) ([]models.OrderEvent, error) {
	return s.repo.ListByOrderID(ctx, orderID)
}

func (s *service) HasEvent(ctx context.Context, orderID uuid.UUID, eventType enums.OrderEventType) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("order id is required")
	}
	return s.repo.Exists(ctx, orderID, eventType)
}
