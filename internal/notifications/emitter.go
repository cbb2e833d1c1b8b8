package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockwatch-backend/pkg/errors"
)

// Alert is an unsaved notification.
type Alert struct {
	Type      enums.NotificationType
	Title     string
	Message   string
	ProductID *uuid.UUID
	OrderID   *uuid.UUID
}

// Ref returns the entity the alert targets.
func (a Alert) Ref() EntityRef {
	return EntityRef{ProductID: a.ProductID, OrderID: a.OrderID}
}

// Validate checks the type and its entity pairing.
func (a Alert) Validate() error {
	if !a.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type").
			WithDetails(map[string]any{"type": a.Type})
	}
	if strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.Message) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification title and message are required")
	}

	var ok bool
	switch a.Type {
	case enums.NotificationTypeSystem:
		ok = a.ProductID == nil && a.OrderID == nil
	case enums.NotificationTypeLowStock:
		ok = a.ProductID != nil && a.OrderID == nil
	case enums.NotificationTypeOverdueOrder:
		ok = a.OrderID != nil && a.ProductID == nil
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification entity does not match its type").
			WithDetails(map[string]any{"type": a.Type, "ref": a.Ref().String()})
	}
	return nil
}

// Emitter persists alerts as unread notifications.
type Emitter struct {
	repo Repository
	now  func() time.Time
}

// NewEmitter builds an Emitter. A nil clock uses the wall clock.
func NewEmitter(repo Repository, now func() time.Time) *Emitter {
	if now == nil {
		now = time.Now
	}
	return &Emitter{repo: repo, now: now}
}

// Emit validates alert and inserts it as a single unread notification stamped now.
func (e *Emitter) Emit(ctx context.Context, alert Alert) (*models.Notification, error) {
	if err := alert.Validate(); err != nil {
		return nil, err
	}

	notification := &models.Notification{
		ID:        uuid.New(),
		Type:      alert.Type,
		Title:     alert.Title,
		Message:   alert.Message,
		IsRead:    false,
		ProductID: alert.ProductID,
		OrderID:   alert.OrderID,
		CreatedAt: e.now().UTC(),
	}
	if err := e.repo.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist notification")
	}
	return notification, nil
}
