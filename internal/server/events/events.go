// Package events publishes user lifecycle notifications to a message broker.
package events

import (
	"context"
	"time"

	"github.com/dmitrijs2005/userhub/internal/server/models"
)

// Publisher delivers a JSON-encodable payload under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
	Close() error
}

// UserEvent is the payload of user.created / user.updated / user.deleted.
// Deletions carry only the id.
type UserEvent struct {
	Event      string           `json:"event"`
	UserID     uint             `json:"user_id"`
	User       *models.UserView `json:"user,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewUserEvent stamps an event for u. Pass a nil u for deletions.
func NewUserEvent(key string, id uint, u *models.User) UserEvent {
	e := UserEvent{Event: key, UserID: id, OccurredAt: time.Now().UTC()}
	if u != nil {
		v := u.Normalize()
		e.User = &v
	}
	return e
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                              { return nil }
