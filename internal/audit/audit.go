package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action is the closed set of audited operations.
type Action string

const (
	ActionCreate         Action = "CREATE"
	ActionUpdate         Action = "UPDATE"
	ActionDelete         Action = "DELETE"
	ActionLogin          Action = "LOGIN"
	ActionLogout         Action = "LOGOUT"
	ActionView           Action = "VIEW"
	ActionPasswordReset  Action = "PASSWORD_RESET"
	ActionPasswordChange Action = "PASSWORD_CHANGE"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionLogout,
		ActionView, ActionPasswordReset, ActionPasswordChange:
		return true
	}
	return false
}

// EntityType names the collection an audit record refers to.
type EntityType string

const (
	EntityUsers          EntityType = "users"
	EntityProducts       EntityType = "products"
	EntityOrders         EntityType = "orders"
	EntityIgrejas        EntityType = "igrejas"
	EntityStock          EntityType = "stock"
	EntityPasswordResets EntityType = "password_resets"
)

// Valid reports whether e is a known entity type.
func (e EntityType) Valid() bool {
	switch e {
	case EntityUsers, EntityProducts, EntityOrders, EntityIgrejas, EntityStock, EntityPasswordResets:
		return true
	}
	return false
}

// Actor identifies who performed an operation and where the request came from.
type Actor struct {
	UserID    uuid.UUID
	IPAddress string
	UserAgent string
}

// Entry is the input to Recorder.Record.
type Entry struct {
	Actor      Actor
	Action     Action
	EntityType EntityType
	EntityID   string
	OldData    map[string]any
	NewData    map[string]any
}

// Record is a persisted audit row.
type Record struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"userId"`
	UserName   *string        `json:"userName"`
	UserEmail  *string        `json:"userEmail"`
	Action     Action         `json:"action"`
	EntityType EntityType     `json:"entityType"`
	EntityID   *string        `json:"entityId"`
	OldData    map[string]any `json:"oldData"`
	NewData    map[string]any `json:"newData"`
	IPAddress  *string        `json:"ipAddress"`
	UserAgent  *string        `json:"userAgent"`
	// CreatedAt is zero until read back; the database clock assigns it.
	CreatedAt  time.Time      `json:"createdAt"`
}

// Filter narrows Reader.List. Zero values mean "no filter".
type Filter struct {
	UserID     *uuid.UUID
	Action     Action
	EntityType EntityType
	EntityID   string
	Limit      int
	Offset     int
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Normalize applies pagination defaults and bounds.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Store persists and queries audit rows.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	List(ctx context.Context, f Filter) ([]Record, error)
}
