package audit

import (
	"errors"
	"time"

	"shopadmin.app/internal/auth"
)

var (
	ErrNotFound      = errors.New("audit: entry not found")
	ErrNotModifiable = errors.New("audit: entry cannot be modified")
	ErrInvalidInput  = errors.New("audit: invalid input")
)

// Action tags an activity log entry.
type Action string

const (
	ActionLogin             Action = "LOGIN"
	ActionRegisterAdmin     Action = "REGISTER_ADMIN"
	ActionUpdateAdmin       Action = "UPDATE_ADMIN"
	ActionDeleteAdmin       Action = "DELETE_ADMIN"
	ActionRoleChange        Action = "ROLE_CHANGE"
	ActionUpdateProfile     Action = "UPDATE_PROFILE"
	ActionCreateProduct     Action = "CREATE_PRODUCT"
	ActionUpdateProduct     Action = "UPDATE_PRODUCT"
	ActionDeleteProduct     Action = "DELETE_PRODUCT"
	ActionUpdateOrderStatus Action = "UPDATE_ORDER_STATUS"
	ActionArchiveLog        Action = "ARCHIVE_LOG"
)

// Sensitive reports whether entries for the action are created immutable.
// Only immutable entries may later be archived.
func (a Action) Sensitive() bool {
	switch a {
	case ActionDeleteAdmin, ActionRoleChange, ActionRegisterAdmin, ActionArchiveLog:
		return true
	}
	return false
}

// Entry is one persisted activity log record. ActorName is filled on read
// from the account directory and is never stored.
type Entry struct {
	ID        string         `json:"id"`
	ActorID   string         `json:"actor_id"`
	ActorName string         `json:"actor_name,omitempty"`
	Role      auth.Role      `json:"role"`
	Action    Action         `json:"action"`
	TargetID  string         `json:"target_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Archived  bool           `json:"archived"`
	Immutable bool           `json:"immutable"`
}

// Event is what callers hand to Record; the recorder stamps the rest.
type Event struct {
	ActorID   string
	Role      auth.Role
	Action    Action
	TargetID  string
	Metadata  map[string]any
	IPAddress string
}

// Filter narrows List results. Zero value matches everything.
type Filter struct {
	Action Action
}

// Page is one page of entries, newest first.
type Page struct {
	Entries    []Entry `json:"logs"`
	Page       int     `json:"page"`
	TotalPages int     `json:"pages"`
	Total      int     `json:"total"`
}
