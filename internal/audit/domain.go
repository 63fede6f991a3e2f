package audit

import "time"

// Action names an authentication trace type.
type Action string

// Trace types written by the auth subsystem.
const (
	ActionLogin              Action = "LOGIN_LDAP"
	ActionLoginFailed        Action = "LOGIN_FAILED_LDAP"
	ActionLogout             Action = "LOGOUT_LDAP"
	ActionTokenExpired       Action = "TOKEN_EXPIRED"
	ActionUnauthorizedAccess Action = "UNAUTHORIZED_ACCESS"
)

const (
	// EntityAuth is the entity recorded for every auth trace.
	EntityAuth = "AUTH"
	// RoleSystem is the role recorded when the actor is the system itself.
	RoleSystem = "SISTEMA"
	// UnknownEntityID stands in when no user could be resolved.
	UnknownEntityID = "UNKNOWN"
)

// Entry is one append-only audit record.
type Entry struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actorId,omitempty"`
	ActorEmail  string    `json:"actorEmail,omitempty"`
	Role        string    `json:"role"`
	Action      Action    `json:"action"`
	Entity      string    `json:"entity"`
	EntityID    string    `json:"entityId"`
	Description string    `json:"description"`
	ClientIP    string    `json:"clientIp,omitempty"`
	At          time.Time `json:"at"`
}

// TimelineFilters holds the basic filters for the audit timeline.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Action   string
	Page     int
	PageSize int
}

// PagingInfo stores simple pagination metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// Result wraps a timeline page.
type Result struct {
	Rows   []Entry    `json:"rows"`
	Paging PagingInfo `json:"paging"`
}
