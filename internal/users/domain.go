package users

import (
	"errors"
	"time"

	"github.com/reduc/agenda/internal/shared"
)

// ErrSelfDeactivation is returned when an administrator targets their own account.
var ErrSelfDeactivation = errors.New("users: cannot deactivate own account")

// User represents a user account for management.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	IsActive    bool      `json:"active"`
	LastLoginAt time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListFilter narrows a user listing.
type ListFilter struct {
	Query   string
	Active  *bool
	Page    int
	PerPage int
}

// Page is one page of users.
type Page struct {
	Users  []User            `json:"users"`
	Paging shared.Pagination `json:"paging"`
}
