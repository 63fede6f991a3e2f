package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized marks failures rendered as 401.
	ErrUnauthorized = errors.New("auth: unauthorized")
	// ErrInternal marks failures rendered as 500.
	ErrInternal = errors.New("auth: internal error")
	// ErrUserNotFound is returned when no local user matches.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrUserInactive is returned for deactivated accounts.
	ErrUserInactive = errors.New("auth: user inactive")
)

// User is the local account mirrored from the directory.
type User struct {
	ID          string
	Email       string
	Name        string
	Active      bool
	LastLoginAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Credentials are the transient login inputs.
type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Password string `json:"password" validate:"required,min=1,max=200"`
}

// Profile is the public view of the authenticated user.
type Profile struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// TokenPair carries freshly minted tokens and their expiries.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Profile Profile
	Tokens  TokenPair
}

// LoginState tracks how far a login attempt progressed.
type LoginState string

// Login states in order.
const (
	StateInit          LoginState = "Init"
	StateServiceBound  LoginState = "ServiceBound"
	StateUserFound     LoginState = "UserFound"
	StateUserVerified  LoginState = "UserVerified"
	StateLocalSynced   LoginState = "LocalSynced"
	StateRolesResolved LoginState = "RolesResolved"
	StateTokensIssued  LoginState = "TokensIssued"
	StateDone          LoginState = "Done"
)

// Reason classifies a failed login.
type Reason string

// Login failure reasons.
const (
	ReasonConnection         Reason = "ConnectionError"
	ReasonUserNotFound       Reason = "UserNotFound"
	ReasonInvalidCredentials Reason = "InvalidCredentials"
	ReasonSync               Reason = "SyncError"
	ReasonInternal           Reason = "InternalError"
)

// Failure is the typed error returned by Login. It matches ErrUnauthorized
// or ErrInternal under errors.Is, and also unwraps to its cause.
type Failure struct {
	Reason Reason
	State  LoginState
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("auth: login failed after %s: %s: %v", f.State, f.Reason, f.Err)
}

// Unwrap exposes both the status class and the underlying cause.
func (f *Failure) Unwrap() []error {
	return []error{f.class(), f.Err}
}

func (f *Failure) class() error {
	switch f.Reason {
	case ReasonUserNotFound, ReasonInvalidCredentials:
		return ErrUnauthorized
	default:
		return ErrInternal
	}
}
