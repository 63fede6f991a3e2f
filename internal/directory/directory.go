// Package directory authenticates users against the institutional LDAP
// directory and exposes read-only lookups over the same service account.
package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
)

var (
	// ErrUserNotFound is returned when the search yields no entry.
	ErrUserNotFound = errors.New("directory: user not found")
	// ErrInvalidCredentials is returned when the user bind is rejected.
	ErrInvalidCredentials = errors.New("directory: invalid credentials")
	// ErrConnection covers dial, service bind, search and timeout failures.
	ErrConnection = errors.New("directory: connection error")
)

// UsernamePlaceholder is substituted in the search filter template.
const UsernamePlaceholder = "{{username}}"

// Config describes how to reach and query the directory.
type Config struct {
	URL                string
	BindDN             string
	BindPassword       string
	BaseDN             string
	Filter             string
	ClassFilter        string
	ConnectTimeout     time.Duration
	OperationTimeout   time.Duration
	InsecureSkipVerify bool
}

// Identity is the directory view of a person.
type Identity struct {
	DN          string `json:"dn"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Department  string `json:"department,omitempty"`
	Title       string `json:"title,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Conn is the subset of *ldap.Conn used by this package.
type Conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Unbind() error
	Close() error
}

// Dialer opens a fresh directory connection.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Observer receives timing for every directory operation.
type Observer interface {
	ObserveDirectory(op, outcome string, elapsed time.Duration)
}

// NewDialer returns a Dialer backed by go-ldap.
func NewDialer(cfg Config) Dialer {
	return ldapDialer{cfg: cfg}
}

type ldapDialer struct {
	cfg Config
}

func (d ldapDialer) Dial(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := []ldap.DialOpt{ldap.DialWithDialer(&net.Dialer{Timeout: d.cfg.ConnectTimeout})}
	if d.cfg.InsecureSkipVerify {
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{InsecureSkipVerify: true})) //nolint:gosec // opt-in for lab directories
	}
	conn, err := ldap.DialURL(d.cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	if d.cfg.OperationTimeout > 0 {
		conn.SetTimeout(d.cfg.OperationTimeout)
	}
	return conn, nil
}
