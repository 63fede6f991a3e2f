package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

var userAttributes = []string{
	"sAMAccountName",
	"cn",
	"displayName",
	"mail",
	"givenName",
	"sn",
	"department",
	"title",
	"telephoneNumber",
}

// Authenticator performs the service-bind, search, user-bind sequence.
type Authenticator struct {
	cfg      Config
	dialer   Dialer
	logger   *slog.Logger
	observer Observer
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(cfg Config, dialer Dialer, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Filter == "" {
		cfg.Filter = "(sAMAccountName=" + UsernamePlaceholder + ")"
	}
	return &Authenticator{cfg: cfg, dialer: dialer, logger: logger}
}

// WithObserver attaches an Observer and returns the receiver.
func (a *Authenticator) WithObserver(o Observer) *Authenticator {
	a.observer = o
	return a
}

// Authenticate verifies username and password against the directory.
// Every connection opened here is closed before returning.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	start := time.Now()
	identity, err := a.authenticate(ctx, username, password)
	a.observe("authenticate", start, err)
	return identity, err
}

func (a *Authenticator) authenticate(ctx context.Context, username, password string) (Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Identity{}, ErrUserNotFound
	}
	entry, err := a.findEntry(ctx, username)
	if err != nil {
		return Identity{}, err
	}
	// An empty password would turn the user bind into an anonymous bind.
	if password == "" {
		return Identity{}, ErrInvalidCredentials
	}
	if err := a.bindAs(ctx, entry.DN, password); err != nil {
		return Identity{}, err
	}
	return toIdentity(entry, username), nil
}

func (a *Authenticator) findEntry(ctx context.Context, username string) (*ldap.Entry, error) {
	conn, release, err := a.serviceConn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	filter := strings.ReplaceAll(a.cfg.Filter, UsernamePlaceholder, ldap.EscapeFilter(username))
	res, err := conn.Search(a.searchRequest(filter, 2))
	entries, err := partialResult(res, err)
	if err != nil {
		return nil, connectionError(ctx, "search", err)
	}
	switch len(entries) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
	default:
		a.logger.Warn("directory search matched several entries, using the first",
			slog.String("username", username),
			slog.Int("matches", len(entries)),
			slog.String("dn", entries[0].DN),
		)
	}
	return entries[0], nil
}

func (a *Authenticator) bindAs(ctx context.Context, dn, password string) error {
	conn, err := a.dial(ctx)
	if err != nil {
		return err
	}
	release := a.guard(ctx, conn)
	defer release()

	if err := conn.Bind(dn, password); err != nil {
		if rejectedBind(err) {
			return ErrInvalidCredentials
		}
		return connectionError(ctx, "user bind", err)
	}
	return nil
}

func (a *Authenticator) serviceConn(ctx context.Context) (Conn, func(), error) {
	conn, err := a.dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	release := a.guard(ctx, conn)
	if err := conn.Bind(a.cfg.BindDN, a.cfg.BindPassword); err != nil {
		release()
		return nil, nil, connectionError(ctx, "service bind", err)
	}
	return conn, release, nil
}

func (a *Authenticator) dial(ctx context.Context) (Conn, error) {
	conn, err := a.dialer.Dial(ctx)
	if err != nil {
		return nil, connectionError(ctx, "dial", err)
	}
	return conn, nil
}

// guard closes conn when ctx is cancelled mid-operation. The returned
// release func unbinds and closes it exactly once.
func (a *Authenticator) guard(ctx context.Context, conn Conn) func() {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	return func() {
		stop()
		if err := conn.Unbind(); err != nil {
			a.logger.Debug("directory unbind", slog.Any("error", err))
		}
		_ = conn.Close()
	}
}

func (a *Authenticator) searchRequest(filter string, sizeLimit int) *ldap.SearchRequest {
	timeLimit := 0
	if a.cfg.OperationTimeout > 0 {
		timeLimit = int(a.cfg.OperationTimeout.Seconds())
	}
	return ldap.NewSearchRequest(
		a.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		sizeLimit,
		timeLimit,
		false,
		filter,
		userAttributes,
		nil,
	)
}

func (a *Authenticator) observe(op string, start time.Time, err error) {
	if a.observer == nil {
		return
	}
	a.observer.ObserveDirectory(op, Outcome(err), time.Since(start))
}

// Outcome classifies err into a short label for metrics and audit.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "connection_error"
	}
}

// partialResult keeps the entries returned alongside a size-limit error.
func partialResult(res *ldap.SearchResult, err error) ([]*ldap.Entry, error) {
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) && res != nil && len(res.Entries) > 0 {
			return res.Entries, nil
		}
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.Entries, nil
}

func rejectedBind(err error) bool {
	return ldap.IsErrorAnyOf(err,
		ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultUnwillingToPerform,
	)
}

func connectionError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnection, op, ctxErr)
	}
	return fmt.Errorf("%w: %s: %w", ErrConnection, op, err)
}

func toIdentity(entry *ldap.Entry, username string) Identity {
	name := entry.GetAttributeValue("displayName")
	if name == "" {
		name = entry.GetAttributeValue("cn")
	}
	account := entry.GetAttributeValue("sAMAccountName")
	if account == "" {
		account = username
	}
	return Identity{
		DN:          entry.DN,
		Username:    account,
		DisplayName: name,
		Email:       entry.GetAttributeValue("mail"),
		Department:  entry.GetAttributeValue("department"),
		Title:       entry.GetAttributeValue("title"),
		Phone:       entry.GetAttributeValue("telephoneNumber"),
	}
}
