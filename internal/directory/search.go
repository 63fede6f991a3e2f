package directory

import (
	"context"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 200
)

// Lookup resolves a single account by username using the service account.
func (a *Authenticator) Lookup(ctx context.Context, username string) (Identity, error) {
	start := time.Now()
	username = strings.TrimSpace(username)
	if username == "" {
		a.observe("lookup", start, ErrUserNotFound)
		return Identity{}, ErrUserNotFound
	}
	entry, err := a.findEntry(ctx, username)
	a.observe("lookup", start, err)
	if err != nil {
		return Identity{}, err
	}
	return toIdentity(entry, username), nil
}

// Search lists accounts whose cn, displayName or sAMAccountName contain term.
// An empty term lists every account matching the class filter.
func (a *Authenticator) Search(ctx context.Context, term string, limit int) ([]Identity, error) {
	start := time.Now()
	identities, err := a.search(ctx, term, limit)
	a.observe("search", start, err)
	return identities, err
}

func (a *Authenticator) search(ctx context.Context, term string, limit int) ([]Identity, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	conn, release, err := a.serviceConn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := conn.Search(a.searchRequest(a.searchFilter(term), limit))
	entries, err := partialResult(res, err)
	if err != nil {
		return nil, connectionError(ctx, "search", err)
	}
	out := make([]Identity, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toIdentity(entry, ""))
	}
	return out, nil
}

func (a *Authenticator) searchFilter(term string) string {
	class := a.cfg.ClassFilter
	if class == "" {
		class = "(objectClass=person)"
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return class
	}
	t := ldap.EscapeFilter(term)
	return "(&" + class + "(|(cn=*" + t + "*)(displayName=*" + t + "*)(sAMAccountName=*" + t + "*)))"
}

// Probe performs a service bind and releases the connection. It backs the
// readiness endpoint and the scheduled directory health task.
func (a *Authenticator) Probe(ctx context.Context) error {
	start := time.Now()
	_, release, err := a.serviceConn(ctx)
	if err == nil {
		release()
	}
	a.observe("probe", start, err)
	return err
}
