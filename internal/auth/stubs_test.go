package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reduc/agenda/internal/audit"
	"github.com/reduc/agenda/internal/directory"
	"github.com/reduc/agenda/internal/rbac"
)

type stubDirectory struct {
	identities map[string]directory.Identity
	passwords  map[string]string
	err        error
	calls      int
}

func (d *stubDirectory) Authenticate(_ context.Context, username, password string) (directory.Identity, error) {
	d.calls++
	if d.err != nil {
		return directory.Identity{}, d.err
	}
	identity, ok := d.identities[username]
	if !ok {
		return directory.Identity{}, directory.ErrUserNotFound
	}
	if d.passwords[username] != password {
		return directory.Identity{}, directory.ErrInvalidCredentials
	}
	return identity, nil
}

type stubUsers struct {
	mu        sync.Mutex
	byID      map[string]User
	upsertErr error
	findErr   error
	upserts   int
}

func newStubUsers() *stubUsers {
	return &stubUsers{byID: map[string]User{}}
}

func (s *stubUsers) FindByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return User{}, s.findErr
	}
	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *stubUsers) UpsertFromDirectory(_ context.Context, email, name string, at time.Time) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertErr != nil {
		return User{}, s.upsertErr
	}
	for id, u := range s.byID {
		if u.Email == email {
			u.Name, u.Active, u.LastLoginAt, u.UpdatedAt = name, true, at, at
			s.byID[id] = u
			return u, nil
		}
	}
	u := User{ID: "user-" + email, Email: email, Name: name, Active: true, LastLoginAt: at, CreatedAt: at, UpdatedAt: at}
	s.byID[u.ID] = u
	return u, nil
}

func (s *stubUsers) setActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byID[id]
	u.Active = active
	s.byID[id] = u
}

type stubRoles struct {
	base       map[string][]rbac.Role
	calculated map[string][]rbac.Role
	err        error
}

func (s *stubRoles) EffectiveRoles(_ context.Context, email string) (rbac.EffectiveRoleSet, error) {
	if s.err != nil {
		return rbac.EffectiveRoleSet{}, s.err
	}
	base, calc := s.base[email], s.calculated[email]
	return rbac.EffectiveRoleSet{
		Email:           email,
		BaseRoles:       base,
		CalculatedRoles: calc,
		EffectiveRoles:  rbac.Merge(base, calc),
	}, nil
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (m *memoryAudit) Record(_ context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *memoryAudit) actions() []audit.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Action, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

type memoryLedger struct {
	mu    sync.Mutex
	spent map[string]bool
}

func (l *memoryLedger) Consume(_ context.Context, tokenID string, _ time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.spent == nil {
		l.spent = map[string]bool{}
	}
	if l.spent[tokenID] {
		return ErrTokenReused
	}
	l.spent[tokenID] = true
	return nil
}

type countingObserver struct {
	logins    map[string]int
	refreshes map[string]int
}

func (o *countingObserver) ObserveLogin(outcome string) {
	if o.logins == nil {
		o.logins = map[string]int{}
	}
	o.logins[outcome]++
}

func (o *countingObserver) ObserveRefresh(outcome string) {
	if o.refreshes == nil {
		o.refreshes = map[string]int{}
	}
	o.refreshes[outcome]++
}

var errBoom = errors.New("boom")

type fixture struct {
	dir      *stubDirectory
	users    *stubUsers
	roles    *stubRoles
	audit    *memoryAudit
	observer *countingObserver
	tokens   *TokenIssuer
	service  *Service
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		Issuer:        "agenda",
	})
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	issuer.now = func() time.Time { return testNow }
	f := &fixture{
		dir: &stubDirectory{
			identities: map[string]directory.Identity{
				"rector": {DN: "cn=Rector,dc=uni", Username: "rector", DisplayName: "Ana Rector", Email: "rector@uni.edu"},
				"nomail": {DN: "cn=NoMail,dc=uni", Username: "nomail", DisplayName: "No Mail"},
			},
			passwords: map[string]string{"rector": "s3cret", "nomail": "pw"},
		},
		users: newStubUsers(),
		roles: &stubRoles{
			base:       map[string][]rbac.Role{"rector@uni.edu": {rbac.RoleRector}},
			calculated: map[string][]rbac.Role{"rector@uni.edu": {rbac.RoleDirectivo}},
		},
		audit:    &memoryAudit{},
		observer: &countingObserver{},
		tokens:   issuer,
	}
	f.service = NewService(Dependencies{
		Directory: f.dir,
		Users:     f.users,
		Roles:     f.roles,
		Tokens:    issuer,
		Audit:     f.audit,
		Observer:  f.observer,
	})
	f.service.now = func() time.Time { return testNow }
	return f
}
