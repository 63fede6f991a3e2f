package users

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reduc/agenda/internal/shared"
	"github.com/reduc/agenda/internal/users"
)

type memoryRepo struct {
	users      map[string]users.User
	lastOffset int
	lastLimit  int
}

func (m *memoryRepo) ListUsers(_ context.Context, filter users.ListFilter, offset, limit int) ([]users.User, int, error) {
	m.lastOffset, m.lastLimit = offset, limit
	out := make([]users.User, 0, len(m.users))
	for _, u := range m.users {
		if filter.Active != nil && u.IsActive != *filter.Active {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memoryRepo) SetActive(_ context.Context, email string, active bool) (users.User, error) {
	u, ok := m.users[email]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	u.IsActive = active
	m.users[email] = u
	return u, nil
}

func newService() (*users.Service, *memoryRepo) {
	repo := &memoryRepo{users: map[string]users.User{
		"ana@reduc.edu.cu": {ID: "1", Email: "ana@reduc.edu.cu", Name: "Ana", IsActive: true, LastLoginAt: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)},
	}}
	return users.NewService(repo, nil), repo
}

func TestBuildFilterParsesActiveFlag(t *testing.T) {
	filter, err := buildFilter("ana", "false", 2, 10)
	require.NoError(t, err)
	require.NotNil(t, filter.Active)
	assert.False(t, *filter.Active)
	assert.Equal(t, 2, filter.Page)

	filter, err = buildFilter("", "", 1, 20)
	require.NoError(t, err)
	assert.Nil(t, filter.Active)

	_, err = buildFilter("", "maybe", 1, 20)
	assert.Error(t, err)
}

func TestRunListPrintsTable(t *testing.T) {
	svc, repo := newService()
	var out bytes.Buffer
	require.NoError(t, runList(context.Background(), svc, &out, users.ListFilter{Page: 1, PerPage: 500}))

	assert.Equal(t, 100, repo.lastLimit)
	assert.Contains(t, out.String(), "ana@reduc.edu.cu")
	assert.Contains(t, out.String(), "2024-03-04T10:00:00Z")
	assert.Contains(t, out.String(), "page 1 of 1 (1 users)")
}

func TestRunSetActiveTogglesUser(t *testing.T) {
	svc, repo := newService()
	var out bytes.Buffer

	require.NoError(t, runSetActive(context.Background(), svc, &out, "ANA@reduc.edu.cu", false))
	assert.False(t, repo.users["ana@reduc.edu.cu"].IsActive)
	assert.Contains(t, out.String(), "ana@reduc.edu.cu deactivated")

	require.NoError(t, runSetActive(context.Background(), svc, &out, "ana@reduc.edu.cu", true))
	assert.True(t, repo.users["ana@reduc.edu.cu"].IsActive)
	assert.Contains(t, out.String(), "ana@reduc.edu.cu activated")
}

func TestRunSetActiveUnknownUser(t *testing.T) {
	svc, _ := newService()
	err := runSetActive(context.Background(), svc, &bytes.Buffer{}, "ghost@reduc.edu.cu", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
