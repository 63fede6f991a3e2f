package roles

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reduc/agenda/internal/rbac"
)

type stubAdmin struct {
	assignments []rbac.Assignment
	set         rbac.EffectiveRoleSet
	assigned    []rbac.Role
	removed     []rbac.Role
	assignErr   map[rbac.Role]error
	removeErr   map[rbac.Role]error
	listErr     error
}

func (s *stubAdmin) ListAssignments(context.Context, string) ([]rbac.Assignment, error) {
	return s.assignments, s.listErr
}

func (s *stubAdmin) EffectiveRoles(context.Context, string) (rbac.EffectiveRoleSet, error) {
	return s.set, nil
}

func (s *stubAdmin) AssignRole(_ context.Context, _ string, role rbac.Role) error {
	if err := s.assignErr[role]; err != nil {
		return err
	}
	s.assigned = append(s.assigned, role)
	return nil
}

func (s *stubAdmin) RemoveRole(_ context.Context, _ string, role rbac.Role) error {
	if err := s.removeErr[role]; err != nil {
		return err
	}
	s.removed = append(s.removed, role)
	return nil
}

func TestParseRolesRejectsCalculatedRoles(t *testing.T) {
	roles, err := parseRoles([]string{"rector", " Logistico "})
	require.NoError(t, err)
	assert.Equal(t, []rbac.Role{rbac.RoleRector, rbac.RoleLogistico}, roles)

	_, err = parseRoles([]string{"DIRECTIVO"})
	require.Error(t, err)
	assert.ErrorIs(t, err, rbac.ErrInvalidRole)
	assert.Contains(t, err.Error(), "calculated")

	_, err = parseRoles([]string{"JANITOR"})
	assert.ErrorIs(t, err, rbac.ErrInvalidRole)
}

func TestRunListPrintsBaseAndCalculatedRoles(t *testing.T) {
	admin := &stubAdmin{
		assignments: []rbac.Assignment{{Email: "rector@reduc.edu.cu", Role: rbac.RoleRector, CreatedAt: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}},
		set: rbac.EffectiveRoleSet{
			CalculatedRoles: []rbac.Role{rbac.RoleDirectivo},
			EffectiveRoles:  []rbac.Role{rbac.RoleUsuario, rbac.RoleRector, rbac.RoleDirectivo},
		},
	}
	var out bytes.Buffer
	require.NoError(t, runList(context.Background(), admin, &out, "rector@reduc.edu.cu"))

	text := out.String()
	assert.Contains(t, text, "ROLE")
	assert.Contains(t, text, "2024-03-04T10:00:00Z")
	assert.Contains(t, text, "calculated")
	assert.Contains(t, text, "effective: USUARIO, RECTOR, DIRECTIVO")
}

func TestRunListWrapsErrors(t *testing.T) {
	admin := &stubAdmin{listErr: rbac.ErrUserNotFound}
	err := runList(context.Background(), admin, &bytes.Buffer{}, "ghost@reduc.edu.cu")
	assert.ErrorIs(t, err, rbac.ErrUserNotFound)
}

func TestRunAssignToleratesExistingGrant(t *testing.T) {
	admin := &stubAdmin{assignErr: map[rbac.Role]error{rbac.RoleRector: rbac.ErrAlreadyAssigned}}
	var out bytes.Buffer
	err := runAssign(context.Background(), admin, &out, "a@reduc.edu.cu", []rbac.Role{rbac.RoleRector, rbac.RoleLogistico})
	require.NoError(t, err)
	assert.Equal(t, []rbac.Role{rbac.RoleLogistico}, admin.assigned)
	assert.Contains(t, out.String(), "already holds RECTOR")
	assert.Contains(t, out.String(), "assigned LOGISTICO")
}

func TestRunAssignStopsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	admin := &stubAdmin{assignErr: map[rbac.Role]error{rbac.RoleRector: boom}}
	err := runAssign(context.Background(), admin, &bytes.Buffer{}, "a@reduc.edu.cu", []rbac.Role{rbac.RoleRector, rbac.RoleLogistico})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, admin.assigned)
}

func TestRunRemoveReportsMissingGrant(t *testing.T) {
	admin := &stubAdmin{removeErr: map[rbac.Role]error{rbac.RoleLogistico: rbac.ErrNotAssigned}}
	var out bytes.Buffer
	err := runRemove(context.Background(), admin, &out, "a@reduc.edu.cu", []rbac.Role{rbac.RoleRector, rbac.RoleLogistico})
	require.NoError(t, err)
	assert.Equal(t, []rbac.Role{rbac.RoleRector}, admin.removed)
	assert.Contains(t, out.String(), "does not hold LOGISTICO")
}
