package rbac

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUserNotFound is returned when no local user matches the email.
	ErrUserNotFound = errors.New("rbac: user not found")
	// ErrInvalidRole is returned for names outside the role catalogue or
	// for non-base roles passed to assignment operations.
	ErrInvalidRole = errors.New("rbac: invalid role")
	// ErrAlreadyAssigned is returned when the assignment already exists.
	ErrAlreadyAssigned = errors.New("rbac: role already assigned")
	// ErrNotAssigned is returned when removing a missing assignment.
	ErrNotAssigned = errors.New("rbac: role not assigned")
)

// Role names a system role.
type Role string

// Universal role held by every authenticated user.
const RoleUsuario Role = "USUARIO"

// Base roles, granted through explicit assignments.
const (
	RoleAdministrador          Role = "ADMINISTRADOR"
	RoleLogistico              Role = "LOGISTICO"
	RoleRector                 Role = "RECTOR"
	RoleDirectivoInstitucional Role = "DIRECTIVO_INSTITUCIONAL"
)

// Calculated roles, derived from organizational relations.
const (
	RoleDirectivo        Role = "DIRECTIVO"
	RoleAlmacenero       Role = "ALMACENERO"
	RoleResponsableLocal Role = "RESPONSABLE_LOCAL"
	RoleResponsableMedio Role = "RESPONSABLE_MEDIO"
)

// BaseRoles lists assignable roles.
var BaseRoles = []Role{RoleAdministrador, RoleLogistico, RoleRector, RoleDirectivoInstitucional}

// Relation identifies an organizational membership list.
type Relation string

// Organizational relations read by the resolver.
const (
	RelationAreaDirectivos    Relation = "area_directivos"
	RelationAreaAlmaceneros   Relation = "area_almaceneros"
	RelationLocalResponsables Relation = "local_responsables"
	RelationMedioResponsables Relation = "medio_responsables"
)

// calculatedRules is ordered; the resolver emits calculated roles in this order.
var calculatedRules = []struct {
	relation Relation
	role     Role
}{
	{RelationAreaDirectivos, RoleDirectivo},
	{RelationAreaAlmaceneros, RoleAlmacenero},
	{RelationLocalResponsables, RoleResponsableLocal},
	{RelationMedioResponsables, RoleResponsableMedio},
}

// IsBase reports whether r may be assigned explicitly.
func (r Role) IsBase() bool {
	for _, b := range BaseRoles {
		if r == b {
			return true
		}
	}
	return false
}

// IsKnown reports whether r belongs to the role catalogue.
func (r Role) IsKnown() bool {
	if r == RoleUsuario || r.IsBase() {
		return true
	}
	for _, rule := range calculatedRules {
		if r == rule.role {
			return true
		}
	}
	return false
}

// ParseRole normalizes s and checks it against the catalogue.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsKnown() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Assignment is an explicit base-role grant.
type Assignment struct {
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// EffectiveRoleSet is the derived authorization view of a user.
type EffectiveRoleSet struct {
	Email           string    `json:"email"`
	BaseRoles       []Role    `json:"baseRoles"`
	CalculatedRoles []Role    `json:"calculatedRoles"`
	EffectiveRoles  []Role    `json:"effectiveRoles"`
	ComputedAt      time.Time `json:"computedAt"`
}

// Has reports whether role is among the effective roles.
func (s EffectiveRoleSet) Has(role Role) bool {
	for _, r := range s.EffectiveRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Strings returns the effective roles as plain strings.
func (s EffectiveRoleSet) Strings() []string {
	out := make([]string, len(s.EffectiveRoles))
	for i, r := range s.EffectiveRoles {
		out[i] = string(r)
	}
	return out
}

// Merge returns the universal role, then base, then calculated roles,
// dropping duplicates while keeping first occurrence.
func Merge(base, calculated []Role) []Role {
	out := make([]Role, 0, 1+len(base)+len(calculated))
	seen := make(map[Role]struct{}, cap(out))
	add := func(r Role) {
		if r == "" {
			return
		}
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	add(RoleUsuario)
	for _, r := range base {
		add(r)
	}
	for _, r := range calculated {
		add(r)
	}
	return out
}
