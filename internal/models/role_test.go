package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartbin-api-server/internal/apperror"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles() {
		got, err := ParseRole(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	for _, bad := range []string{"", "admin", "ADMIN", "Manager", "Superuser", " Guest"} {
		_, err := ParseRole(bad)
		assert.True(t, errors.Is(err, apperror.ErrUnknownRole), "expected unknown role for %q", bad)
	}
}

func TestRoleRank(t *testing.T) {
	assert.Equal(t, 2, RoleAdmin.Rank())
	assert.Equal(t, 1, RoleSalesManager.Rank())
	assert.Equal(t, 0, RoleGuest.Rank())
	assert.Equal(t, -1, Role("Janitor").Rank())
}

func TestRoleSatisfies(t *testing.T) {
	tests := []struct {
		held     Role
		required Role
		want     bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleSalesManager, true},
		{RoleAdmin, RoleGuest, true},
		{RoleSalesManager, RoleAdmin, false},
		{RoleSalesManager, RoleSalesManager, true},
		{RoleSalesManager, RoleGuest, true},
		{RoleGuest, RoleAdmin, false},
		{RoleGuest, RoleSalesManager, false},
		{RoleGuest, RoleGuest, true},
		{Role("Janitor"), RoleGuest, false},
		{RoleAdmin, Role("Janitor"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.held)+"_"+string(tt.required), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.held.Satisfies(tt.required))
		})
	}
}

func TestRoleSatisfiesIsTransitive(t *testing.T) {
	roles := Roles()
	for _, a := range roles {
		for _, b := range roles {
			for _, c := range roles {
				if a.Satisfies(b) && b.Satisfies(c) {
					assert.True(t, a.Satisfies(c), "%s >= %s >= %s", a, b, c)
				}
			}
		}
	}
}
