package rbac

import (
	"encoding/json"
	"testing"

	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAdminName(t *testing.T) {
	for _, name := range []string{"admin", "Admin", "ADMIN", " admin "} {
		assert.True(t, IsAdminName(name), name)
	}
	for _, name := range []string{"", "administrator", "admins", "front desk"} {
		assert.False(t, IsAdminName(name), name)
	}
}

func TestRole_EffectiveModules(t *testing.T) {
	admin := Role{Name: "Admin", AllowedModules: modules.NewSet(modules.Dashboard)}
	assert.Equal(t, len(modules.All()), admin.EffectiveModules().Len())

	staff := Role{Name: "Staff", AllowedModules: modules.NewSet(modules.Events)}
	assert.True(t, staff.EffectiveModules().Equal(modules.NewSet(modules.Events)))
}

func TestRole_JSON(t *testing.T) {
	var role Role
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"r1","name":"Sales","allowedModules":["quotes","nope","invoices"]}`), &role))
	assert.Equal(t, "r1", role.ID)
	assert.Equal(t, []modules.ID{modules.Quotes, modules.Invoices}, role.AllowedModules.IDs())
}

func TestMember_RoleShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"_id":"u1","role":"r1"}`, "r1"},
		{"object id", `{"_id":"u1","role":{"_id":"r2","name":"Sales"}}`, "r2"},
		{"object name", `{"_id":"u1","role":{"name":"Sales"}}`, "Sales"},
		{"missing", `{"_id":"u1"}`, ""},
		{"null", `{"_id":"u1","role":null}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Member
			require.NoError(t, json.Unmarshal([]byte(tt.body), &m))
			assert.Equal(t, "u1", m.ID)
			assert.Equal(t, tt.want, m.Role)
		})
	}

	var m Member
	assert.Error(t, json.Unmarshal([]byte(`{"role":42}`), &m))
}

func TestMember_Holds(t *testing.T) {
	role := Role{ID: "r1", Name: "Sales"}
	assert.True(t, Member{Role: "r1"}.holds(role))
	assert.True(t, Member{Role: "sales"}.holds(role))
	assert.False(t, Member{Role: "r2"}.holds(role))
	assert.False(t, Member{}.holds(Role{}))
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"array", `[{"_id":"a"},{"_id":"b"}]`, 2},
		{"wrapped", `{"roles":[{"_id":"a"}]}`, 1},
		{"wrapped missing key", `{"total":0}`, 0},
		{"null", `null`, 0},
		{"empty", ``, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roles, err := decodeList[Role](json.RawMessage(tt.body), "roles")
			require.NoError(t, err)
			assert.Len(t, roles, tt.want)
			assert.NotNil(t, roles)
		})
	}

	_, err := decodeList[Role](json.RawMessage(`"nope"`), "roles")
	assert.Error(t, err)
}
