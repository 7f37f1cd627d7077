package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mssp-soc/portal-gateway/pkg/models"
)

func clientActor(tenant uuid.UUID) Actor {
	return Actor{UserID: uuid.New(), Role: models.RoleClientSecurity, TenantID: &tenant}
}

func socActor() Actor {
	return Actor{UserID: uuid.New(), Role: models.RoleSOCAnalyst}
}

func TestClientMayAccessOwnTenant(t *testing.T) {
	tenant := uuid.New()
	assert.NoError(t, CheckTenantAccess(clientActor(tenant), tenant))
}

func TestClientForbiddenAcrossTenants(t *testing.T) {
	own := uuid.New()
	other := uuid.New()

	// every client role is denied, including read-only ones
	for _, role := range []models.Role{
		models.RoleClientAdmin,
		models.RoleClientSecurity,
		models.RoleClientAuditor,
		models.RoleClientReadOnly,
	} {
		actor := Actor{UserID: uuid.New(), Role: role, TenantID: &own}
		err := CheckTenantAccess(actor, other)
		assert.ErrorIs(t, err, models.ErrForbidden, "role %s", role)
	}
}

func TestClientWithoutBindingForbidden(t *testing.T) {
	actor := Actor{UserID: uuid.New(), Role: models.RoleClientAdmin}
	assert.ErrorIs(t, CheckTenantAccess(actor, uuid.New()), models.ErrForbidden)

	_, err := Scope(actor, nil)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestSOCMayAccessAnyTenant(t *testing.T) {
	assert.NoError(t, CheckTenantAccess(socActor(), uuid.New()))
}

func TestScopeClientPinnedToOwnTenant(t *testing.T) {
	tenant := uuid.New()
	actor := clientActor(tenant)

	// no explicit filter: scope is the actor's own tenant
	scope, err := Scope(actor, nil)
	require.NoError(t, err)
	require.NotNil(t, scope)
	assert.Equal(t, tenant, *scope)

	// requesting the own tenant explicitly is fine
	scope, err = Scope(actor, &tenant)
	require.NoError(t, err)
	assert.Equal(t, tenant, *scope)

	// requesting another tenant is not
	other := uuid.New()
	_, err = Scope(actor, &other)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestScopeSOCDefaultsToAllTenants(t *testing.T) {
	scope, err := Scope(socActor(), nil)
	require.NoError(t, err)
	assert.Nil(t, scope)
}

func TestScopeSOCNarrowsToSelection(t *testing.T) {
	selected := uuid.New()
	scope, err := Scope(socActor(), &selected)
	require.NoError(t, err)
	require.NotNil(t, scope)
	assert.Equal(t, selected, *scope)
}
