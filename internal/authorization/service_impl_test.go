package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/millwise/shopfloor/internal/apperror"
	identitydomain "github.com/millwise/shopfloor/internal/identity/domain"
	rolesdomain "github.com/millwise/shopfloor/internal/roles/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	return NewService(Params{
		Log:      zaptest.NewLogger(t),
		Enforcer: enforcer,
	})
}

func TestEnforceRoleMatrix(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		role    string
		object  string
		action  string
		allowed bool
	}{
		{"worker reads factories", rolesdomain.RoleWorker, ObjectFactory, ActionRead, true},
		{"worker cannot create factories", rolesdomain.RoleWorker, ObjectFactory, ActionCreate, false},
		{"group leader updates groups", rolesdomain.RoleGroupLeader, ObjectGroup, ActionUpdate, true},
		{"group leader cannot update teams", rolesdomain.RoleGroupLeader, ObjectTeam, ActionUpdate, false},
		{"team leader creates groups", rolesdomain.RoleTeamLeader, ObjectGroup, ActionCreate, true},
		{"team leader updates teams", rolesdomain.RoleTeamLeader, ObjectTeam, ActionUpdate, true},
		{"team leader cannot update lines", rolesdomain.RoleTeamLeader, ObjectLine, ActionUpdate, false},
		{"factory manager deletes lines", rolesdomain.RoleFactoryManager, ObjectLine, ActionDelete, true},
		{"factory manager updates factories", rolesdomain.RoleFactoryManager, ObjectFactory, ActionUpdate, true},
		{"line manager cannot update factories", rolesdomain.RoleLineManager, ObjectFactory, ActionUpdate, false},
		{"admin creates factories", rolesdomain.RoleAdmin, ObjectFactory, ActionCreate, true},
		{"super admin grants roles", rolesdomain.RoleSuperAdmin, ObjectRole, ActionRoleGrant, true},
		{"line manager assigns team managers", rolesdomain.RoleLineManager, ObjectTeam, ActionManagerAssign, true},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := identitydomain.Requester{SubjectID: snowflake.ID(i + 1), Role: tc.role}
			err := svc.Enforce(ctx, req, tc.object, tc.action)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			appErr, ok := apperror.As(err)
			require.True(t, ok)
			assert.Equal(t, 403, appErr.Status)
		})
	}
}

func TestEnforceRequiresSubject(t *testing.T) {
	svc := newTestService(t)

	err := svc.Enforce(context.Background(), identitydomain.Requester{}, ObjectFactory, ActionRead)
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, 401, appErr.Status)
}

func TestEnforceRebindsRoleOnChange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := identitydomain.Requester{SubjectID: snowflake.ID(42), Role: rolesdomain.RoleWorker}
	require.Error(t, svc.Enforce(ctx, req, ObjectGroup, ActionCreate))

	// A later token carries a promotion; the old binding must not linger.
	req.Role = rolesdomain.RoleTeamLeader
	assert.NoError(t, svc.Enforce(ctx, req, ObjectGroup, ActionCreate))

	// And a demotion revokes it again.
	req.Role = rolesdomain.RoleWorker
	require.Error(t, svc.Enforce(ctx, req, ObjectGroup, ActionCreate))
}
