package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/millwise/shopfloor/internal/clock"
	"github.com/millwise/shopfloor/internal/roles/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// rolePrecedence orders codes from least to most privileged for
// PrimaryRole selection.
var rolePrecedence = map[string]int{
	domain.RoleWorker:         0,
	domain.RoleGroupLeader:    1,
	domain.RoleTeamLeader:     2,
	domain.RoleLineManager:    3,
	domain.RoleFactoryManager: 4,
	domain.RoleAdmin:          5,
	domain.RoleSuperAdmin:     6,
}

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Redis *redis.Client `optional:"true"`

	CacheTTL time.Duration `name:"role_cache_ttl" optional:"true"`
}

type service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewService(p Params) domain.Service {
	ttl := p.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &service{
		log:      p.Log.Named("roles.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		redis:    p.Redis,
		cacheTTL: ttl,
	}
}

func (s *service) GetUserRoles(ctx context.Context, userID snowflake.ID) ([]domain.RoleAssignment, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	if cached, ok := s.cacheGet(ctx, userID); ok {
		return s.activeOnly(cached), nil
	}

	assignments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, userID, assignments)
	return s.activeOnly(assignments), nil
}

func (s *service) HasGlobalAdmin(ctx context.Context, userID snowflake.ID) (bool, error) {
	assignments, err := s.GetUserRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, a := range assignments {
		if domain.IsGlobalAdmin(a.RoleCode) {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) PrimaryRole(ctx context.Context, userID snowflake.ID) (string, error) {
	assignments, err := s.GetUserRoles(ctx, userID)
	if err != nil {
		return "", err
	}
	best := domain.RoleWorker
	for _, a := range assignments {
		if rolePrecedence[a.RoleCode] > rolePrecedence[best] {
			best = a.RoleCode
		}
	}
	return best, nil
}

func (s *service) Grant(ctx context.Context, userID snowflake.ID, roleCode, scope string, expiresAt *time.Time) error {
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	roleCode = strings.ToUpper(strings.TrimSpace(roleCode))
	if !domain.ValidRoleCode(roleCode) {
		return domain.ErrInvalidRole
	}

	assignment := &domain.RoleAssignment{
		ID:        s.genID.Generate(),
		UserID:    userID,
		RoleCode:  roleCode,
		Scope:     strings.TrimSpace(scope),
		ExpiresAt: expiresAt,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, assignment); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, userID)
	return nil
}

func (s *service) Revoke(ctx context.Context, userID snowflake.ID, roleCode string) error {
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	roleCode = strings.ToUpper(strings.TrimSpace(roleCode))
	if !domain.ValidRoleCode(roleCode) {
		return domain.ErrInvalidRole
	}
	if err := s.repo.Expire(ctx, userID, roleCode, s.clock.Now()); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, userID)
	return nil
}

func (s *service) activeOnly(assignments []domain.RoleAssignment) []domain.RoleAssignment {
	now := s.clock.Now()
	active := make([]domain.RoleAssignment, 0, len(assignments))
	for _, a := range assignments {
		if a.Active(now) {
			active = append(active, a)
		}
	}
	return active
}

func cacheKey(userID snowflake.ID) string {
	return fmt.Sprintf("roles:user:%s", userID)
}

func (s *service) cacheGet(ctx context.Context, userID snowflake.ID) ([]domain.RoleAssignment, bool) {
	if s.redis == nil {
		return nil, false
	}
	raw, err := s.redis.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Debug("role cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var assignments []domain.RoleAssignment
	if err := json.Unmarshal(raw, &assignments); err != nil {
		return nil, false
	}
	return assignments, true
}

func (s *service) cacheSet(ctx context.Context, userID snowflake.ID, assignments []domain.RoleAssignment) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(assignments)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(userID), raw, s.cacheTTL).Err(); err != nil {
		s.log.Debug("role cache write failed", zap.Error(err))
	}
}

func (s *service) cacheInvalidate(ctx context.Context, userID snowflake.ID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(userID)).Err(); err != nil {
		s.log.Debug("role cache invalidate failed", zap.Error(err))
	}
}
