package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/millwise/shopfloor/internal/clock"
	"github.com/millwise/shopfloor/internal/identity/domain"
	"github.com/millwise/shopfloor/internal/identity/password"
	"github.com/millwise/shopfloor/internal/identity/token"
	rolesdomain "github.com/millwise/shopfloor/internal/roles/domain"
	"github.com/millwise/shopfloor/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Users  repository.Repository[domain.User]
	Tokens *token.Issuer
	Roles  rolesdomain.Service
}

type service struct {
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	users  repository.Repository[domain.User]
	tokens *token.Issuer
	roles  rolesdomain.Service
}

func NewService(p Params) domain.Service {
	return &service{
		log:    p.Log.Named("identity.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		users:  p.Users,
		tokens: p.Tokens,
		roles:  p.Roles,
	}
}

func (s *service) Login(ctx context.Context, username, plaintext string) (*domain.LoginResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || plaintext == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByCond(ctx, &domain.User{Username: username})
	if err != nil {
		return nil, err
	}
	if user == nil || !password.Verify(plaintext, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	role, err := s.roles.PrimaryRole(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	signed, expiresAt, err := s.tokens.Issue(user.ID.String(), role, s.clock.Now())
	if err != nil {
		return nil, err
	}

	return &domain.LoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		UserID:    user.ID.String(),
	}, nil
}

func (s *service) Introspect(ctx context.Context, raw string) (*domain.Requester, error) {
	claims, err := s.tokens.Verify(strings.TrimSpace(raw))
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	userID, err := snowflake.ParseString(claims.UserID)
	if err != nil || userID == 0 {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Requester{
		SubjectID: userID,
		Role:      claims.Role,
	}, nil
}

func (s *service) GetUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *service) Exists(ctx context.Context, id snowflake.ID) (bool, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

func (s *service) CreateUser(ctx context.Context, username, displayName, plaintext string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrInvalidUsername
	}
	if len(plaintext) < 8 {
		return nil, domain.ErrInvalidPassword
	}

	existing, err := s.users.FindByCond(ctx, &domain.User{Username: username})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrUserExists
	}

	hash, err := password.Hash(plaintext)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID.String()))
	return user, nil
}
