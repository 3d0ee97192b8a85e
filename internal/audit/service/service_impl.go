package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/millwise/shopfloor/internal/audit/domain"
	"github.com/millwise/shopfloor/internal/clock"
	"github.com/millwise/shopfloor/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, actorID snowflake.ID, action, targetType, targetID string, metadata map[string]any) {
	action = strings.TrimSpace(action)
	if action == "" {
		return
	}
	targetType = strings.TrimSpace(targetType)
	if targetType == "" {
		targetType = "unknown"
	}

	payload := map[string]any{}
	for key, value := range metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	entry := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   strings.TrimSpace(targetID),
		Metadata:   payload,
		CreatedAt:  s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Error("audit write failed",
			zap.String("action", action),
			zap.String("target_type", targetType),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
	}
}

func (s *Service) List(ctx context.Context, filter auditdomain.ListFilter, pg pagination.Pagination) (*pagination.Result[auditdomain.AuditLog], error) {
	pg = pg.Normalize()
	logs, total, err := s.repo.List(ctx, s.db, filter, pg)
	if err != nil {
		return nil, err
	}
	return &pagination.Result[auditdomain.AuditLog]{
		Data:  logs,
		Page:  pg.Page,
		Limit: pg.Limit,
		Total: total,
	}, nil
}
