package identity

import (
	"github.com/millwise/shopfloor/internal/config"
	"github.com/millwise/shopfloor/internal/identity/domain"
	"github.com/millwise/shopfloor/internal/identity/service"
	"github.com/millwise/shopfloor/internal/identity/token"
	"github.com/millwise/shopfloor/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func newIssuer(cfg config.Config) *token.Issuer {
	return token.NewIssuer(token.Config{
		Secret: cfg.AuthJWTSecret,
		Issuer: cfg.AppName,
		TTL:    cfg.AuthTokenTTL,
	})
}

func newUserStore(db *gorm.DB) repository.Repository[domain.User] {
	return repository.ProvideStore[domain.User](db)
}

var Module = fx.Module("identity.service",
	fx.Provide(newIssuer),
	fx.Provide(newUserStore),
	fx.Provide(service.NewService),
)
