package audit

import (
	"github.com/millwise/shopfloor/internal/audit/repository"
	"github.com/millwise/shopfloor/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
