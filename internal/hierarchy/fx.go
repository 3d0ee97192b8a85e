package hierarchy

import (
	"github.com/millwise/shopfloor/internal/hierarchy/repository"
	"github.com/millwise/shopfloor/internal/hierarchy/resolver"
	"go.uber.org/fx"
)

var Module = fx.Module("hierarchy",
	fx.Provide(
		repository.NewStore,
		resolver.New,
	),
)
