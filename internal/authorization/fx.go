package authorization

import (
	"github.com/millwise/shopfloor/pkg/crud"
	"go.uber.org/fx"
)

var Module = fx.Module("authorization.service",
	fx.Provide(
		NewEnforcer,
		NewService,
		func(s Service) crud.Authorizer { return s },
	),
)
