package events

import (
	"context"

	"go.uber.org/fx"
)

func providePublisher(bus *Bus) Publisher {
	return bus
}

func registerHooks(lc fx.Lifecycle, bus *Bus) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return bus.Close(ctx)
		},
	})
}

var Module = fx.Module("events",
	fx.Provide(NewBus),
	fx.Provide(providePublisher),
	fx.Invoke(registerHooks),
)
