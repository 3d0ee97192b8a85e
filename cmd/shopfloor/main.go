package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/millwise/shopfloor/internal/clock"
	"github.com/millwise/shopfloor/internal/config"
	"github.com/millwise/shopfloor/internal/logger"
	"github.com/millwise/shopfloor/internal/migration"
	"github.com/millwise/shopfloor/internal/server"
	"github.com/millwise/shopfloor/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
