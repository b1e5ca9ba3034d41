package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warung/internal/config"
	"github.com/smallbiznis/warung/internal/migration"
	"github.com/smallbiznis/warung/internal/observability"
	"github.com/smallbiznis/warung/internal/server"
	"github.com/smallbiznis/warung/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
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
