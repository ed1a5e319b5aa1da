package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/orgmesh/orgmesh/internal/clock"
	"github.com/orgmesh/orgmesh/internal/config"
	"github.com/orgmesh/orgmesh/internal/observability"
	"github.com/orgmesh/orgmesh/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,

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
