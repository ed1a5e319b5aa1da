package relations

import (
	"github.com/orgmesh/orgmesh/internal/relations/client"
	"github.com/orgmesh/orgmesh/internal/relations/repository"
	"github.com/orgmesh/orgmesh/internal/relations/service"
	"go.uber.org/fx"
)

var Module = fx.Module("relations.service",
	fx.Provide(client.New),
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
