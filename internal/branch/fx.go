package branch

import (
	"github.com/smallbiznis/warung/internal/branch/repository"
	"github.com/smallbiznis/warung/internal/branch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("branch.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
