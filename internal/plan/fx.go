package plan

import (
	"github.com/smallbiznis/warung/internal/plan/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.NewRepository),
)
