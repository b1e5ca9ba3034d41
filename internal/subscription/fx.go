package subscription

import (
	"github.com/smallbiznis/warung/internal/subscription/repository"
	"github.com/smallbiznis/warung/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
