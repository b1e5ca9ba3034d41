package menu

import (
	"github.com/smallbiznis/warung/internal/menu/repository"
	"github.com/smallbiznis/warung/internal/menu/service"
	"go.uber.org/fx"
)

var Module = fx.Module("menu.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
