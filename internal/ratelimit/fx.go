package ratelimit

import (
	"github.com/smallbiznis/warung/internal/config"
	obsmetrics "github.com/smallbiznis/warung/internal/observability/metrics"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Config  config.Config
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewFromConfig(p Params) (*TokenBucket, error) {
	return NewTokenBucket(p.Config.RateLimitRate, p.Config.RateLimitBurst, p.Metrics)
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewFromConfig),
)
