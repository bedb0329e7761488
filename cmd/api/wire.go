//go:build wireinject

package main

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	"github.com/aurablacklight/docker-dive-web-ui/cmd/api/api"
	"github.com/aurablacklight/docker-dive-web-ui/cmd/api/config"
	"github.com/aurablacklight/docker-dive-web-ui/lib/docker"
	"github.com/aurablacklight/docker-dive-web-ui/lib/inspect"
	"github.com/aurablacklight/docker-dive-web-ui/lib/providers"
)

// application struct to hold initialized components
type application struct {
	Ctx            context.Context
	Logger         *slog.Logger
	Config         *config.Config
	DockerClient   *docker.Client
	InspectManager inspect.Manager
	ApiService     *api.ApiService
}

// initializeApp is the injector function
func initializeApp() (*application, func(), error) {
	panic(wire.Build(
		providers.ProvideLogger,
		providers.ProvideContext,
		providers.ProvideConfig,
		providers.ProvideDockerClient,
		providers.ProvideRegistryChecker,
		providers.ProvideRunner,
		providers.ProvideRules,
		providers.ProvideInspectManager,
		api.New,
		wire.Struct(new(application), "*"),
	))
}
