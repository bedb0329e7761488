package providers

import (
	"context"
	"log/slog"
	"os"

	"github.com/aurablacklight/docker-dive-web-ui/cmd/api/config"
	"github.com/aurablacklight/docker-dive-web-ui/lib/dive"
	"github.com/aurablacklight/docker-dive-web-ui/lib/docker"
	"github.com/aurablacklight/docker-dive-web-ui/lib/inspect"
	"github.com/aurablacklight/docker-dive-web-ui/lib/logger"
	"github.com/aurablacklight/docker-dive-web-ui/lib/otel"
	"github.com/aurablacklight/docker-dive-web-ui/lib/registry"
)

// ProvideLogger provides a structured logger. When the OTel log
// handler has been installed it receives every record alongside the
// stdout JSON handler.
func ProvideLogger() *slog.Logger {
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	if otelHandler := otel.GetGlobalLogHandler(); otelHandler != nil {
		return slog.New(logger.NewMultiHandler(jsonHandler, otelHandler))
	}
	return slog.New(jsonHandler)
}

// ProvideContext provides a context with logger attached
func ProvideContext(log *slog.Logger) context.Context {
	return logger.AddToContext(context.Background(), log)
}

// ProvideConfig provides the application configuration
func ProvideConfig() (*config.Config, error) {
	return config.Load()
}

// ProvideDockerClient provides the Docker engine client
func ProvideDockerClient() (*docker.Client, func(), error) {
	cli, err := docker.NewClient()
	if err != nil {
		return nil, nil, err
	}
	return cli, func() { cli.Close() }, nil
}

// ProvideRegistryChecker provides the remote registry checker
func ProvideRegistryChecker() *registry.Checker {
	return registry.NewChecker()
}

// ProvideRunner provides the dive analyzer
func ProvideRunner(cfg *config.Config) dive.Analyzer {
	return dive.NewRunner(cfg.DivePath, cfg.DiveTimeout, cfg.MaxReportSize)
}

// ProvideRules loads the optional CI rules file
func ProvideRules(cfg *config.Config) (*inspect.RuleSet, error) {
	return inspect.LoadRules(cfg.RulesFile)
}

// ProvideInspectManager provides the inspection manager
func ProvideInspectManager(cfg *config.Config, analyzer dive.Analyzer, cli *docker.Client, checker *registry.Checker, rules *inspect.RuleSet) (inspect.Manager, error) {
	return inspect.NewManager(analyzer, cli, checker, inspect.Options{
		MaxConcurrent: cfg.MaxConcurrentInspections,
		ProgressTTL:   cfg.ProgressTTL,
		CacheSize:     cfg.ResultCacheSize,
		Rules:         rules,
	})
}
