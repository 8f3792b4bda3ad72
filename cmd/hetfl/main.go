package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"

	"github.com/absmach/hetfl/cli"
	"github.com/absmach/hetfl/experiment"
	hetflprometheus "github.com/absmach/hetfl/pkg/prometheus"
	flserver "github.com/absmach/hetfl/server"
	"github.com/absmach/hetfl/server/middleware"
	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName          = "hetfl"
	pathEnv          = ".env"
	envPrefixMetrics = "HETFL_METRICS_"
)

type envConfig struct {
	LogLevel   string  `env:"HETFL_LOG_LEVEL"   envDefault:"info"`
	InstanceID string  `env:"HETFL_INSTANCE_ID"`
	OTELURL    url.URL `env:"HETFL_OTEL_URL"`
	TraceRatio float64 `env:"HETFL_TRACE_RATIO" envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	expCfg := experiment.Config{}
	if err := env.ParseWithOptions(&expCfg, env.Options{Prefix: experiment.EnvPrefix}); err != nil {
		log.Fatalf("failed to load experiment configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler).With(slog.String("instance_id", cfg.InstanceID))
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	counter, latency := prometheus.MakeMetrics(svcName, "server")
	progress := hetflprometheus.MakeProgress(svcName, "server")
	decorate := func(svc flserver.Service) flserver.Service {
		svc = middleware.Logging(logger, svc)
		svc = middleware.Tracing(tracer, svc)

		return middleware.Metrics(counter, latency, progress, svc)
	}
	cli.SetRunner(func(ctx context.Context, c experiment.Config) (experiment.Results, error) {
		return experiment.Run(ctx, c, logger, decorate)
	})

	metricsCfg := server.Config{}
	if err := env.ParseWithOptions(&metricsCfg, env.Options{Prefix: envPrefixMetrics}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s metrics server configuration : %s", svcName, err.Error()))

		return
	}

	var servers []server.Server
	if hs := newMetricsServer(ctx, cancel, metricsCfg, logger); hs != nil {
		servers = append(servers, hs)
		g.Go(func() error {
			return hs.Start()
		})
	}

	rootCmd := &cobra.Command{
		Use:   "hetfl",
		Short: "Heterogeneous federated learning",
		Long:  `hetfl simulates FedAvg, HeteroFL and FedDrop training across clients with partitioned data and sub-models.`,
	}
	rootCmd.AddCommand(cli.NewRunCmd(&expCfg))
	rootCmd.AddCommand(cli.NewAllocationsCmd())
	rootCmd.AddCommand(cli.NewCheckpointsCmd())

	g.Go(func() error {
		defer cancel()

		return rootCmd.ExecuteContext(ctx)
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, servers...)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s exited with error: %s", svcName, err))
	}
}

// newMetricsServer serves prometheus metrics when a port is configured. The
// server stops once ctx is cancelled.
func newMetricsServer(ctx context.Context, cancel context.CancelFunc, cfg server.Config, logger *slog.Logger) server.Server {
	if cfg.Port == "" {
		return nil
	}

	return httpserver.NewServer(ctx, cancel, svcName, cfg, promhttp.Handler(), logger)
}
