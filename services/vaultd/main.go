package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	vaultconfig "github.com/lidofinance/anchor-collateral-steth/config"
	"github.com/lidofinance/anchor-collateral-steth/core/events"
	"github.com/lidofinance/anchor-collateral-steth/native/vault"
	"github.com/lidofinance/anchor-collateral-steth/observability"
	"github.com/lidofinance/anchor-collateral-steth/observability/logging"
	"github.com/lidofinance/anchor-collateral-steth/observability/metrics"
	telemetry "github.com/lidofinance/anchor-collateral-steth/observability/otel"
	"github.com/lidofinance/anchor-collateral-steth/services/vaultd/config"
	"github.com/lidofinance/anchor-collateral-steth/services/vaultd/devnet"
	"github.com/lidofinance/anchor-collateral-steth/services/vaultd/journal"
	"github.com/lidofinance/anchor-collateral-steth/services/vaultd/keeper"
	"github.com/lidofinance/anchor-collateral-steth/services/vaultd/server"
	"github.com/lidofinance/anchor-collateral-steth/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/vaultd/config.yaml", "path to vaultd configuration file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("vaultd: load config: %v", err)
	}
	env := strings.TrimSpace(cfg.Environment)
	if fromEnv := strings.TrimSpace(os.Getenv("ANCHOR_ENV")); fromEnv != "" {
		env = fromEnv
	}
	logger := logging.SetupWithOptions("vaultd", env, logging.Options{Level: cfg.LogLevel})
	otlpHeaders := telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	logger.Info("configuration loaded",
		slog.String("listen", cfg.ListenAddress),
		slog.String("vault_config", cfg.VaultConfig),
		logging.MaskField("bearer_token", cfg.Admin.BearerToken),
		logging.MaskHeaders(otlpHeaders))

	if cfg.Telemetry.Traces || cfg.Telemetry.Metrics {
		endpoint := strings.TrimSpace(cfg.Telemetry.Endpoint)
		if endpoint == "" {
			endpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
		}
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName:    "vaultd",
			Environment:    env,
			VaultAddress:   devnet.VaultAddress.Hex(),
			Endpoint:       endpoint,
			Insecure:       cfg.Telemetry.Insecure,
			Headers:        otlpHeaders,
			Metrics:        cfg.Telemetry.Metrics,
			Traces:         cfg.Telemetry.Traces,
			SampleRatio:    cfg.Telemetry.SampleRatio,
			MetricInterval: cfg.Telemetry.MetricInterval.Duration,
		})
		if err != nil {
			log.Fatalf("vaultd: init telemetry: %v", err)
		}
		defer func() { _ = shutdownTelemetry(context.Background()) }()
	}

	vaultCfg, err := vaultconfig.Load(cfg.VaultConfig)
	if err != nil {
		log.Fatalf("vaultd: load vault config: %v", err)
	}
	settings, err := vaultCfg.Resolve()
	if err != nil {
		log.Fatalf("vaultd: vault config: %v", err)
	}

	db, err := storage.Open(vaultCfg.Storage.Backend, vaultCfg.Storage.Path)
	if err != nil {
		log.Fatalf("vaultd: open state store: %v", err)
	}
	defer db.Close()

	dsn, err := journal.FileDSN(cfg.JournalPath)
	if err != nil {
		log.Fatalf("vaultd: resolve journal DSN: %v", err)
	}
	eventJournal, err := journal.Open(dsn, logger)
	if err != nil {
		log.Fatalf("vaultd: open journal: %v", err)
	}
	defer eventJournal.Close()

	dev, err := devnet.New(devnet.Options{
		Settings: settings,
		Emitter:  events.Fanout{eventJournal, observability.EventCounter{}},
		Store:    vault.NewStore(db),
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("vaultd: deploy: %v", err)
	}
	refresh := func() { metrics.Vault().Observe(dev.Snapshot()) }
	refresh()

	var collector *keeper.Keeper
	if !cfg.Keeper.Disabled {
		caller := settings.LiquidationsAdmin
		if raw := strings.TrimSpace(cfg.Keeper.Caller); raw != "" {
			if !common.IsHexAddress(raw) {
				log.Fatalf("vaultd: keeper caller %q is not an address", raw)
			}
			caller = common.HexToAddress(raw)
		}
		collector, err = keeper.New(dev, keeper.Config{
			Caller:             caller,
			Interval:           cfg.Keeper.Interval.Duration,
			MaxAttemptsPerHour: cfg.Keeper.MaxAttemptsPerHour,
			BaseDecimals:       dev.StETH.Decimals(),
			TargetDecimals:     dev.UST.Decimals(),
		}, keeper.WithLogger(logger.With("component", "keeper")), keeper.WithAfterTick(refresh))
		if err != nil {
			log.Fatalf("vaultd: keeper: %v", err)
		}
	}

	srvCfg := server.Config{
		ListenAddress: cfg.ListenAddress,
		BearerToken:   cfg.Admin.BearerToken,
		Vault:         dev,
		Events:        eventJournal,
		Refresh:       refresh,
		Logger:        logger,
	}
	if collector != nil {
		srvCfg.Keeper = collector
	}
	if strings.TrimSpace(cfg.Admin.BearerToken) != "" {
		srvCfg.Devnet = dev
	}
	srv, err := server.New(srvCfg)
	if err != nil {
		log.Fatalf("vaultd: server: %v", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if collector != nil {
		go func() {
			if err := collector.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("keeper exited", "error", err)
				stop()
			}
		}()
	}

	if err := srv.Run(rootCtx); err != nil {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}
}
