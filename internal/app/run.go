package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JorgeS15/AirLab/internal/config"
	"github.com/JorgeS15/AirLab/internal/db"
	"github.com/JorgeS15/AirLab/internal/db/migrate"
	"github.com/JorgeS15/AirLab/internal/httpapi"
	"github.com/JorgeS15/AirLab/internal/modules/digital"
	"github.com/JorgeS15/AirLab/internal/modules/pressure"
	pressureservice "github.com/JorgeS15/AirLab/internal/modules/pressure/service"
	pressuretypes "github.com/JorgeS15/AirLab/internal/modules/pressure/types"
	"github.com/JorgeS15/AirLab/internal/mqtt"
	"github.com/JorgeS15/AirLab/internal/ws"
)

func Run(ctx context.Context, cfg config.Config, version string) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"analogPath", cfg.AnalogPath,
		"digitalInputPath", cfg.DigitalInputPath,
		"digitalOutputPath", cfg.DigitalOutputPath,
		"offsetsPath", cfg.OffsetsPath,
		"channels", cfg.Channels,
		"filterWindow", cfg.FilterWindow,
		"sampleInterval", cfg.SampleInterval,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopicPrefix", cfg.MQTTTopicPrefix,
	)

	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	applied, err := migrate.Run(dbConn)
	if err != nil {
		return err
	}
	slog.Info("database ready", "migrations_applied", applied)

	mux := httpapi.NewMux(dbConn, version)

	feature := pressure.NewFeature(cfg, dbConn)
	pressure.RegisterFeature(mux, feature)

	gateway := digital.NewGateway(cfg)
	digital.RegisterFeature(mux, gateway)

	hub := ws.NewHub()
	hub.RegisterRoutes(mux)
	feature.Acquisition.OnSnapshot(func(s pressuretypes.Snapshot) { hub.Broadcast(s) })

	var mqttClient *mqtt.Client
	if cfg.MQTTEnabled {
		mqttClient = mqtt.NewClient(cfg, slog.Default().With("component", "mqtt"))
		// Attach before Connect so the command topic is subscribed on the first CONNACK.
		mqttClient.HandleOutputCommands(gateway)
		feature.Acquisition.OnSnapshot(func(s pressuretypes.Snapshot) {
			if err := mqttClient.PublishSnapshot(s); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
				slog.Warn("mqtt publish snapshot", "error", err)
			}
		})
		gateway.OnOutputs(mqttClient.QueueOutputs)
		// Seed the retained state; nothing can change outputs before the server starts.
		mqttClient.QueueOutputs(gateway.ReadOutputs())
	}

	srv := httpapi.NewServer(cfg, mux)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		hub.Close()
		if mqttClient != nil {
			slog.Info("mqtt disconnecting")
			mqttClient.Disconnect()
		}

		slog.Info("http shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if feature.Sampler != nil {
		g.Go(func() error {
			slog.Info("sampler started", "interval", cfg.SampleInterval)
			err := pressureservice.RunSampler(gctx, feature.Sampler, cfg.SampleInterval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if mqttClient != nil {
		g.Go(func() error {
			err := mqttClient.RunOutputPublisher(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})

		g.Go(func() error {
			// The broker being down must not take the bench offline.
			if err := mqttClient.Connect(gctx); err != nil && gctx.Err() == nil {
				slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
