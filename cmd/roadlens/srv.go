package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"roadlens/internal/auth"
	"roadlens/internal/blobstore"
	"roadlens/internal/config"
	"roadlens/internal/provider"
	"roadlens/internal/server"
	"roadlens/internal/store"
)

const (
	s3AccessKeyEnvKey = "ROADLENS_S3_ACCESS_KEY"
	s3SecretKeyEnvKey = "ROADLENS_S3_SECRET_KEY"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the roadlens API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := serverLogger(slog.Default(), cfg)
			srv, cleanup, err := buildServer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			return srv.Run(ctx)
		},
	}
}

// buildServer wires the store, provider and metrics described by cfg.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*server.Server, func(), error) {
	addr, err := server.ListenAddr(cfg.APIURL)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ValidateProvider(); err != nil {
		return nil, nil, err
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = st.Close() }

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	backend, err := buildBackend(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	observer, err := provider.NewPrometheusObserver("roadlens", registry)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	metrics, err := server.NewMetrics(registry)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var tokens *auth.TokenIssuer
	if strings.TrimSpace(cfg.Auth.JWTSecret) != "" {
		tokens, err = auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	} else {
		logger.Warn("no jwt secret configured; bearer tokens are disabled")
	}

	logger.Info("photo provider ready", "kind", cfg.Provider.Kind, "delivery_base", backend.deliveryBase)
	srv, err := server.New(server.Options{
		Addr:            addr,
		Store:           st,
		Uploader:        provider.Instrument(backend.uploader, observer),
		ProviderName:    cfg.Provider.Kind,
		Media:           backend.media,
		DeliveryBaseURL: backend.deliveryBase,
		ThumbnailWidth:  cfg.Photos.ThumbnailWidth,
		ThumbnailHeight: cfg.Photos.ThumbnailHeight,
		Tokens:          tokens,
		TrustUserHeader: cfg.Auth.TrustUserHeader,
		AdminTokenHash:  cfg.Auth.AdminTokenHash,
		Metrics:         metrics,
		Logger:          logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return srv, cleanup, nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	dialect, err := store.ParseDialect(cfg.DB.Driver)
	if err != nil {
		return nil, err
	}
	if dialect == store.DialectPostgres {
		logger.Info("opening database", "driver", dialect)
		return store.OpenPostgres(cfg.DB.DSN)
	}
	if cfg.DB.Path == "" {
		return nil, fmt.Errorf("db path is required")
	}
	logger.Info("opening database", "driver", dialect, "path", cfg.DB.Path)
	return store.Open(cfg.DB.Path)
}

type backend struct {
	uploader     provider.Uploader
	media        blobstore.ObjectStore
	deliveryBase string
}

func buildBackend(ctx context.Context, cfg *config.Config) (backend, error) {
	p := cfg.Provider
	timeout := p.Timeout.Duration

	switch p.Kind {
	case config.ProviderHosted:
		uploader, err := provider.NewHostedUploader(provider.HostedConfig{
			UploadURL:         p.UploadURL,
			UploadPreset:      p.UploadPreset,
			PresetFixesFolder: p.PresetFixesFolder,
			Timeout:           timeout,
		})
		if err != nil {
			return backend{}, err
		}
		return backend{uploader: uploader, deliveryBase: p.DeliveryBaseURL}, nil

	case config.ProviderS3:
		client, err := provider.NewS3Client(ctx, provider.S3ClientConfig{
			Region:    p.S3Region,
			Endpoint:  p.S3Endpoint,
			AccessKey: os.Getenv(s3AccessKeyEnvKey),
			SecretKey: os.Getenv(s3SecretKeyEnvKey),
		})
		if err != nil {
			return backend{}, err
		}
		uploader, err := provider.NewS3Uploader(client, provider.S3Config{
			Bucket:        p.S3Bucket,
			PublicBaseURL: p.S3PublicBaseURL,
			Timeout:       timeout,
		})
		if err != nil {
			return backend{}, err
		}
		return backend{uploader: uploader, deliveryBase: p.DeliveryBaseURL}, nil

	case config.ProviderLocal:
		objects, err := blobstore.NewLocalObjects(p.MediaDir)
		if err != nil {
			return backend{}, err
		}
		mediaBase := strings.TrimRight(cfg.APIURL, "/") + "/media"
		uploader, err := provider.NewLocalUploader(objects, provider.LocalConfig{
			MediaBaseURL: mediaBase,
			Timeout:      timeout,
		})
		if err != nil {
			return backend{}, err
		}
		return backend{uploader: uploader, media: objects, deliveryBase: mediaBase}, nil

	default:
		return backend{}, fmt.Errorf("unknown provider kind %q", p.Kind)
	}
}
