// Command sqlbridge serves one database connection over HTTP.
//
//	sqlbridge -config sqlbridge.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/sqlbridge/internal/config"
	"github.com/koustreak/sqlbridge/internal/database"
	"github.com/koustreak/sqlbridge/internal/export"
	"github.com/koustreak/sqlbridge/internal/filestore/minio"
	"github.com/koustreak/sqlbridge/internal/gateway"
	"github.com/koustreak/sqlbridge/internal/logger"
)

func main() {
	path := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.ErrorWith("sqlbridge stopped", err, nil)
		os.Exit(1)
	}
	log.Info("sqlbridge stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	ad, err := database.Open(ctx, cfg.Adapter, log)
	if err != nil {
		return err
	}
	defer func() {
		// The serving context is gone by now; closing still has to wait for
		// in-flight work on the connection.
		if err := ad.Close(context.Background()); err != nil {
			log.WarnWith("close failed", err, nil)
		}
	}()

	var exp gateway.Exporter
	if cfg.Export.Enabled {
		store, err := minio.New(ctx, cfg.Export)
		if err != nil {
			return err
		}
		defer store.Close()

		e := export.New(store, cfg.Export, log)
		if err := e.Prepare(ctx); err != nil {
			return err
		}
		exp = e
		log.InfoWith("export sink ready", map[string]any{
			"endpoint": cfg.Export.Endpoint,
			"bucket":   cfg.Export.Bucket,
		})
	}

	return gateway.New(cfg.Gateway, ad, exp, log).Run(ctx)
}
