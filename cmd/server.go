package main

import (
	"context"
	"net/http"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/gin-gonic/gin"
	"github.com/jerry-enebeli/filtertools/api"
	"github.com/jerry-enebeli/filtertools/config"
	"github.com/jerry-enebeli/filtertools/database"
	"github.com/jerry-enebeli/filtertools/internal/cache"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

/*
serveTLS starts an HTTPS server with TLS enabled using CertMagic for automatic certificate management.
If no domain is specified, the server will default to running on localhost.
*/
func serveTLS(ctx context.Context, r *gin.Engine, conf config.ServerConfig) error {
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = conf.Email
	cfg := certmagic.NewDefault()

	domains := []string{conf.Domain}
	if conf.Domain == "" {
		logrus.Warn("No domain specified, defaulting to localhost")
		domains = []string{"localhost"}
	}

	if err := cfg.ManageSync(ctx, domains); err != nil {
		return err
	}

	server := &http.Server{
		Addr:      ":" + conf.Port,
		Handler:   r,
		TLSConfig: cfg.TLSConfig(),
	}

	logrus.Infof("Starting HTTPS server on %s", conf.Port)
	if err := server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// initializeDataSource connects to the configured database. Without a
// data source the server still describes and compiles filter sets.
func initializeDataSource(ctx context.Context, cfg *config.Configuration) (database.IDataSource, error) {
	if cfg.DataSource.Dns == "" {
		logrus.Warn("no data source configured, row queries are disabled")
		return nil, nil
	}
	return database.NewDataSource(ctx, cfg)
}

func initializeRouter(ctx context.Context, app *filtertoolsInstance, db database.IDataSource) (*gin.Engine, error) {
	a := api.NewAPI(app.catalog, db, app.cnf)
	if app.cnf.Redis.Dns != "" {
		queryCache, err := cache.NewCache(ctx, app.cnf)
		if err != nil {
			return nil, err
		}
		a.UseCache(queryCache, time.Duration(app.cnf.Redis.CacheTTLSec)*time.Second)
	}
	return a.Router(), nil
}

func startServer(ctx context.Context, router *gin.Engine, cfg config.ServerConfig) error {
	if cfg.SSL {
		return serveTLS(ctx, router, cfg)
	}
	logrus.Infof("Starting server on http://localhost:%s", cfg.Port)
	return router.Run(":" + cfg.Port)
}

// serverCommands returns the command that serves the catalog over HTTP.
func serverCommands(app *filtertoolsInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start filtertools server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := initializeDataSource(ctx, app.cnf)
			if err != nil {
				return err
			}

			router, err := initializeRouter(ctx, app, db)
			if err != nil {
				return err
			}
			return startServer(ctx, router, app.cnf.Server)
		},
	}

	return cmd
}
