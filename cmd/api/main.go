package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"receiving/internal/audit"
	"receiving/internal/booking"
	"receiving/internal/client"
	"receiving/internal/docstore"
	"receiving/internal/events"
	"receiving/internal/httpapi"
	"receiving/pkg/config"
	"receiving/pkg/db"
	"receiving/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		logger.LogError(log, "main", "openStore", cfg.DocStore, err)
		os.Exit(1)
	}
	defer closeStore()

	var directory client.Directory = client.NewDocDirectory(store)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, client lookups will hit the store")
		}
		directory = client.NewCachedDirectory(rdb, directory, cfg.Redis.ClientTTL, log)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQP.URL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logger.LogError(log, "main", "NewAMQPPublisher", cfg.AMQP.Exchange, err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
	}

	svc := &booking.Service{
		Bookings: booking.NewRepository(store),
		Clients:  directory,
		Events:   publisher,
		Log:      log,
		Audit:    audit.NewRepository(store),
		Location: cfg.Location(),
	}

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:      cfg,
		Log:      log,
		Bookings: svc,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "docstore": cfg.DocStore}).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError(log, "main", "ListenAndServe", cfg.HTTPAddr, err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (docstore.Store, func(), error) {
	switch cfg.DocStore {
	case "memory":
		if cfg.AppEnv == "prod" {
			return nil, nil, fmt.Errorf("memory docstore is not allowed in prod")
		}
		m := docstore.NewMemory()
		// Local runs have no client management; seed one to book against.
		if err := m.Put(client.Collection, "dev-client", client.Client{Name: "Dev Client", TaxID: "00000000000191"}); err != nil {
			return nil, nil, err
		}
		log.Info("using in-memory docstore with client dev-client")
		return m, func() {}, nil
	case "postgres", "":
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("db open: %w", err)
		}
		if cfg.MigrationsPath != "" {
			if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return docstore.NewPostgres(conn), conn.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown DOCSTORE %q", cfg.DocStore)
	}
}
