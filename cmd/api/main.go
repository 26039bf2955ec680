package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golinks.org/internal/authz"
	"golinks.org/internal/config"
	"golinks.org/internal/events"
	"golinks.org/internal/httpapi"
	"golinks.org/internal/link"
	"golinks.org/internal/obs"
	"golinks.org/internal/session"
	"golinks.org/internal/store/pg"
	"golinks.org/internal/transfer"
	"golinks.org/internal/user"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		obs.Log(map[string]any{"level": "fatal", "msg": "configuration error", "error": err.Error()})
		os.Exit(1)
	}

	var (
		linkStore link.Store
		userStore user.Store
		probe     httpapi.ReadyProbe
	)
	if cfg.PostgresDSN != "" {
		store, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			obs.Log(map[string]any{"level": "fatal", "msg": "open postgres", "error": err.Error()})
			os.Exit(1)
		}
		defer store.Close()
		linkStore = store
		userStore = store
		probe = httpapi.ReadyProbe{DB: store.DB()}
		obs.Log(map[string]any{"level": "info", "msg": "using postgres store"})
	} else {
		linkStore = link.NewInMemory()
		userStore = user.NewInMemory()
		obs.Log(map[string]any{"level": "warn", "msg": "no DATABASE_URL set, using in-memory store"})
	}

	secret := []byte(cfg.SessionsSecret)

	linkSvc, err := link.NewService(linkStore)
	if err != nil {
		fatal("link service", err)
	}
	auth, err := authz.NewAuthorizer(linkStore, userStore)
	if err != nil {
		fatal("authorizer", err)
	}
	codec, err := transfer.NewCodec(secret)
	if err != nil {
		fatal("transfer codec", err)
	}
	transfers, err := transfer.NewService(codec, linkStore, userStore, auth)
	if err != nil {
		fatal("transfer service", err)
	}
	sessions, err := session.NewManager(secret)
	if err != nil {
		fatal("session manager", err)
	}

	api := httpapi.New(probe, version, cfg.BaseURL,
		linkSvc, userStore, auth, transfers, sessions, events.New())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // SSE connections stay open
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Log(map[string]any{"level": "info", "msg": "server listening", "addr": cfg.Addr, "version": version})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Log(map[string]any{"level": "fatal", "msg": "server failed", "error": err.Error()})
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	obs.Log(map[string]any{"level": "info", "msg": "shutting down"})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		obs.Log(map[string]any{"level": "error", "msg": "graceful shutdown failed", "error": err.Error()})
	}
}

func fatal(what string, err error) {
	obs.Log(map[string]any{"level": "fatal", "msg": what + " init failed", "error": err.Error()})
	os.Exit(1)
}
