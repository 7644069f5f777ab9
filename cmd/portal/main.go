package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	logjson "github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nagrik-gov/portal/internal/alert"
	"github.com/nagrik-gov/portal/internal/directory"
	"github.com/nagrik-gov/portal/internal/geocode"
	"github.com/nagrik-gov/portal/internal/localcache"
	"github.com/nagrik-gov/portal/internal/media"
	"github.com/nagrik-gov/portal/internal/notification"
	"github.com/nagrik-gov/portal/internal/report/api"
	"github.com/nagrik-gov/portal/internal/report/domain"
	"github.com/nagrik-gov/portal/internal/report/remote"
	"github.com/nagrik-gov/portal/internal/report/service"
	"github.com/nagrik-gov/portal/internal/report/store"
	reportsync "github.com/nagrik-gov/portal/internal/report/sync"
	"github.com/nagrik-gov/portal/internal/shared/auth"
	"github.com/nagrik-gov/portal/internal/shared/config"
	"github.com/nagrik-gov/portal/internal/shared/database"
	"github.com/nagrik-gov/portal/internal/shared/metrics"
	secmiddleware "github.com/nagrik-gov/portal/internal/shared/middleware"
	"github.com/nagrik-gov/portal/internal/ws"
)

// App holds the long-lived application dependencies.
type App struct {
	Config *config.Config
	DB     *database.DB
	Feed   *remote.Feed
	Cache  *localcache.Cache
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Server.Env == "production" {
		log.SetHandler(logjson.New(os.Stdout))
	} else {
		log.SetHandler(text.New(os.Stdout))
	}

	app := &App{Config: cfg}

	// Remote Postgres is a replication target, not a dependency. The portal
	// runs fully from memory when it is unreachable.
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Printf("Warning: Database not available: %v\n", err)
		fmt.Println("Running local-only without remote replication...")
	} else {
		app.DB = db
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool); err != nil {
			fmt.Printf("Warning: Migration failed: %v\n", err)
		}
	}

	// Same for the EventStoreDB change feed.
	feed, err := remote.NewFeed(cfg.EventStore, uuid.NewString())
	if err != nil {
		fmt.Printf("Warning: EventStoreDB not available: %v\n", err)
		fmt.Println("Running without the live change feed...")
	} else {
		app.Feed = feed
		defer feed.Close()
		fmt.Println("EventStoreDB change feed initialized")
	}

	cache, err := localcache.Open(cfg.Cache.Path)
	if err != nil {
		fmt.Printf("Warning: Local cache not available: %v\n", err)
	} else {
		app.Cache = cache
		defer cache.Close()
	}

	mediaFS, err := media.NewFS(cfg.Media)
	if err != nil {
		fmt.Printf("Warning: Media storage not available: %v\n", err)
	}

	router := domain.NewRouter()
	if cfg.Routing.OverridesPath != "" {
		router, err = domain.NewRouterFromFile(cfg.Routing.OverridesPath)
		if err != nil {
			fmt.Printf("Warning: Routing overrides not loaded: %v\n", err)
			router = domain.NewRouter()
		}
	}

	reports := store.New()
	notifications := notification.NewLog()

	var cacher geocode.Cacher
	if app.Cache != nil {
		cacher = app.Cache
	}
	geo := geocode.New(cfg.Geocode, cacher)

	var sender alert.Sender
	if s := alert.NewSendGridSender(cfg.Alerts); s != nil {
		sender = s
	}
	alerts := alert.NewDispatcher(cfg.Alerts, sender)

	hub := ws.NewHub()
	go hub.Run()

	svcOpts := service.Options{
		Store:  reports,
		Log:    notifications,
		Router: router,
		Geo:    geo,
		Alerts: alerts,
		Hub:    hub,
	}
	rcOpts := reportsync.Options{
		Store: reports,
		Log:   notifications,
	}

	var dirSvc *directory.Service
	if app.DB != nil {
		repo := remote.NewRepository(app.DB)
		svcOpts.Remote = repo
		rcOpts.Repo = repo
		dirSvc = directory.New(app.DB)
	}
	if app.Feed != nil {
		svcOpts.Feed = app.Feed
		rcOpts.Feed = app.Feed
	}
	if app.Cache != nil {
		rcOpts.Cache = app.Cache
	}
	if mediaFS != nil {
		svcOpts.Media = mediaFS
		rcOpts.Media = mediaFS
	}

	svc := service.New(svcOpts)
	rc := reportsync.New(rcOpts)

	// Pull the remote state in before serving, then keep reconciling in the
	// background for as long as the process runs.
	rc.Bootstrap(ctx)
	runCtx, stop := context.WithCancel(ctx)
	rc.Start(runCtx)

	handler := api.NewHandler(svc, dirSvc, hub)
	limiter := secmiddleware.NewIPRateLimiter(5, 10)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/", infoHandler)

	if mediaFS != nil {
		prefix := cfg.Media.PublicBaseURL
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(mediaFS.Dir()))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Mount("/", handler.PublicRoutes())
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Auth))
			r.Mount("/staff", handler.StaffRoutes())
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}

		// Stop the reconciler and let in-flight replication drain before
		// the deferred Close calls run.
		stop()
		svc.Wait()
		rc.Wait()
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("Nagrik Civic Issue Portal")
	fmt.Println("============================================")
	fmt.Printf("Environment:    %s\n", cfg.Server.Env)
	fmt.Printf("Server:         http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:            http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:         http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("Database:       %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	fmt.Printf("EventStore:     %s:%d\n", cfg.EventStore.Host, cfg.EventStore.Port)
	fmt.Printf("Alert emails:   %v\n", cfg.Alerts.Enabled)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Nagrik Civic Issue Portal",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		if app.Feed != nil {
			if err := app.Feed.Health(); err != nil {
				checks["eventstore"] = "not ready: " + err.Error()
			} else {
				checks["eventstore"] = "ready"
			}
		} else {
			checks["eventstore"] = "not configured"
		}

		// The in-memory store is authoritative, so a missing replication
		// target never makes the portal unready.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ready",
			"checks": checks,
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
