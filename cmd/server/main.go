package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/terminal-bench/timevault/internal/config"
	"github.com/terminal-bench/timevault/internal/handlers"
	"github.com/terminal-bench/timevault/internal/journal"
	"github.com/terminal-bench/timevault/internal/middleware"
	"github.com/terminal-bench/timevault/internal/treasury"
	"github.com/terminal-bench/timevault/internal/vault"
	"github.com/terminal-bench/timevault/pkg/amount"
	"github.com/terminal-bench/timevault/pkg/messaging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opening := amount.Zero
	if cfg.Params.OpeningBalance != "" {
		opening, err = amount.Parse(cfg.Params.OpeningBalance)
		if err != nil {
			log.Fatalf("Invalid opening balance: %v", err)
		}
	}

	feed := handlers.NewEventFeed()
	sinks := []messaging.Publisher{feed}

	if cfg.NATSURL != "" {
		natsClient, err := messaging.NewClient(cfg.NATSURL, messaging.ClientOptions{
			Name:          "timevault",
			ReconnectWait: time.Second,
			MaxReconnects: 5,
		})
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsClient.Close()
		sinks = append(sinks, natsClient)
	}

	if cfg.DatabaseURL != "" {
		store, err := journal.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to open event journal: %v", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	v, err := vault.New(vault.Config{
		Owner:               vault.Principal(cfg.Params.Owner),
		EscapeCaller:        vault.Principal(cfg.Params.EscapeCaller),
		EscapeDestination:   vault.Principal(cfg.Params.EscapeDestination),
		AbsoluteMinTimeLock: cfg.Params.AbsoluteMinTimeLock,
		TimeLock:            cfg.Params.TimeLock,
		SecurityGuard:       vault.Principal(cfg.Params.SecurityGuard),
		MaxGuardDelay:       cfg.Params.MaxGuardDelay,
	}, treasury.SystemClock{}, treasury.NewMemory(opening), messaging.NewFanout(sinks...))
	if err != nil {
		log.Fatalf("Failed to initialize vault: %v", err)
	}

	var cache *handlers.PaymentCache
	if cfg.RedisURL != "" {
		cache, err = handlers.NewPaymentCache(cfg.RedisURL, 30*time.Second)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer cache.Close()
	}

	h := handlers.NewHandler(v, cache)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS)

	r := gin.Default()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "network": cfg.Network})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret), middleware.RateLimit(limiter))
	h.Register(api)
	api.GET("/events/ws", feed.Handle)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Fatalf("Failed to bind %s: %v", srv.Addr, err)
	}

	// The port is bound; record where this instance lives for the
	// selected network.
	store := config.NewDeploymentStore(cfg.EnvFile)
	address := fmt.Sprintf("http://localhost:%s", cfg.Port)
	if err := store.Record(cfg.Network, address); err != nil {
		log.Printf("Failed to record deployment address: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Printf("timevault listening on %s (network %s)", address, cfg.Network)
	if err := g.Wait(); err != nil {
		log.Printf("Server exited with error: %v", err)
		os.Exit(1)
	}
}
