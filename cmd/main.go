package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-pm/internal/auth"
	"github.com/ukydev/maintenance-pm/internal/config"
	"github.com/ukydev/maintenance-pm/internal/db"
	"github.com/ukydev/maintenance-pm/internal/escalation"
	"github.com/ukydev/maintenance-pm/internal/handlers"
	"github.com/ukydev/maintenance-pm/internal/middleware"
	"github.com/ukydev/maintenance-pm/internal/notify"
	"github.com/ukydev/maintenance-pm/internal/pm"
	"github.com/ukydev/maintenance-pm/internal/policy"
)

const shutdownTimeout = 30 * time.Second

// app is the wired engine: background loops plus the HTTP surface.
type app struct {
	automation *pm.Automation
	runner     *escalation.Runner
	handler    http.Handler
}

func newLogger(level, format string) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(os.Stdout)
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logger.SetLevel(lvl)
	switch format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", format)
	}
	return logger, nil
}

func policyDefaults(cfg *config.Config) policy.Defaults {
	d := policy.StandardDefaults()
	d.LeadTimeDays = cfg.LeadTimeDays
	d.MaxConcurrentPMs = cfg.MaxConcurrentPMs
	d.ComplianceTarget = cfg.ComplianceTarget
	return d
}

// newApp wires the services on top of store. publisher may be nil.
func newApp(cfg *config.Config, store db.Store, publisher notify.Publisher, logger *log.Logger) *app {
	policies := policy.NewStore(store, policyDefaults(cfg))

	calculator := pm.NewCalculator(store, policies, logger.WithField("component", "compliance"))
	generator := pm.NewGenerator(store, policies, logger.WithField("component", "scheduler"))
	automation := pm.NewAutomation(generator, store, policies, cfg.AutomationInterval(), logger.WithField("component", "pm_automation"))

	dispatcher := notify.NewDispatcher(store, publisher, cfg.MQTTTopicPrefix, logger.WithField("component", "notify"))
	controller := escalation.NewController(store, policies, dispatcher, calculator, logger.WithField("component", "escalation"))
	runner := escalation.NewRunner(controller, store, cfg.EscalationInterval(), cfg.ComplianceEscalationInterval(), logger.WithField("component", "escalation_runner"))

	authService := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	httpLogger := logger.WithField("component", "http")
	router := &handlers.Router{
		PM:         handlers.NewPMHandler(automation, calculator, generator, httpLogger),
		Escalation: handlers.NewEscalationHandler(controller, runner, httpLogger),
		Policy:     handlers.NewPolicyHandler(policies, httpLogger),
		Auth:       middleware.NewAuthMiddleware(authService, httpLogger),
	}
	if cfg.RateLimitRequests > 0 && cfg.RateLimitWindowSeconds > 0 {
		router.RateLimit = middleware.NewRateLimitMiddleware(cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindowSeconds)*time.Second)
	}

	return &app{
		automation: automation,
		runner:     runner,
		handler:    router.Handler(),
	}
}

// shutdown stops the background loops, waiting for in-flight passes.
func (a *app) shutdown(ctx context.Context) error {
	return errors.Join(a.automation.Shutdown(ctx), a.runner.Shutdown(ctx))
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx := context.Background()
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.WithError(err).Warn("MongoDB disconnect failed")
		}
	}()
	store := db.NewMongoStore(client.Database(cfg.MongoDB))
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("Failed to create indexes: %v", err)
	}
	logger.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	var publisher notify.Publisher
	if cfg.MQTTBroker != "" {
		mqttClient, err := notify.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID, 10*time.Second)
		if err != nil {
			logger.Fatalf("Failed to connect to MQTT: %v", err)
		}
		defer mqttClient.Disconnect(250)
		publisher = mqttClient
		logger.WithField("broker", cfg.MQTTBroker).Info("Publishing notifications over MQTT")
	} else {
		logger.Info("MQTT_BROKER not set, notifications are stored only")
	}

	a := newApp(cfg, store, publisher, logger)
	if cfg.AutomationAutostart {
		a.automation.Start()
	}
	a.runner.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Shutting down")
	case err := <-serverErr:
		if err != nil {
			logger.WithError(err).Error("HTTP server failed")
		}
	}
	signal.Stop(sigCh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown incomplete")
	}
	if err := a.shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Background loops did not stop in time")
	}
	logger.Info("Stopped")
}
