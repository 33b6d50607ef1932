// @title PPNS Hub API
// @version 1.0
// @description Push/pull notification hub: publish JSON or XML messages into
// @description named boxes; consumers either poll a box or register an
// @description HTTPS callback the hub invokes on their behalf.
// @host localhost:8080
// @BasePath /
// @schemes http
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/agusu/ppns-hub/docs"

	"github.com/agusu/ppns-hub/cmd/api/middleware"
	"github.com/agusu/ppns-hub/config"
	"github.com/agusu/ppns-hub/controllers"
	"github.com/agusu/ppns-hub/cryptoutil"
	"github.com/agusu/ppns-hub/events"
	"github.com/agusu/ppns-hub/gateway"
	"github.com/agusu/ppns-hub/services/boxes"
	"github.com/agusu/ppns-hub/services/callback"
	"github.com/agusu/ppns-hub/services/clients"
	"github.com/agusu/ppns-hub/services/delivery"
	"github.com/agusu/ppns-hub/services/notifications"
	"github.com/agusu/ppns-hub/services/push"
	"github.com/agusu/ppns-hub/services/retrysweep"
	"github.com/agusu/ppns-hub/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load(".env", "../../.env", "../.env")
	if err != nil {
		log.Fatalw("config: missing required configuration", "error", err)
	}

	db, err := storage.NewConnection(storage.Config{
		Driver:   getenvDefault("DB_DRIVER", "mysql"),
		Host:     os.Getenv("MYSQL_HOST"),
		Port:     os.Getenv("MYSQL_PORT"),
		User:     os.Getenv("MYSQL_USER"),
		Password: os.Getenv("MYSQL_PASSWORD"),
		DBName:   os.Getenv("MYSQL_DB"),
	})
	if err != nil {
		log.Fatalw("storage: connecting to database", "error", err)
	}

	cipher, err := cryptoutil.NewCipher(cfg.MessageEncryptionKeys)
	if err != nil {
		log.Fatalw("cryptoutil: building cipher", "error", err)
	}

	boxRegistry := boxes.New(db)
	clientRegistry := clients.New(db)
	notificationStore := notifications.New(db, cipher, log, cfg.NumberOfNotificationsToRetrievePerRequest)

	gatewayClient := gateway.NewHTTPClient(cfg.OutboundNotificationsURL, cfg.GatewayAuthToken, cfg.GatewayCallTimeout)
	eventsSink := events.NewHTTPSink(cfg.APIPlatformEventsURL, cfg.GatewayCallTimeout)

	dispatcher := push.New(clientRegistry, gatewayClient, log)
	coordinator := delivery.New(boxRegistry, notificationStore, dispatcher, log, cfg.GatewayCallTimeout)
	validator := callback.New(boxRegistry, gatewayClient, eventsSink, log)

	schedule := make([]time.Duration, len(cfg.RetryIntervalSchedule))
	for i, step := range cfg.RetryIntervalSchedule {
		schedule[i] = step.Delay
	}
	sweeper := retrysweep.New(notificationStore, dispatcher, log, schedule, cfg.RetryWindow, cfg.SweepInterval, cfg.GatewayCallTimeout)

	ttlReaper := storage.NewTTLReaper(db, log, cfg.NotificationTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx)
	go ttlReaper.Run(ctx, time.Minute)
	go func() {
		if err := config.Watch(ctx, log, ".env", func(newCfg *config.Config) {
			ttlReaper.SetTTL(newCfg.NotificationTTL)
		}); err != nil {
			log.Warnw("config: watch failed to start", "error", err)
		}
	}()

	boxController := controllers.NewBoxController(boxRegistry)
	notificationController := controllers.NewNotificationController(coordinator, notificationStore)
	callbackController := controllers.NewCallbackController(validator)

	router := gin.Default()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	SetupRoutes(router, boxController, notificationController, callbackController, middleware.UserAgentAllowList(cfg.WhitelistedUserAgents))

	srv := &http.Server{Addr: ":8080", Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("api: server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
