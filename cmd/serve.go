package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/yeremiapane/restaurant-reservation/config"
	"github.com/yeremiapane/restaurant-reservation/database"
	"github.com/yeremiapane/restaurant-reservation/kds"
	"github.com/yeremiapane/restaurant-reservation/queue"
	"github.com/yeremiapane/restaurant-reservation/router"
	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the hold sweeper and the payment consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("migrate") {
				migrateUp = cfg.AutoMigrate
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if cfg.GinMode == gin.ReleaseMode {
				gin.SetMode(gin.ReleaseMode)
			}

			db, err := config.InitDB(cfg)
			if err != nil {
				return err
			}
			if migrateUp {
				if err := database.AutoMigrate(db); err != nil {
					return err
				}
				utils.InfoLogger.Info("AutoMigrate completed")
			}

			rdb := config.NewRedisClient(cfg)
			if rdb != nil {
				defer rdb.Close()
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			hub := kds.NewHub()
			notifier := services.MultiNotifier{hub}
			if cfg.RabbitMQURL != "" {
				rabbit := queue.NewRabbitNotifier(cfg.RabbitMQURL, "", 0)
				rabbit.Start()
				defer rabbit.Stop()
				notifier = append(notifier, rabbit)
			}
			if len(cfg.KafkaBrokers) > 0 {
				events := queue.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
				defer events.Close()
				notifier = append(notifier, events)
			}

			core := services.NewCore(database.NewGormStore(db), services.Options{
				Notifier:       notifier,
				Metrics:        services.NewMetrics(registry),
				Redis:          rdb,
				PolicyCacheTTL: cfg.PolicyCacheTTL,
				SweepInterval:  cfg.SweepInterval,
			})
			core.Sweeper.Start()
			defer core.Sweeper.Stop()

			midtrans := services.NewMidtransService(services.MidtransConfig{
				ServerKey:    cfg.MidtransServerKey,
				IsProduction: cfg.MidtransProduction,
				BaseURL:      cfg.MidtransBaseURL,
			})
			if err := midtrans.ValidateConfig(); err != nil {
				utils.ErrorLogger.WithError(err).Warn("payment webhooks will be rejected")
			}

			if len(cfg.KafkaBrokers) > 0 {
				consumer := queue.NewPaymentConsumer(cfg.KafkaBrokers, cfg.KafkaPaymentsTopic, cfg.KafkaGroupID, core.Payments)
				defer consumer.Close()
				go func() {
					if err := consumer.Run(ctx); err != nil {
						utils.ErrorLogger.WithError(err).Error("payment consumer stopped")
					}
				}()
			}

			engine := router.SetupRouter(router.Deps{
				Core:              core,
				Hub:               hub,
				Midtrans:          midtrans,
				Gatherer:          registry,
				PublicBaseURL:     cfg.PublicBaseURL,
				AllowedOrigins:    cfg.CORSAllowedOrigins,
				RequestsPerSecond: float64(cfg.RateLimitRPS),
			})
			handler := cors.New(cors.Options{
				AllowedOrigins:   cfg.CORSAllowedOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
				AllowedHeaders:   []string{"Authorization", "Content-Type"},
				AllowCredentials: true,
			}).Handler(engine)

			return serveHTTP(ctx, ":"+cfg.Port, handler)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "run database migrations on startup (default DB_AUTO_MIGRATE)")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}

// serveHTTP runs until ctx is cancelled, then drains in-flight requests.
func serveHTTP(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			utils.ErrorLogger.WithError(err).Error("http shutdown")
		}
	}()

	utils.InfoLogger.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
