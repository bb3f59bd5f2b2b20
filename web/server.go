package web

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"tripsplit/auth"
	"tripsplit/config"
	dbt "tripsplit/db/db"
	"tripsplit/db/mem"
	"tripsplit/db/pg"
	"tripsplit/libs/logging"
	"tripsplit/mq/gcppubsub"
	"tripsplit/mq/goch"
	"tripsplit/mq/mq"
	"tripsplit/mq/rabbit"
	"tripsplit/trip"
)

// ServiceConfig selects the runtime shape of the server. Dev mode swaps the
// database for the in-memory store so the server runs without Postgres.
type ServiceConfig struct {
	IsDev  bool
	Port   string
	MqMode mq.Mode
}

func buildMessageQueue(mode mq.Mode) mq.TripMessageQueueWrapper {
	switch mode {
	case mq.ModeRabbit:
		conn := rabbit.NewRabbitConnection(rabbit.CreateAmqpURL())
		wrapper, err := rabbit.NewRabbitTripMessageQueueWrapper(conn)
		if err != nil {
			slog.Error("failed to set up rabbitmq queues", "err", err)
			os.Exit(1)
		}
		return wrapper
	case mq.ModeGCPPubSub:
		wrapper, err := gcppubsub.NewGCPTripMessageQueueWrapper(context.Background(), gcppubsub.GetGCPProjectID())
		if err != nil {
			slog.Error("failed to set up gcp pub/sub queues", "err", err)
			os.Exit(1)
		}
		return wrapper
	default:
		return goch.NewGoChanTripMessageQueueWrapper()
	}
}

// Serve wires the whole application together and blocks serving HTTP.
func Serve(sc ServiceConfig) {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if !sc.IsDev {
		gin.SetMode(gin.ReleaseMode)
	}

	var tripDB dbt.TripDBWrapper
	var userDB dbt.UserDBWrapper
	if sc.IsDev {
		tripDB = mem.NewInMemoryTripDBWrapper()
		userDB = mem.NewInMemoryUserDBWrapper()
	} else {
		gormDB, err := pg.InitPostgresGORM(pg.CreateDSN())
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		defer pg.CloseGORM(gormDB)
		tripDB = pg.NewGORMTripDBWrapper(gormDB)
		userDB = pg.NewGORMUserDBWrapper(gormDB)
	}

	mqWrapper := buildMessageQueue(sc.MqMode)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	h := NewHandler(
		trip.NewService(tripDB, mqWrapper),
		mqWrapper,
		tripDB,
		userDB,
		auth.NewPasswordAuthenticator(userDB),
		jwtManager,
	)

	r := gin.New()
	setupMiddlewares(r, sc.IsDev)
	registerRoutes(r, h, jwtManager)

	port := sc.Port
	if port == "" {
		port = cfg.Port
	}
	slog.Info("starting server", "port", port, "dev", sc.IsDev, "mq", sc.MqMode)
	if err := r.Run(":" + port); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func registerRoutes(r *gin.Engine, h *Handler, jwtManager *auth.JWTManager) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", MetricsHandler())

	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	api := r.Group("/", AuthRequired(jwtManager))
	{
		api.GET("/home", h.Home)
		api.GET("/me/profile", h.GetProfile)
		api.PUT("/me/profile", h.UpdateProfile)
		api.GET("/users/:id/bank", h.BankDetails)

		// join and preview live outside /trips/:id so the static segments
		// do not collide with the id wildcard in gin's route tree.
		api.POST("/join", h.JoinTrip)
		api.GET("/codes/:code", h.TripPreview)

		api.POST("/trips", h.CreateTrip)
		api.GET("/trips/:id", h.TripDetail)
		api.POST("/trips/:id/leave", h.LeaveTrip)
		api.POST("/trips/:id/end", h.EndTrip)
		api.POST("/trips/:id/confirm", h.ConfirmPayment)
		api.DELETE("/trips/:id", h.DeleteTrip)
		api.GET("/trips/:id/events", h.TripEvents)

		api.POST("/trips/:id/items", h.AddItem)
		api.DELETE("/items/:id", h.DeleteItem)
		api.POST("/items/:id/pay", h.PayItem)
	}
}
