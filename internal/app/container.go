package app

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/grooming-booking-backend/internal/api"
	"github.com/nekogravitycat/grooming-booking-backend/internal/appointment"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/business"
	"github.com/nekogravitycat/grooming-booking-backend/internal/catalog"
	"github.com/nekogravitycat/grooming-booking-backend/internal/media"
	"github.com/nekogravitycat/grooming-booking-backend/internal/notify"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pet"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/metrics"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/ratelimit"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/storage"
	"github.com/nekogravitycat/grooming-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int
	StoragePath  string
	Logger       *slog.Logger

	// JWTRefreshTTL falls back to auth.DefaultRefreshTTL when zero.
	JWTRefreshTTL time.Duration

	// Limiter is optional. Nil disables rate limiting.
	Limiter ratelimit.Limiter
	// Notifier defaults to a log-only dispatcher when nil.
	Notifier notify.Notifier
	// Metrics is optional. Nil disables /metrics and request metrics.
	Metrics *metrics.Metrics

	BookingMaxTries int
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL, auth.WithRefreshTTL(cfg.JWTRefreshTTL))

	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewDispatcher(notify.NewLogDelivery(logger), logger, 5*time.Second)
	}

	maxTries := cfg.BookingMaxTries
	if maxTries < 1 {
		maxTries = appointment.DefaultMaxTries
	}

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher, logger)

	// Media Module
	mediaRepo := media.NewPgxRepository(cfg.DBPool)
	mediaService := media.NewService(mediaRepo, store, logger)

	// Business Module
	businessRepo := business.NewPgxRepository(cfg.DBPool)
	businessService := business.NewService(businessRepo, userService)

	// Catalog Module
	catalogRepo := catalog.NewPgxRepository(cfg.DBPool)
	catalogService := catalog.NewService(catalogRepo, businessService)

	// Pet Module
	petRepo := pet.NewPgxRepository(cfg.DBPool)
	petService := pet.NewService(petRepo)

	// Appointment Module
	opts := []appointment.Option{}
	if cfg.Metrics != nil {
		opts = append(opts, appointment.WithRecorder(cfg.Metrics))
	}
	appointmentRepo := appointment.NewPgxRepository(cfg.DBPool, maxTries)
	appointmentService := appointment.NewService(
		appointmentRepo, businessService, catalogService, petService, notifier, logger, opts...)

	// API Router Config
	routerParams := api.Config{
		IsProduction:       cfg.IsProduction,
		ProdOrigins:        cfg.ProdOrigins,
		Logger:             logger,
		Limiter:            cfg.Limiter,
		Metrics:            cfg.Metrics,
		UserService:        userService,
		MediaService:       mediaService,
		BusinessService:    businessService,
		CatalogService:     catalogService,
		PetService:         petService,
		AppointmentService: appointmentService,
		JWTManager:         jwtManager,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
	}, nil
}
