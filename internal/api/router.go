package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/grooming-booking-backend/internal/appointment"
	appointmentHttp "github.com/nekogravitycat/grooming-booking-backend/internal/appointment/http"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/business"
	businessHttp "github.com/nekogravitycat/grooming-booking-backend/internal/business/http"
	"github.com/nekogravitycat/grooming-booking-backend/internal/catalog"
	catalogHttp "github.com/nekogravitycat/grooming-booking-backend/internal/catalog/http"
	"github.com/nekogravitycat/grooming-booking-backend/internal/media"
	mediaHttp "github.com/nekogravitycat/grooming-booking-backend/internal/media/http"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pet"
	petHttp "github.com/nekogravitycat/grooming-booking-backend/internal/pet/http"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/logging"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/metrics"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/ratelimit"
	"github.com/nekogravitycat/grooming-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/grooming-booking-backend/internal/user/http"
)

// Config carries the services and middleware settings the router needs.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       *slog.Logger
	Limiter      ratelimit.Limiter
	Metrics      *metrics.Metrics

	UserService        user.Service
	MediaService       media.Service
	BusinessService    business.Service
	CatalogService     catalog.Service
	PetService         pet.Service
	AppointmentService appointment.Service
	JWTManager         *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()

	// Global Middleware:
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	// - AccessLog: One structured log line per request.
	r.Use(gin.Recovery(), logging.AccessLog(cfg.Logger))

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{
		"http://localhost:8081", // Swagger
	}
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		config.AllowOrigins = nil
		for _, origin := range strings.Split(cfg.ProdOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				config.AllowOrigins = append(config.AllowOrigins, origin)
			}
		}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// optionalAuth: Reads the JWT when present, for routes that are public but role aware.
	optionalAuth := auth.OptionalAuth(cfg.JWTManager)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	mediaHandler := mediaHttp.NewHandler(cfg.MediaService, cfg.Logger)
	businessHandler := businessHttp.NewHandler(cfg.BusinessService, mediaHandler)
	catalogHandler := catalogHttp.NewHandler(cfg.CatalogService)
	petHandler := petHttp.NewHandler(cfg.PetService)
	appointmentHandler := appointmentHttp.NewHandler(cfg.AppointmentService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	if cfg.Limiter != nil {
		v1.Use(ratelimit.Middleware(cfg.Limiter, cfg.Logger))
	}
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		mediaHttp.RegisterRoutes(v1, mediaHandler)
		businessHttp.RegisterRoutes(v1, businessHandler, authMiddleware)
		catalogHttp.RegisterRoutes(v1, catalogHandler, authMiddleware, optionalAuth)
		petHttp.RegisterRoutes(v1, petHandler, authMiddleware)
		appointmentHttp.RegisterRoutes(v1, appointmentHandler, authMiddleware)
	}

	return r
}
