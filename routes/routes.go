// routes/routes.go
package routes

import (
	"touristsafety/config"
	"touristsafety/controllers"
	"touristsafety/middleware"
	"touristsafety/models"
	"touristsafety/repositories"
	"touristsafety/services"
	"touristsafety/utils"
	"touristsafety/websocket"
	"touristsafety/workers"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repositories initialization
type Repositories struct {
	User         *repositories.UserRepository
	Alert        *repositories.AlertRepository
	Location     *repositories.LocationRepository
	Notification *repositories.NotificationRepository
	Responder    *repositories.ResponderRepository
	Zone         *repositories.ZoneRepository
	Consent      *repositories.ConsentRepository
	DigitalID    *repositories.DigitalIDRepository
}

func InitializeRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		User:         repositories.NewUserRepository(db),
		Alert:        repositories.NewAlertRepository(db),
		Location:     repositories.NewLocationRepository(db),
		Notification: repositories.NewNotificationRepository(db),
		Responder:    repositories.NewResponderRepository(db),
		Zone:         repositories.NewZoneRepository(db),
		Consent:      repositories.NewConsentRepository(db),
		DigitalID:    repositories.NewDigitalIDRepository(db),
	}
}

// Infrastructure is what the services need besides repositories.
type Infrastructure struct {
	Redis   *redis.Client
	NATS    *nats.Conn
	Hub     *websocket.Hub
	Queue   *workers.CoordinationWorker
	Senders config.NotificationSenders
}

// Services initialization
type Services struct {
	JWT          *utils.JWTService
	ZoneIndex    *services.ZoneIndex
	Scorer       *services.SafetyScorer
	Auth         *services.AuthService
	User         *services.UserService
	Notification *services.NotificationService
	Responder    *services.ResponderService
	Coordinator  *services.AlertCoordinator
	AlertQueries *services.AlertQueryService
	Location     *services.LocationService
	Zone         *services.ZoneService
	Consent      *services.ConsentService
	DigitalID    *services.DigitalIDService
	Dashboard    *services.DashboardService
}

func InitializeServices(cfg *config.Config, repos *Repositories, infra Infrastructure) *Services {
	jwtService := utils.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	zoneIndex := services.NewZoneIndex()
	scorer := services.NewSafetyScorer(zoneIndex, services.SafetyScorerConfig{
		Location:            cfg.SafetyLocation(),
		InactivityThreshold: cfg.Safety.InactivityThreshold,
		RecentAlertCap:      cfg.Safety.RecentAlertCap,
	})

	notificationService := services.NewNotificationService(
		repos.Notification,
		repos.User,
		infra.Senders.Email,
		infra.Senders.SMS,
		infra.Senders.Push,
		infra.Hub,
	)
	responderService := services.NewResponderService(repos.Responder, infra.Redis, cfg.ResponderRadiusMeters, cfg.ResponderLimit)

	var events services.EventPublisher
	if infra.NATS != nil {
		events = services.NewNATSEventPublisher(infra.NATS, cfg.NATSSubject)
	} else {
		logrus.Info("NATS not configured, alert events are logged only")
	}

	coordinator := services.NewAlertCoordinator(
		repos.Alert,
		repos.User,
		repos.Location,
		notificationService,
		responderService,
		scorer,
		infra.Queue,
		events,
		services.AlertCoordinatorConfig{
			CallTimeout:       cfg.Coordination.CallTimeout,
			SendAttempts:      cfg.Coordination.SendAttempts,
			RetryDelay:        cfg.Coordination.RetryDelay,
			RecentAlertWindow: cfg.Safety.RecentAlertWindow,
			HistoryWindow:     cfg.Safety.HistoryWindow,
			ResponderRoles:    []models.ResponderRole{models.ResponderPolice, models.ResponderAmbulance},
		},
	)

	locationService := services.NewLocationService(
		repos.Location,
		repos.Alert,
		coordinator,
		zoneIndex,
		scorer,
		infra.Hub,
		services.LocationServiceConfig{
			HistoryWindow:     cfg.Safety.HistoryWindow,
			RecentAlertWindow: cfg.Safety.RecentAlertWindow,
			SpeedThreshold:    cfg.Safety.SpeedThreshold,
		},
	)

	return &Services{
		JWT:          jwtService,
		ZoneIndex:    zoneIndex,
		Scorer:       scorer,
		Auth:         services.NewAuthService(repos.User, jwtService, infra.Senders.SMS),
		User:         services.NewUserService(repos.User),
		Notification: notificationService,
		Responder:    responderService,
		Coordinator:  coordinator,
		AlertQueries: services.NewAlertQueryService(repos.Alert),
		Location:     locationService,
		Zone:         services.NewZoneService(repos.Zone, zoneIndex),
		Consent:      services.NewConsentService(repos.Consent),
		DigitalID:    services.NewDigitalIDService(repos.DigitalID, repos.User, cfg.DigitalIDValidity),
		Dashboard:    services.NewDashboardService(repos.Alert, zoneIndex, infra.Queue),
	}
}

// Controllers initialization
type Controllers struct {
	Auth         *controllers.AuthController
	User         *controllers.UserController
	Alert        *controllers.AlertController
	Location     *controllers.LocationController
	Zone         *controllers.ZoneController
	Responder    *controllers.ResponderController
	Notification *controllers.NotificationController
	Consent      *controllers.ConsentController
	DigitalID    *controllers.DigitalIDController
	Dashboard    *controllers.DashboardController
	WebSocket    *controllers.WebSocketController
	Health       *controllers.HealthController
}

func initializeControllers(cfg *config.Config, svcs *Services, hub *websocket.Hub, checks map[string]controllers.HealthCheck) *Controllers {
	return &Controllers{
		Auth:         controllers.NewAuthController(svcs.Auth),
		User:         controllers.NewUserController(svcs.User),
		Alert:        controllers.NewAlertController(svcs.Coordinator, svcs.AlertQueries, svcs.Responder),
		Location:     controllers.NewLocationController(svcs.Location),
		Zone:         controllers.NewZoneController(svcs.Zone),
		Responder:    controllers.NewResponderController(svcs.Responder),
		Notification: controllers.NewNotificationController(svcs.Notification),
		Consent:      controllers.NewConsentController(svcs.Consent),
		DigitalID:    controllers.NewDigitalIDController(svcs.DigitalID),
		Dashboard:    controllers.NewDashboardController(svcs.Dashboard),
		WebSocket:    controllers.NewWebSocketController(hub, cfg.AllowedOrigins),
		Health:       controllers.NewHealthController(cfg.Version, checks),
	}
}

// SetupRoutes initializes all application routes
func SetupRoutes(
	cfg *config.Config,
	repos *Repositories,
	svcs *Services,
	redisClient *redis.Client,
	hub *websocket.Hub,
	checks map[string]controllers.HealthCheck,
) *gin.Engine {
	router := gin.New()

	ctrls := initializeControllers(cfg, svcs, hub, checks)
	authMiddleware := middleware.NewAuthMiddleware(svcs.JWT, repos.User)

	// Global middleware
	setupGlobalMiddleware(router, cfg)

	// Setup route groups
	setupPublicRoutes(router, ctrls, authMiddleware, redisClient)
	setupAuthenticatedRoutes(router, ctrls, authMiddleware, redisClient, cfg)
	setupAdminRoutes(router, ctrls, authMiddleware)
	SetupWebSocketRoutes(router, ctrls.WebSocket, authMiddleware)

	router.NoRoute(middleware.NoRoute)

	return router
}

// Global middleware setup
func setupGlobalMiddleware(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.NewErrorHandler(cfg.Environment, logrus.StandardLogger()).Handle())
	router.Use(middleware.DefaultLoggerMiddleware())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins)))
}

// Public routes (no authentication required)
func setupPublicRoutes(router *gin.Engine, ctrls *Controllers, authMiddleware *middleware.AuthMiddleware, redisClient *redis.Client) {
	router.GET("/health", ctrls.Health.HealthCheck)

	public := router.Group("/api/v1")
	public.Use(middleware.AuthRateLimit(redisClient))
	{
		SetupAuthRoutes(public, ctrls.Auth, authMiddleware)
	}
}

// Authenticated routes (requires valid JWT token)
func setupAuthenticatedRoutes(router *gin.Engine, ctrls *Controllers, authMiddleware *middleware.AuthMiddleware, redisClient *redis.Client, cfg *config.Config) {
	api := router.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth())
	api.Use(middleware.APIRateLimit(redisClient, cfg.RateLimitRequests, cfg.RateLimitWindow))

	SetupUserRoutes(api, ctrls.User, ctrls.Consent, ctrls.DigitalID, authMiddleware)
	SetupLocationRoutes(api, ctrls.Location, ctrls.Zone)
	SetupAlertRoutes(api, ctrls.Alert, ctrls.Responder, authMiddleware, middleware.SOSRateLimit(redisClient, cfg.SOSRateLimit, cfg.SOSRateWindow))
	SetupNotificationRoutes(api, ctrls.Notification)
}

// Admin routes (requires admin privileges)
func setupAdminRoutes(router *gin.Engine, ctrls *Controllers, authMiddleware *middleware.AuthMiddleware) {
	admin := router.Group("/api/v1")
	admin.Use(authMiddleware.RequireAuth())
	admin.Use(authMiddleware.RequireRole(models.RoleAdmin))

	admin.GET("/dashboard/stats", ctrls.Dashboard.GetStats)
	admin.GET("/ws/stats", ctrls.WebSocket.GetStats)

	admin.POST("/zones", ctrls.Zone.CreateZone)
	admin.PUT("/zones/:id", ctrls.Zone.UpdateZone)
	admin.DELETE("/zones/:id", ctrls.Zone.DeleteZone)

	admin.POST("/responders", ctrls.Responder.CreateResponder)
}
