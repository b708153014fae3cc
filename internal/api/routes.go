package api

import (
	"net/http"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/agent"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/analytics"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/auth"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/config"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/control"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/coordination"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/observability"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Realtime groups the websocket side of the server.
type Realtime struct {
	Registry   *ws.Registry
	Dispatcher *ws.Dispatcher
	Endpoint   *ws.Endpoint
	Bus        *control.EventBus
	Relay      *control.Relay
}

type Server struct {
	cfg          *config.Config
	store        *store.Store
	auth         *auth.JWTManager
	rt           Realtime
	monitor      *agent.Monitor
	analytics    *analytics.Service
	coordination *coordination.Service
	validate     *validator.Validate
	clock        clockwork.Clock
	router       *chi.Mux
}

// NewServer wires the HTTP surface. monitor may be nil.
func NewServer(cfg *config.Config, st *store.Store, rt Realtime, monitor *agent.Monitor, clock clockwork.Clock) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Server{
		cfg:          cfg,
		store:        st,
		auth:         auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL, clock),
		rt:           rt,
		monitor:      monitor,
		analytics:    analytics.NewService(st, clock),
		coordination: coordination.NewService(st, clock),
		validate:     newValidator(),
		clock:        clock,
		router:       chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(observability.Middleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, message{Message: "FoodBridge API is running"})
	})
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", s.authRoutes)
		r.Route("/disasters", s.disasterRoutes)
		r.Route("/food", s.foodRoutes)
		r.Route("/vulnerability", s.vulnerabilityRoutes)
		r.Route("/analytics", s.analyticsRoutes)
		r.Route("/coordination", s.coordinationRoutes)
		r.Route("/realtime", s.realtimeRoutes)
		r.Route("/admin", s.adminRoutes)
	})
}

func (s *Server) authRoutes(r chi.Router) {
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.jwtMiddleware)
		r.Get("/me", s.handleMe)
		r.With(s.RequireRole("Not enough permissions")).Get("/users", s.handleListUsers)
	})
}

func (s *Server) disasterRoutes(r chi.Router) {
	r.Get("/alerts", s.handleListAlerts)
	r.Get("/alerts/{alertID}", s.handleGetAlert)
	r.Get("/alerts/nearby/{lat}/{lng}", s.handleNearbyAlerts)
	r.Get("/stats/overview", s.handleAlertStats)
	r.Group(func(r chi.Router) {
		r.Use(s.jwtMiddleware)
		r.Post("/alerts", s.handleCreateAlert)
		r.Put("/alerts/{alertID}", s.handleUpdateAlert)
		r.Delete("/alerts/{alertID}", s.handleDeleteAlert)
	})
}

func (s *Server) foodRoutes(r chi.Router) {
	r.Get("/inventory", s.handleListInventory)
	r.Get("/inventory/{itemID}", s.handleGetInventory)
	r.Get("/distributions", s.handleListDistributions)
	r.Get("/distributions/{eventID}", s.handleGetDistribution)
	r.Get("/stats/inventory-summary", s.handleInventorySummary)
	r.Get("/stats/distribution-summary", s.handleDistributionSummary)
	r.Get("/search/nearby-resources", s.handleNearbyResources)
	r.Group(func(r chi.Router) {
		r.Use(s.jwtMiddleware)
		r.Post("/inventory", s.handleCreateInventory)
		r.Put("/inventory/{itemID}", s.handleUpdateInventory)
		r.Delete("/inventory/{itemID}", s.handleDeleteInventory)
		r.Post("/distributions", s.handleCreateDistribution)
		r.Put("/distributions/{eventID}", s.handleUpdateDistribution)
	})
}

func (s *Server) vulnerabilityRoutes(r chi.Router) {
	r.Get("/assessments", s.handleListAssessments)
	r.Get("/assessments/{assessmentID}", s.handleGetAssessment)
	r.Get("/high-risk", s.handleHighRisk)
	r.With(s.jwtMiddleware).Post("/assessments", s.handleCreateAssessment)
}

func (s *Server) analyticsRoutes(r chi.Router) {
	r.Get("/dashboard", s.handleDashboard)
	r.Get("/climate-risk-forecast", s.handleForecast)
	r.Get("/food-shortage-risk", s.handleShortageRisk)
	r.Get("/resource-allocation", s.handleResourceAllocation)
	r.Get("/trends/climate-impact", s.handleClimateTrends)
}

func (s *Server) coordinationRoutes(r chi.Router) {
	r.Get("/emergency-responses", s.handleListResponses)
	r.Get("/organizations", s.handleOrganizations)
	r.Get("/coordination-matrix", s.handleMatrix)
	r.Get("/communication-tree", s.handleCommunicationTree)
	r.Group(func(r chi.Router) {
		r.Use(s.jwtMiddleware)
		r.Post("/emergency-responses", s.handleCreateResponse)
		r.Put("/emergency-responses/{responseID}", s.handleUpdateResponse)
		r.Post("/coordinate-response", s.handleCoordinate)
	})
}

func (s *Server) realtimeRoutes(r chi.Router) {
	r.Get("/ws", s.handleWebSocket)
	r.Get("/ws/status", s.handleWSStatus)
	r.Get("/ws/{connectionID}", s.handleWebSocket)
	r.With(s.optionalAuth).Post("/system-events", s.handleSystemEvent)

	r.Group(func(r chi.Router) {
		r.Use(s.jwtMiddleware)
		r.Get("/notifications", s.handleListNotifications)
		r.Put("/notifications/{notificationID}/read", s.handleMarkRead)
		r.Get("/emergency-alerts", s.handleListEmergencyAlerts)

		r.With(s.RequireRole("Insufficient permissions to create notifications",
			models.RoleNGO, models.RoleEmergencyResponder)).Post("/notifications", s.handleCreateNotification)

		r.With(s.RequireRole("Insufficient permissions to create emergency alerts",
			models.RoleEmergencyResponder)).Post("/emergency-alerts", s.handleCreateEmergencyAlert)
		r.With(s.RequireRole("Insufficient permissions to resolve emergency alerts",
			models.RoleEmergencyResponder)).Put("/emergency-alerts/{alertID}/resolve", s.handleResolveEmergencyAlert)
	})
}

func (s *Server) adminRoutes(r chi.Router) {
	r.Use(s.jwtMiddleware)
	r.Use(s.RequireRole("Not enough permissions"))
	r.Post("/backup", s.handleBackup)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// publishChange announces a committed write.
func (s *Server) publishChange(dataType string, id int64, change, description string) {
	s.publish(models.ChangeEvent{
		EventType:   "data_change",
		DataType:    dataType,
		RecordID:    id,
		ChangeType:  change,
		Description: description,
	})
}

// publish hands event to the bus. A full bus drops it.
func (s *Server) publish(event models.ChangeEvent) {
	if s.rt.Bus == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = s.clock.Now().UTC()
	}
	s.rt.Bus.Publish(event)
}
