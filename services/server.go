package services

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/diltak/mindtak-sub001/repository"
	ws "github.com/diltak/mindtak-sub001/websocket"
)

// Server holds all server dependencies
type Server struct {
	config *Config
	repo   *repository.GORMRepository
	rawDB  *gorm.DB

	geminiService      *GeminiService
	coachService       *CoachService
	transcribeService  *TranscribeService
	hierarchyService   *HierarchyService
	permissionService  *PermissionService
	reportsService     *ReportsService
	callService        *CallService
	authService        *AuthService
	websocketHandler   *WebSocketHandler
	authEndpoints      *AuthEndpoints
	employeeEndpoints  *EmployeeEndpoints
	hierarchyEndpoints *HierarchyEndpoints
	chatEndpoints      *ChatEndpoints
	reportsEndpoints   *ReportsEndpoints
	callEndpoints      *CallEndpoints

	wsHub    *ws.Hub
	upgrader websocket.Upgrader
}

// NewServer creates a new server instance
func NewServer(config *Config) *Server {
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}
}

// SetDatabase sets the database connection
func (s *Server) SetDatabase(repo *repository.GORMRepository, rawDB *gorm.DB) {
	s.repo = repo
	s.rawDB = rawDB
}

// InitializeServices wires up every service the routes need.
func (s *Server) InitializeServices() error {
	if s.repo == nil {
		slog.Warn("Database not configured, most endpoints will be unavailable")
	}

	if s.config.AI.GeminiAPIKey != "" {
		s.geminiService = NewGeminiService(s.config.AI.GeminiAPIKey)
		slog.Info("Gemini service initialized")
	}

	if s.repo != nil {
		s.hierarchyService = NewHierarchyService(s.repo)
		s.permissionService = NewPermissionService(s.repo)
		s.reportsService = NewReportsService(s.repo)
		s.callService = NewCallService(s.repo)

		s.hierarchyEndpoints = NewHierarchyEndpoints(s.hierarchyService, s.permissionService, s.config.Reports.DefaultWindowDays)
		s.reportsEndpoints = NewReportsEndpoints(s.reportsService, s.permissionService, s.geminiService, s.config.Reports.DefaultWindowDays)
		s.employeeEndpoints = NewEmployeeEndpoints(s.repo, s.hierarchyService)
		s.callEndpoints = NewCallEndpoints(s.callService)
		slog.Info("Directory, hierarchy, reports and call services initialized")
	}

	if s.geminiService != nil && s.repo != nil {
		s.coachService = NewCoachService(s.geminiService, s.reportsService)
		s.transcribeService = NewTranscribeService(s.geminiService, s.config.AI.TranscribeLanguage)
		s.chatEndpoints = NewChatEndpoints(s.coachService, s.transcribeService, s.repo)
		s.websocketHandler = NewWebSocketHandler(s.coachService, s.transcribeService, s.repo)
		slog.Info("Coaching services initialized")
	}

	if s.config.JWT.Secret != "" && s.repo != nil {
		s.authService = NewAuthService(s.repo, s.config.JWT.Secret)
		s.authEndpoints = NewAuthEndpoints(s.authService)
		slog.Info("Authentication service initialized")
	}

	s.wsHub = ws.NewHub()
	go s.wsHub.Run()

	return nil
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		if s.authEndpoints != nil {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", s.authEndpoints.LoginHandler)
				r.Post("/register", s.authEndpoints.RegisterHandler)
				r.Post("/refresh", s.authEndpoints.RefreshHandler)

				r.Group(func(r chi.Router) {
					r.Use(s.authService.Middleware)
					r.Post("/logout", s.authEndpoints.LogoutHandler)
					r.Get("/me", s.authEndpoints.MeHandler)
				})
			})
		}

		if s.authService != nil {
			r.Group(func(r chi.Router) {
				r.Use(s.authService.Middleware)

				r.Get("/ws", s.websocketHandlerFunc)

				if s.employeeEndpoints != nil {
					s.employeeEndpoints.RegisterRoutes(r)
				}
				if s.hierarchyEndpoints != nil {
					s.hierarchyEndpoints.RegisterRoutes(r)
				}
				if s.reportsEndpoints != nil {
					s.reportsEndpoints.RegisterRoutes(r)
				}
				if s.chatEndpoints != nil {
					s.chatEndpoints.RegisterRoutes(r)
				}
				if s.callEndpoints != nil {
					s.callEndpoints.RegisterRoutes(r)
				}
			})
		}
	})

	return r
}

// Start starts the HTTP server
func (s *Server) Start() {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.SetupRoutes(),
	}

	// Graceful shutdown
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

// CheckOrigin validates the origin of WebSocket connections to prevent CSRF
// attacks. An empty allow-list denies everything.
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	allowedOrigins := strings.Split(allowedOriginsStr, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	for _, allowed := range allowedOrigins {
		if allowed == origin {
			slog.Info("WebSocket connection accepted", "origin", origin)
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "not configured"

	if s.rawDB != nil {
		if sqlDB, err := s.rawDB.DB(); err == nil {
			if err := sqlDB.Ping(); err != nil {
				dbStatus = "down"
				status = "degraded"
			} else {
				dbStatus = "up"
			}
		} else {
			dbStatus = "down"
			status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"` + status + `","database":"` + dbStatus + `"}`))
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"API v1","version":"1.0.0"}`))
}

func (s *Server) websocketHandlerFunc(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		slog.Error("WebSocket connection failed - user not found in context")
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	slog.Info("WebSocket connection established", "user_id", user.ID, "email", user.Email)

	client := s.wsHub.RegisterClient(conn, user.ID)

	if s.websocketHandler != nil {
		client.MessageHandler = func(c *ws.Client, messageBytes []byte) {
			s.websocketHandler.HandleMessage(c, messageBytes)
		}
	}

	go client.ReadPump()
	go client.WritePump()
}
