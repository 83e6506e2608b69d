package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hzrede/studio/internal/admin"
	"github.com/hzrede/studio/internal/backup"
	"github.com/hzrede/studio/internal/email"
	"github.com/hzrede/studio/internal/entitlement"
	"github.com/hzrede/studio/internal/handler"
	"github.com/hzrede/studio/internal/imagegen"
	"github.com/hzrede/studio/internal/middleware"
	"github.com/hzrede/studio/internal/push"
	"github.com/hzrede/studio/internal/store"
	ws "github.com/hzrede/studio/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	sessionStore  *store.SessionStore
	authH         *handler.AuthHandler
	catalogH      *handler.CatalogHandler
	purchaseH     *handler.PurchaseHandler
	generateH     *handler.GenerateHandler
	adminH        *handler.AdminHandler
	groupH        *handler.GroupHandler
	siteH         *handler.SiteHandler
	pushH         *handler.PushHandler
	sweeper       *entitlement.Sweeper
	backupManager *backup.Manager
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

// Config holds everything the server wires together at startup.
type Config struct {
	AdminCfg  admin.Config
	Pix       handler.PixConfig
	Push      push.Config
	Backup    backup.Config
	Email     *email.Client
	Generator imagegen.Generator
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	paymentStore := store.NewPaymentStore(db)
	priceStore := store.NewPriceStore(db)
	settingsStore := store.NewSettingsStore(db)
	pushStore := store.NewPushStore(db)

	entSvc := entitlement.NewService(userStore, sessionStore, paymentStore, settingsStore, logger.With("component", "entitlement"))
	adminSvc := admin.NewService(cfg.AdminCfg, userStore, sessionStore, settingsStore, priceStore, logger.With("component", "admin"))

	var pushSvc *push.Service
	var pushH *handler.PushHandler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
		pushH = handler.NewPushHandler(entSvc, pushSvc, pushStore, logger.With("component", "push"))
	}

	sweeper := entitlement.NewSweeper(entSvc, pushSvc, pushStore, settingsStore, hub, logger.With("component", "sweeper"))
	backupMgr := backup.NewManager(cfg.Backup, db, logger.With("component", "backup"))

	return &Server{
		db:            db,
		hub:           hub,
		sessionStore:  sessionStore,
		authH:         handler.NewAuthHandler(entSvc, settingsStore, hub, logger.With("component", "auth")),
		catalogH:      handler.NewCatalogHandler(priceStore, logger.With("component", "catalog")),
		purchaseH:     handler.NewPurchaseHandler(entSvc, cfg.Email, cfg.Pix, hub, logger.With("component", "purchase")),
		generateH:     handler.NewGenerateHandler(entSvc, cfg.Generator, logger.With("component", "generate")),
		adminH:        handler.NewAdminHandler(adminSvc, userStore, paymentStore, priceStore, settingsStore, hub, logger.With("component", "admin_api")),
		groupH:        handler.NewGroupHandler(adminSvc),
		siteH:         handler.NewSiteHandler(settingsStore, priceStore, logger.With("component", "site")),
		pushH:         pushH,
		sweeper:       sweeper,
		backupManager: backupMgr,
		rateLimiter:   middleware.NewRateLimiter(),
		logger:        logger,
	}
}

// SessionStore returns the session store for periodic cleanup.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the limiter for periodic cleanup.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Sweeper returns the trial sweeper for lifecycle management.
func (s *Server) Sweeper() *entitlement.Sweeper {
	return s.sweeper
}

// BackupManager returns the backup manager for lifecycle management.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public API
	mux.HandleFunc("POST /api/trial/start", s.rateLimited(s.authH.StartTrial))
	mux.HandleFunc("POST /api/trial/expire", s.authH.ExpireTrial)
	mux.HandleFunc("POST /api/login", s.authH.Login)
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("GET /api/site", s.siteH.Get)
	mux.HandleFunc("GET /api/catalog", s.catalogH.List)
	mux.HandleFunc("GET /api/payment/pix", s.purchaseH.PixInfo)
	mux.HandleFunc("POST /api/group/verify", s.rateLimited(s.groupH.Verify))
	mux.HandleFunc("POST /api/admin/login", s.rateLimited(s.adminH.Login))

	// Session-gated operations
	mux.HandleFunc("POST /api/purchase", s.purchaseH.Purchase)
	mux.HandleFunc("POST /api/generate", s.generateH.Generate)

	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/key", s.pushH.Key)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	}

	// Admin API — wrapped with RequireAdmin
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET /api/admin/users", s.adminH.Users)
	adminMux.HandleFunc("GET /api/admin/attempts", s.adminH.Attempts)
	adminMux.HandleFunc("GET /api/admin/revenue", s.adminH.Revenue)
	adminMux.HandleFunc("PUT /api/admin/prices/{id}", s.adminH.UpdatePrice)
	adminMux.HandleFunc("PUT /api/admin/messages/{key}", s.adminH.UpdateMessage)
	adminMux.HandleFunc("PUT /api/admin/trial-duration", s.adminH.UpdateTrialDuration)
	adminMux.HandleFunc("PUT /api/admin/promotion", s.adminH.UpdatePromotion)
	adminMux.HandleFunc("POST /api/admin/grant", s.adminH.Grant)
	mux.Handle("/api/admin/", middleware.RequireAdmin(adminMux))

	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))
	mux.HandleFunc("GET /health", s.healthHandler)

	sessionMiddleware := middleware.LoadSession(s.sessionStore, s.logger.With("component", "session"))
	return middleware.RequestLogger(s.logger.With("component", "http"))(sessionMiddleware(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	return middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)(h).ServeHTTP
}
