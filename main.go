package main

import (
	"context"
	"log"
	"net/http"

	"bookarr/config"
	"bookarr/database"
	"bookarr/handlers"
	"bookarr/logger"
	"bookarr/middleware"
	"bookarr/services"
)

func main() {
	cfg, err := config.Load(config.FindConfigFile())
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger.Init(cfg.Environment, cfg.Debug)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	if err := database.SeedAdminUser(db, cfg); err != nil {
		log.Fatal("Failed to seed admin user:", err)
	}

	// Wire up services; every dependency is passed explicitly.
	sessions := services.NewSessionStore(cfg)
	auth := services.NewAuthService(database.NewUserStore(db))
	readarr := services.NewReadarrClient(cfg)
	requestSvc := services.NewRequestService(database.NewRequestStore(db), readarr)
	requestSvc.AllowDuplicates = cfg.AllowDuplicateRequests
	providers := services.NewProviderSet(cfg)
	reconciler := services.NewReconciler(requestSvc, cfg.PollInterval)

	go reconciler.Start(context.Background())

	h := handlers.New(sessions, auth, requestSvc, reconciler, providers)
	requireAuth := middleware.RequireAuth(sessions, auth)
	admin := func(fn http.HandlerFunc) http.Handler {
		return requireAuth(middleware.RequireAdmin(fn))
	}

	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	mux.HandleFunc("/api/login", h.Login)
	mux.HandleFunc("/api/register", h.Register)
	mux.HandleFunc("/api/logout", h.Logout)

	// Authenticated routes
	mux.Handle("/api/me", requireAuth(http.HandlerFunc(h.Me)))
	mux.Handle("/api/search", requireAuth(http.HandlerFunc(h.Search)))
	mux.Handle("/api/search/detail", requireAuth(http.HandlerFunc(h.BookDetail)))
	mux.Handle("/api/requests", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.CreateRequest(w, r)
			return
		}
		h.ListRequests(w, r)
	})))
	mux.Handle("/api/requests/tags", requireAuth(http.HandlerFunc(h.UpdateRequestTags)))

	// Admin routes
	mux.Handle("/api/requests/approve", admin(h.ApproveRequest))
	mux.Handle("/api/requests/deny", admin(h.DenyRequest))
	mux.Handle("/api/requests/available", admin(h.MarkRequestAvailable))
	mux.Handle("/api/requests/check", admin(h.RunStatusCheck))

	addr := ":" + cfg.ServerPort
	logger.With("addr", addr, "environment", cfg.Environment).Info("Bookarr starting")

	if err := http.ListenAndServe(addr, middleware.Logging(mux)); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
