package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"lapra-tech/backend/internal/config"
	"lapra-tech/backend/internal/db"
	"lapra-tech/backend/internal/db/migrate"
	"lapra-tech/backend/internal/notify"
	"lapra-tech/backend/internal/security"
	"lapra-tech/backend/internal/server"
	"lapra-tech/backend/internal/server/handler"
	signupservice "lapra-tech/backend/internal/signup/service"
	userrepo "lapra-tech/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	repo := userrepo.NewPostgresRepository(database)
	hasher := security.NewHasher(cfg.BcryptCost)
	brevo := notify.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoBaseURL, cfg.EmailSenderName, cfg.EmailSenderAddress, cfg.OTPValidity())
	dispatcher := notify.NewDispatcher(brevo)
	signup := signupservice.NewSignupService(repo, dispatcher, hasher, cfg.OTPValidity(), cfg.MaxUsers)

	router := server.NewRouter(server.Deps{
		Signup:       handler.NewSignupHandler(signup, cfg.OTPReturnToClient && cfg.IsDevelopment(), cfg.IsDevelopment()),
		Health:       handler.NewHealthHandler(database),
		AllowOrigins: cfg.AllowedOrigins(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s (max users: %d)", cfg.HTTPAddr, cfg.MaxUsers)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
