package main

import (
	"context"
	"log"
	"time"

	"github.com/hungnqdz/exam-management/app/config"
	"github.com/hungnqdz/exam-management/app/database"
	"github.com/hungnqdz/exam-management/app/routes/web"
	"github.com/hungnqdz/exam-management/app/security"
	"github.com/hungnqdz/exam-management/app/server"
	"github.com/hungnqdz/exam-management/app/services"
	"github.com/hungnqdz/exam-management/app/storage"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Initialize database
	db, err := config.OpenDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	store := database.NewStore(db)

	hasher, err := security.NewHasher(cfg.BcryptCost)
	if err != nil {
		log.Fatal(err)
	}
	ensureAdmin(ctx, cfg, store, hasher)

	files, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("Failed to open file storage: ", err)
	}
	log.Printf("File storage backend: %s", cfg.Storage.Backend)

	// Start background scheduler
	services.StartScheduler(ctx, files, 10*time.Minute)

	tokens, err := security.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		log.Fatal(err)
	}

	policy := services.NewPolicy(store)
	app := server.New(&web.Deps{
		Config:   cfg,
		Auth:     services.NewAuthService(store, hasher, tokens),
		Accounts: services.NewAccountService(store, policy, hasher, files, cfg.MaxAvatarSize),
		Exams:    services.NewExamService(store, policy, files, cfg.MaxSubmissionSize),
		Files:    services.NewFileService(store, policy, files),
		Subjects: store,
		CSRF:     security.NewCSRF(cfg.JWTSecret),
	})

	// Start server
	log.Printf("Server starting on :%s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// ensureAdmin seeds the bootstrap admin when ADMIN_PASSWORD is set and no
// admin exists yet.
func ensureAdmin(ctx context.Context, cfg *config.Config, store *database.Store, hasher *security.Hasher) {
	if cfg.AdminPassword == "" {
		return
	}
	hash, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		log.Fatal("Failed to hash admin password: ", err)
	}
	created, err := store.EnsureAdmin(ctx, cfg.AdminUsername, hash)
	if err != nil {
		log.Fatal("Failed to create admin account: ", err)
	}
	if created {
		log.Printf("Created admin account %q", cfg.AdminUsername)
	}
}
