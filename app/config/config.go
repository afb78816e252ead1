package config

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// MinSecretBytes is the shortest accepted JWT signing key (256 bits).
	MinSecretBytes = 32

	developmentDSN = "host=localhost port=5432 user=postgres dbname=exam_management sslmode=disable"
)

type Config struct {
	Env         string
	Port        string
	DatabaseURL string

	JWTSecret   []byte
	JWTIssuer   string
	JWTAudience string

	Storage StorageConfig

	BcryptCost        int
	MaxSubmissionSize int64
	MaxAvatarSize     int64

	AdminUsername string
	AdminPassword string
}

type StorageConfig struct {
	Backend string // "local" or "b2"
	Root    string
	B2      B2Config
}

type B2Config struct {
	KeyID  string
	AppKey string
	Bucket string
}

func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// LoadDatabase reads only what the command-line tools need to reach the
// database: APP_ENV, DATABASE_URL and BCRYPT_COST.
func LoadDatabase() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return databaseFromEnv(os.Getenv)
}

func databaseFromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	cfg := &Config{
		Env:         strings.ToLower(get("APP_ENV", EnvProduction)),
		DatabaseURL: get("DATABASE_URL", ""),
	}
	var err error
	if cfg.BcryptCost, err = intEnv(get, "BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("DATABASE_URL is required outside development")
		}
		cfg.DatabaseURL = developmentDSN
	}
	return cfg, nil
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Env:           strings.ToLower(get("APP_ENV", EnvProduction)),
		Port:          get("PORT", "8080"),
		DatabaseURL:   get("DATABASE_URL", ""),
		JWTSecret:     []byte(getenv("JWT_SECRET")),
		JWTIssuer:     get("JWT_ISSUER", "exam-management"),
		JWTAudience:   get("JWT_AUDIENCE", "exam-management-users"),
		AdminUsername: get("ADMIN_USERNAME", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD"),
		Storage: StorageConfig{
			Backend: strings.ToLower(get("STORAGE_BACKEND", "local")),
			Root:    get("STORAGE_ROOT", "./storage"),
			B2: B2Config{
				KeyID:  get("B2_KEY_ID", ""),
				AppKey: get("B2_APP_KEY", ""),
				Bucket: get("B2_BUCKET", ""),
			},
		},
	}

	var err error
	if cfg.BcryptCost, err = intEnv(get, "BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	subMB, err := intEnv(get, "MAX_SUBMISSION_MB", 10)
	if err != nil {
		return nil, err
	}
	avatarMB, err := intEnv(get, "MAX_AVATAR_MB", 5)
	if err != nil {
		return nil, err
	}
	cfg.MaxSubmissionSize = int64(subMB) << 20
	cfg.MaxAvatarSize = int64(avatarMB) << 20

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("APP_ENV must be %q or %q", EnvDevelopment, EnvProduction)
	}
	if len(c.JWTSecret) < MinSecretBytes {
		return fmt.Errorf("JWT_SECRET must be set and at least %d bytes long", MinSecretBytes)
	}
	if c.DatabaseURL == "" {
		if !c.IsDevelopment() {
			return errors.New("DATABASE_URL is required outside development")
		}
		c.DatabaseURL = developmentDSN
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.Root == "" {
			return errors.New("STORAGE_ROOT must not be empty")
		}
	case "b2":
		b := c.Storage.B2
		if b.KeyID == "" || b.AppKey == "" || b.Bucket == "" {
			return errors.New("B2_KEY_ID, B2_APP_KEY and B2_BUCKET are required for the b2 storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if c.MaxSubmissionSize <= 0 || c.MaxAvatarSize <= 0 {
		return errors.New("upload size limits must be positive")
	}
	return nil
}

func intEnv(get func(string, string) string, key string, def int) (int, error) {
	raw := get(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

// OpenDB connects to PostgreSQL and verifies the connection.
func OpenDB(cfg *Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	log.Println("Testing database connection...")
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	log.Println("Database connected successfully")
	return db, nil
}
