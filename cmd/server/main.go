package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	emailPkg "civicwatch/internal/adapters/email"
	feedPkg "civicwatch/internal/adapters/feed"
	web "civicwatch/internal/adapters/http"
	"civicwatch/internal/adapters/http/middleware"
	"civicwatch/internal/adapters/storage"
	accountStore "civicwatch/internal/adapters/storage/account"
	contactStore "civicwatch/internal/adapters/storage/contact"
	digestStore "civicwatch/internal/adapters/storage/digest"
	"civicwatch/internal/adapters/token"
	"civicwatch/internal/application/orchestrators"
	"civicwatch/internal/config"
	"civicwatch/internal/logging"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg := config.Load()
	logging.Init(envOrDefault("CIVICWATCH_LOG_LEVEL", "info"))
	isProd := cfg.Server.Env == "production"

	// WAL mode with a busy timeout so the cron endpoints and the approval
	// request can write concurrently.
	dbPath := envOrDefault("CIVICWATCH_DB", "civicwatch.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	acctStore := accountStore.NewSQLiteStore(db)
	stores := &web.Stores{
		DigestStore:  digestStore.NewSQLiteStore(db),
		ContactStore: contactStore.NewSQLiteStore(db),
		AccountStore: acctStore,
	}

	// Seed the bootstrap admin on an empty database.
	seedInput := orchestrators.SeedAdminInput{
		Email:    os.Getenv("CIVICWATCH_ADMIN_EMAIL"),
		Password: os.Getenv("CIVICWATCH_ADMIN_PASSWORD"),
	}
	seedDeps := orchestrators.SeedAdminDeps{Accounts: acctStore, GenerateID: uuid.NewString, Now: time.Now}
	if err := orchestrators.ExecuteSeedAdmin(context.Background(), seedInput, seedDeps); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	// Configure email sender
	if cfg.ResendKey != "" {
		web.SetEmailSender(emailPkg.NewResendSender(cfg.ResendKey, cfg.Email.From), cfg.Email.From, cfg.Email.ReplyTo)
		slog.Info("email sender configured", "provider", "resend")
	} else {
		web.SetEmailSender(emailPkg.NewNoopSender(), cfg.Email.From, cfg.Email.ReplyTo)
		if isProd {
			slog.Warn("CIVICWATCH_RESEND_KEY is not set; email delivery is DISABLED in production")
		} else {
			slog.Info("email sender configured", "provider", "noop")
		}
	}

	if cfg.TokenSecret == "" {
		if isProd {
			log.Fatal("CIVICWATCH_TOKEN_SECRET is required in production")
		}
		cfg.TokenSecret = "development-token-secret"
		slog.Warn("using development token secret; signed links are not safe for production")
	}
	if cfg.CronSecret == "" && isProd {
		log.Fatal("CIVICWATCH_CRON_SECRET is required in production")
	}

	middleware.SecureCookies = isProd

	feedClient := feedPkg.NewClient(cfg.Feed.BaseURL, cfg.Feed.Timeout())

	mux := web.NewMux(stores, feedClient, token.NewSigner(cfg.TokenSecret), web.Options{
		BaseURL:        cfg.Server.BaseURL,
		OperatorEmail:  cfg.Digest.OperatorEmail,
		DefaultLocale:  cfg.Site.DefaultLocale,
		Locales:        cfg.Site.Locales,
		BatchSize:      cfg.Digest.BatchSize,
		Location:       cfg.Site.Location(),
		ApprovalTTL:    time.Duration(cfg.Digest.ApprovalTTLHours) * time.Hour,
		CronSecret:     cfg.CronSecret,
		CSRFKey:        loadCSRFKey(cfg.CSRFKeyHex, isProd),
		TrustedOrigins: []string{"localhost:8080", "127.0.0.1:8080"},
	})

	slog.Info("civicwatch starting", "version", version, "addr", cfg.Server.Addr,
		"env", cfg.Server.Env, "timezone", cfg.Site.Timezone)

	if err := http.ListenAndServe(cfg.Server.Addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// loadCSRFKey decodes the CSRF secret (hex-encoded, 32 bytes). In
// production the key MUST be set; in development a random per-startup key
// is generated.
func loadCSRFKey(keyHex string, isProd bool) []byte {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("CIVICWATCH_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if isProd {
		log.Fatal("CIVICWATCH_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	slog.Warn("using random CSRF key; set CIVICWATCH_CSRF_KEY for production")
	return key
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
