package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds every setting read from the environment
type AppConfig struct {
	Port string
	Env  string

	MongoURI string
	DBName   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	JWTExpiry time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	// StripePrices maps plan names to Stripe price IDs
	StripePrices map[string]string

	AppleBundleID        string
	AppleRootCertPath    string
	AppleAllowUnverified bool
	// AppleProducts maps App Store product IDs to plan names
	AppleProducts map[string]string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	FirebaseProjectID         string
	FirebaseCredentialsFile   string
	FirebaseCredentialsBase64 string

	PostHogAPIKey string
	PostHogHost   string

	TTSBaseURL string
	TTSAPIKey  string
	TTSModel   string

	SiteURL     string
	CORSOrigins []string
}

// stripePriceEnv lists the env vars holding each plan's price
var stripePriceEnv = map[string]string{
	"premium":          "STRIPE_PRICE_PREMIUM",
	"business_starter": "STRIPE_PRICE_BUSINESS_STARTER",
	"business_premium": "STRIPE_PRICE_BUSINESS_PREMIUM",
	"sponsor_bronze":   "STRIPE_PRICE_SPONSOR_BRONZE",
	"sponsor_silver":   "STRIPE_PRICE_SPONSOR_SILVER",
	"sponsor_gold":     "STRIPE_PRICE_SPONSOR_GOLD",
	"sponsor_platinum": "STRIPE_PRICE_SPONSOR_PLATINUM",
}

// Load reads .env when present and then the environment
func Load() *AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := &AppConfig{
		Port:                      getEnv("PORT", "8080"),
		Env:                       getEnv("ENV", "development"),
		MongoURI:                  firstEnv("MONGO_URI", "MONGODB_URI"),
		DBName:                    getEnv("DB_NAME", "mansamusa"),
		RedisAddr:                 getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:                   getInt("REDIS_DB", 0),
		JWTSecret:                 os.Getenv("JWT_SECRET"),
		JWTExpiry:                 getDuration("JWT_EXPIRY", 72*time.Hour),
		StripeSecretKey:           os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:       os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePrices:              map[string]string{},
		AppleBundleID:             os.Getenv("APPLE_BUNDLE_ID"),
		AppleRootCertPath:         os.Getenv("APPLE_ROOT_CERT_PATH"),
		AppleAllowUnverified:      getBool("APPLE_ALLOW_UNVERIFIED", false),
		AppleProducts:             parsePairs(os.Getenv("APPLE_PRODUCTS")),
		SMTPHost:                  os.Getenv("SMTP_HOST"),
		SMTPPort:                  getInt("SMTP_PORT", 587),
		SMTPUsername:              os.Getenv("SMTP_USERNAME"),
		SMTPPassword:              os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:                  os.Getenv("SMTP_FROM"),
		FirebaseProjectID:         os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCredentialsFile:   os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		FirebaseCredentialsBase64: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
		PostHogAPIKey:             os.Getenv("POSTHOG_API_KEY"),
		PostHogHost:               os.Getenv("POSTHOG_HOST"),
		TTSBaseURL:                os.Getenv("TTS_BASE_URL"),
		TTSAPIKey:                 os.Getenv("TTS_API_KEY"),
		TTSModel:                  os.Getenv("TTS_MODEL"),
		SiteURL:                   getEnv("SITE_URL", "https://mansamusamarketplace.com"),
		CORSOrigins:               splitList(os.Getenv("CORS_ORIGINS")),
	}
	for plan, key := range stripePriceEnv {
		if v := os.Getenv(key); v != "" {
			cfg.StripePrices[plan] = v
		}
	}

	if cfg.MongoURI == "" {
		if cfg.IsDevelopment() {
			cfg.MongoURI = "mongodb://localhost:27017"
		} else {
			log.Fatal("MONGO_URI or MONGODB_URI environment variable is required for production")
		}
	}
	if cfg.JWTSecret == "" {
		if cfg.IsDevelopment() {
			log.Println("WARNING: JWT_SECRET is not set; using an insecure development secret")
			cfg.JWTSecret = "dev-secret-change-me"
		} else {
			log.Fatal("JWT_SECRET environment variable is required for production")
		}
	}
	return cfg
}

func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Invalid integer for %s: %q", key, v)
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s: %q", key, v)
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePairs reads "a=x,b=y"
func parsePairs(v string) map[string]string {
	out := map[string]string{}
	for _, part := range splitList(v) {
		k, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return out
}
