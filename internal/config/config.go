package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port              int
	JWTSecret         string
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	MPAccessToken     string
	MPWebhookSecret   string
	CORSOrigins       []string
	AdminEmail        string
	AdminPassword     string
	GuestDailyLimit   int
	GuestMonthlyLimit int
	QuotaFailPolicy   string // "allow" or "deny"
	UseMockGateway    bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port, _ := strconv.Atoi(getEnv("PORT", "4001"))

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	useMock := getEnv("PAYMENT_GATEWAY", "mercadopago") == "mock"
	mpToken := getEnv("MP_ACCESS_TOKEN", "")
	if mpToken == "" && !useMock {
		return nil, fmt.Errorf("MP_ACCESS_TOKEN is required (or set PAYMENT_GATEWAY=mock)")
	}

	failPolicy := getEnv("QUOTA_ON_BACKEND_ERROR", "allow")
	if failPolicy != "allow" && failPolicy != "deny" {
		return nil, fmt.Errorf("QUOTA_ON_BACKEND_ERROR must be \"allow\" or \"deny\", got %q", failPolicy)
	}

	guestDaily, _ := strconv.Atoi(getEnv("GUEST_DAILY_LIMIT", "3"))
	guestMonthly, _ := strconv.Atoi(getEnv("GUEST_MONTHLY_LIMIT", "30"))

	origins := strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,https://corretordetextoonline.com.br"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return &Config{
		Port:              port,
		JWTSecret:         jwtSecret,
		DatabaseURL:       dbURL,
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		MPAccessToken:     mpToken,
		MPWebhookSecret:   getEnv("MP_WEBHOOK_SECRET", ""),
		CORSOrigins:       origins,
		AdminEmail:        getEnv("ADMIN_EMAIL", "admin@corretoria.app"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		GuestDailyLimit:   guestDaily,
		GuestMonthlyLimit: guestMonthly,
		QuotaFailPolicy:   failPolicy,
		UseMockGateway:    useMock,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
