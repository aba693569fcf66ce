package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// GatewayConfig holds one payment provider's credentials. Secrets are only
// ever used server-side; nothing here is serialized into responses.
type GatewayConfig struct {
	BaseURL    string
	SecretKey  string
	MerchantID string
}

type Config struct {
	Port        string
	DatabaseURL string
	Env         string

	JWTSecret string

	Paystack GatewayConfig
	Korapay  GatewayConfig
	Voguepay GatewayConfig

	// Upstream SMM panel the orders are resold through.
	ProviderAPIURL string
	ProviderAPIKey string

	// Seed values for the settings table; the live values are read from
	// storage on every eligibility check so admins can change them at runtime.
	RewardThreshold decimal.Decimal
	RewardAmount    decimal.Decimal

	// Requests per minute. IP is looser than user since NATs share IPs.
	RateLimitIPPerMin   int
	RateLimitUserPerMin int
}

// LoadConfig reads .env if present and falls back to system env variables.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on system env variables")
	}

	return &Config{
		Port:        getEnv("PORT", "3000"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Env:         getEnv("ENV", "development"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		Paystack: GatewayConfig{
			BaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			SecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
		},
		Korapay: GatewayConfig{
			BaseURL:   getEnv("KORAPAY_BASE_URL", "https://api.korapay.com"),
			SecretKey: getEnv("KORAPAY_SECRET_KEY", ""),
		},
		Voguepay: GatewayConfig{
			BaseURL:    getEnv("VOGUEPAY_BASE_URL", "https://voguepay.com"),
			MerchantID: getEnv("VOGUEPAY_MERCHANT_ID", ""),
		},
		ProviderAPIURL:      getEnv("PROVIDER_API_URL", ""),
		ProviderAPIKey:      getEnv("PROVIDER_API_KEY", ""),
		RewardThreshold:     getDecimal("REWARD_THRESHOLD", "15.00"),
		RewardAmount:        getDecimal("REWARD_AMOUNT", "1.00"),
		RateLimitIPPerMin:   getInt("RATE_LIMIT_IP_PER_MIN", 30),
		RateLimitUserPerMin: getInt("RATE_LIMIT_USER_PER_MIN", 10),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer env value, using fallback", "key", key, "value", raw)
		return fallback
	}
	return n
}

func getDecimal(key, fallback string) decimal.Decimal {
	raw := getEnv(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		slog.Warn("Invalid decimal env value, using fallback", "key", key, "value", raw)
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}
