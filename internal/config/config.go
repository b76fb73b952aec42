package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/adpatel/circleback/internal/nudge"
	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	Port             string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	OpenAIAPIKey     string
	DatabaseURL      string
	LocalTimezone    *time.Location
	Nudge            nudge.Settings
}

// Load reads configuration values and prepares defaults where applicable.
func Load() *Config {
	_ = godotenv.Load()

	port := getenvDefault("PORT", "8080")
	accountSID := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	fromNumber := os.Getenv("TWILIO_FROM_NUMBER")
	openAIKey := os.Getenv("OPENAI_API_KEY")
	databaseURL := os.Getenv("DATABASE_URL")
	timezoneName := getenvDefault("LOCAL_TIMEZONE", "Local")

	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		log.Printf("config: invalid LOCAL_TIMEZONE %q, defaulting to system local: %v", timezoneName, err)
		location = time.Local
	}

	settings := nudge.DefaultSettings(location)
	settings.IndividualCap = ParseIntEnv("NUDGE_INDIVIDUAL_CAP", settings.IndividualCap)
	settings.DigestCap = ParseIntEnv("NUDGE_DIGEST_CAP", settings.DigestCap)
	settings.CooldownHours = ParseIntEnv("NUDGE_COOLDOWN_HOURS", settings.CooldownHours)
	settings.WindowHour = ParseIntEnv("NUDGE_WINDOW_HOUR", settings.WindowHour)
	settings.CutoffHour = ParseIntEnv("NUDGE_CUTOFF_HOUR", settings.CutoffHour)
	settings.DeliveryBatchSize = ParseIntEnv("NUDGE_DELIVERY_BATCH", settings.DeliveryBatchSize)
	settings.Thresholds.OverdueMultiplier = ParseFloatEnv("NUDGE_OVERDUE_MULTIPLIER", settings.Thresholds.OverdueMultiplier)
	settings.Thresholds.GraceDays = ParseIntEnv("NUDGE_GRACE_DAYS", settings.Thresholds.GraceDays)

	return &Config{
		Port:             port,
		TwilioAccountSID: accountSID,
		TwilioAuthToken:  authToken,
		TwilioFromNumber: fromNumber,
		OpenAIAPIKey:     openAIKey,
		DatabaseURL:      databaseURL,
		LocalTimezone:    location,
		Nudge:            settings,
	}
}

func getenvDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

// ParseIntEnv returns the integer value for an environment variable or the provided default.
func ParseIntEnv(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("config: unable to parse %s=%q as int: %v", key, value, err)
		return def
	}
	return parsed
}

// ParseFloatEnv returns the float value for an environment variable or the provided default.
func ParseFloatEnv(key string, def float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("config: unable to parse %s=%q as float: %v", key, value, err)
		return def
	}
	return parsed
}
