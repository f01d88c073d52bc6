package library

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config collects the environment the client needs. The collaborator's base
// URL is the only required setting.
type Config struct {
	APIBaseURL       string
	SessionDBPath    string
	LoanDurationDays int
}

// LoadConfig reads .env if present (ok if missing), then the environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	baseURL := os.Getenv("LIBRARY_API_URL")
	if baseURL == "" {
		return Config{}, fmt.Errorf("missing required env LIBRARY_API_URL")
	}

	cfg := Config{
		APIBaseURL:       baseURL,
		SessionDBPath:    getenvDefault("LIBRARY_SESSION_DB", "session.db"),
		LoanDurationDays: DefaultLoanDurationDays,
	}

	if v := os.Getenv("LOAN_DURATION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return Config{}, fmt.Errorf("invalid LOAN_DURATION_DAYS: %q", v)
		}
		cfg.LoanDurationDays = days
	}

	return cfg, nil
}

func getenvDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
