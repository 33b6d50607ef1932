// Package config loads and hot-reloads the hub's configuration.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RetryStep is one entry of the configured retry back-off schedule.
type RetryStep struct {
	Delay time.Duration
}

// Config holds every recognized runtime option for the hub.
type Config struct {
	OutboundNotificationsURL string
	GatewayAuthToken         string
	APIPlatformEventsURL     string

	NumberOfNotificationsToRetrievePerRequest int
	NotificationTTL                           time.Duration

	RetryIntervalSchedule []RetryStep
	RetryWindow           time.Duration
	SweepInterval         time.Duration

	WhitelistedUserAgents []string

	MessageEncryptionKeys [][]byte

	GatewayCallTimeout time.Duration
}

// Load reads .env (if present) then the process environment, and validates
// every field required for the hub to start. A missing required field is a
// fatal configuration error.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		OutboundNotificationsURL: os.Getenv("PPNS_OUTBOUND_NOTIFICATIONS_URL"),
		GatewayAuthToken:         os.Getenv("PPNS_GATEWAY_AUTH_TOKEN"),
		APIPlatformEventsURL:     os.Getenv("PPNS_API_PLATFORM_EVENTS_URL"),
	}

	if cfg.OutboundNotificationsURL == "" {
		return nil, fmt.Errorf("config: PPNS_OUTBOUND_NOTIFICATIONS_URL is required")
	}
	if cfg.GatewayAuthToken == "" {
		return nil, fmt.Errorf("config: PPNS_GATEWAY_AUTH_TOKEN is required")
	}
	if cfg.APIPlatformEventsURL == "" {
		return nil, fmt.Errorf("config: PPNS_API_PLATFORM_EVENTS_URL is required")
	}
	if os.Getenv("PPNS_MESSAGE_ENCRYPTION_KEYS") == "" {
		return nil, fmt.Errorf("config: PPNS_MESSAGE_ENCRYPTION_KEYS is required")
	}

	limit, err := intEnv("PPNS_NOTIFICATIONS_PER_REQUEST", 100)
	if err != nil {
		return nil, err
	}
	cfg.NumberOfNotificationsToRetrievePerRequest = limit

	ttlSeconds, err := intEnv("PPNS_NOTIFICATION_TTL_SECONDS", 60*60*24*30)
	if err != nil {
		return nil, err
	}
	cfg.NotificationTTL = time.Duration(ttlSeconds) * time.Second

	schedule, err := parseSchedule(getenvDefault("PPNS_RETRY_INTERVAL_SCHEDULE", "1s,5s,30s,5m,1h"))
	if err != nil {
		return nil, err
	}
	cfg.RetryIntervalSchedule = schedule

	retryWindowSeconds, err := intEnv("PPNS_RETRY_WINDOW_SECONDS", 60*60*24)
	if err != nil {
		return nil, err
	}
	cfg.RetryWindow = time.Duration(retryWindowSeconds) * time.Second

	sweepSeconds, err := intEnv("PPNS_SWEEP_INTERVAL_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.SweepInterval = time.Duration(sweepSeconds) * time.Second

	gatewayTimeoutMillis, err := intEnv("PPNS_GATEWAY_TIMEOUT_MILLIS", 5000)
	if err != nil {
		return nil, err
	}
	cfg.GatewayCallTimeout = time.Duration(gatewayTimeoutMillis) * time.Millisecond

	uaList := os.Getenv("PPNS_WHITELISTED_USER_AGENTS")
	if uaList != "" {
		cfg.WhitelistedUserAgents = strings.Split(uaList, ",")
	}

	keys, err := parseKeyset(os.Getenv("PPNS_MESSAGE_ENCRYPTION_KEYS"))
	if err != nil {
		return nil, err
	}
	cfg.MessageEncryptionKeys = keys

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func parseSchedule(raw string) ([]RetryStep, error) {
	parts := strings.Split(raw, ",")
	schedule := make([]RetryStep, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		d, err := time.ParseDuration(p)
		if err != nil {
			return nil, fmt.Errorf("config: invalid retry schedule entry %q: %w", p, err)
		}
		schedule = append(schedule, RetryStep{Delay: d})
	}
	if len(schedule) == 0 {
		return nil, fmt.Errorf("config: retry schedule must have at least one step")
	}
	return schedule, nil
}

func parseKeyset(raw string) ([][]byte, error) {
	parts := strings.Split(raw, ";")
	keys := make([][]byte, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return nil, fmt.Errorf("config: invalid encryption key encoding: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("config: encryption keys must decode to 32 bytes, got %d", len(key))
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("config: PPNS_MESSAGE_ENCRYPTION_KEYS set but empty after parsing")
	}
	return keys, nil
}
