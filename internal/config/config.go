package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	ListenAddr   string        `env:"LISTEN_ADDR" envDefault:":3000"`
	AppName      string        `env:"APP_NAME" envDefault:"Wedding RSVP"`
	IsProduction bool          `env:"PRODUCTION" envDefault:"false"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	BodyLimit    int           `env:"BODY_LIMIT" envDefault:"1048576"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"10s"`

	// Backend selects the guest directory: sqlite, sheets or memory
	Backend      string        `env:"BACKEND" envDefault:"sqlite"`
	DatabasePath string        `env:"DATABASE_PATH" envDefault:"data/guests.db"`
	SheetsURL    string        `env:"SHEETS_URL"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`

	MatchThreshold float64 `env:"MATCH_THRESHOLD" envDefault:"90"`
	AdminToken     string  `env:"ADMIN_TOKEN"`
	Console        bool    `env:"CONSOLE" envDefault:"false"`

	WhatsApp WhatsAppConfig `envPrefix:"WHATSAPP_"`
	Wedding  WeddingConfig
}

// WhatsAppConfig configures the optional WhatsApp channel
type WhatsAppConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	DataDir string `env:"DATA_DIR" envDefault:"data"`
	// DefaultCountryCode replaces the trunk 0 of contacts written in local
	// format, e.g. 61 for Australia. Empty leaves local numbers untouched.
	DefaultCountryCode string `env:"DEFAULT_COUNTRY_CODE"`
}

// WeddingConfig holds the details quoted in guest messages
type WeddingConfig struct {
	Date      string `env:"WEDDING_DATE" envDefault:"Saturday, January 1, 2025"`
	Location  string `env:"WEDDING_LOCATION" envDefault:"Venue TBD"`
	BrideName string `env:"BRIDE_NAME" envDefault:"Bride"`
	GroomName string `env:"GROOM_NAME" envDefault:"Groom"`
}

// LoadConfig reads an optional .env file and then the environment
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse env config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case "sqlite", "memory":
	case "sheets":
		if c.SheetsURL == "" {
			return errors.New("SHEETS_URL is required for the sheets backend")
		}
	default:
		return fmt.Errorf("unknown BACKEND %q", c.Backend)
	}
	if strings.TrimLeft(c.WhatsApp.DefaultCountryCode, "0123456789") != "" || strings.HasPrefix(c.WhatsApp.DefaultCountryCode, "0") {
		return fmt.Errorf("WHATSAPP_DEFAULT_COUNTRY_CODE must be digits without + or 00, got %q", c.WhatsApp.DefaultCountryCode)
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 100 {
		return fmt.Errorf("MATCH_THRESHOLD must be in (0,100], got %v", c.MatchThreshold)
	}
	return nil
}
