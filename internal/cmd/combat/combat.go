// Package combat parses combat server flags and starts the service.
package combat

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/shadowtrack/internal/platform/cmd"
	server "github.com/louisbranch/shadowtrack/internal/services/combat/app"
)

// Config holds combat command configuration.
type Config struct {
	HTTPAddr       string        `env:"SHADOWTRACK_COMBAT_HTTP_ADDR"       envDefault:":8090"`
	DBPath         string        `env:"SHADOWTRACK_COMBAT_DB_PATH"         envDefault:"data/combat.db"`
	TokenSecret    string        `env:"SHADOWTRACK_COMBAT_TOKEN_SECRET"`
	TokenIssuer    string        `env:"SHADOWTRACK_COMBAT_TOKEN_ISSUER"    envDefault:"shadowtrack"`
	TokenTTL       time.Duration `env:"SHADOWTRACK_COMBAT_TOKEN_TTL"       envDefault:"12h"`
	Locale         string        `env:"SHADOWTRACK_COMBAT_LOCALE"          envDefault:"en-US"`
	OriginPatterns []string      `env:"SHADOWTRACK_COMBAT_ORIGIN_PATTERNS" envSeparator:","`
	FeedLimit      int           `env:"SHADOWTRACK_COMBAT_FEED_LIMIT"      envDefault:"500"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "combat HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "combat SQLite database path")
	fs.StringVar(&cfg.TokenIssuer, "token-issuer", cfg.TokenIssuer, "participant token issuer")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "participant token lifetime")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for the server combat log")
	fs.IntVar(&cfg.FeedLimit, "feed-limit", cfg.FeedLimit, "records kept for the combat log")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("SHADOWTRACK_COMBAT_TOKEN_SECRET is required")
	}
	return cfg, nil
}

// Run starts the combat server with telemetry.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCombat, func(ctx context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:       cfg.HTTPAddr,
			DBPath:         cfg.DBPath,
			TokenSecret:    cfg.TokenSecret,
			TokenIssuer:    cfg.TokenIssuer,
			TokenTTL:       cfg.TokenTTL,
			Locale:         cfg.Locale,
			OriginPatterns: cfg.OriginPatterns,
			FeedLimit:      cfg.FeedLimit,
		}); err != nil {
			return fmt.Errorf("serve combat: %w", err)
		}
		return nil
	})
}
