package combat

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("SHADOWTRACK_COMBAT_TOKEN_SECRET", "secret")
	fs := flag.NewFlagSet("combat", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8090" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "data/combat.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Fatalf("expected default token ttl, got %v", cfg.TokenTTL)
	}
	if cfg.Locale != "en-US" {
		t.Fatalf("expected default locale, got %q", cfg.Locale)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("SHADOWTRACK_COMBAT_TOKEN_SECRET", "secret")
	t.Setenv("SHADOWTRACK_COMBAT_HTTP_ADDR", "env-addr")
	t.Setenv("SHADOWTRACK_COMBAT_ORIGIN_PATTERNS", "a.example,b.example")
	t.Setenv("SHADOWTRACK_COMBAT_LOCALE", "pt-BR")

	fs := flag.NewFlagSet("combat", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "flag-addr", "-feed-limit", "10"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-addr" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.FeedLimit != 10 {
		t.Fatalf("expected flag feed limit, got %d", cfg.FeedLimit)
	}
	if cfg.Locale != "pt-BR" {
		t.Fatalf("expected env locale, got %q", cfg.Locale)
	}
	if len(cfg.OriginPatterns) != 2 || cfg.OriginPatterns[1] != "b.example" {
		t.Fatalf("origin patterns = %v", cfg.OriginPatterns)
	}
}

func TestParseConfigRequiresSecret(t *testing.T) {
	t.Setenv("SHADOWTRACK_COMBAT_TOKEN_SECRET", "")
	fs := flag.NewFlagSet("combat", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected missing secret error")
	}
}
