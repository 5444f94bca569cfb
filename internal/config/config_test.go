package config

import "testing"

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "memory"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Extraction.ConfidenceThreshold != 0.7 {
		t.Errorf("confidence threshold = %f, want 0.7", cfg.Extraction.ConfidenceThreshold)
	}
	if cfg.Enrichment.MinScore != 0.6 {
		t.Errorf("min score = %f, want 0.6", cfg.Enrichment.MinScore)
	}
	if cfg.Enrichment.ConfidenceSampleDivisor != 10 {
		t.Errorf("sample divisor = %d, want 10", cfg.Enrichment.ConfidenceSampleDivisor)
	}
	if cfg.Fusion.RRFK != 60 {
		t.Errorf("rrf k = %d, want 60", cfg.Fusion.RRFK)
	}
	if cfg.Search.SpaceTimeoutSec != 3 {
		t.Errorf("space timeout = %d, want 3", cfg.Search.SpaceTimeoutSec)
	}
	if len(cfg.Spaces) != 5 {
		t.Fatalf("expected 5 default spaces, got %d", len(cfg.Spaces))
	}
	if cfg.Spaces[0].Name != "semantic" {
		t.Errorf("first default space = %q, want semantic", cfg.Spaces[0].Name)
	}
	if cfg.Cache.StatisticsTTLSec <= cfg.Cache.ResultsTTLSec {
		t.Error("statistics TTL should exceed results TTL")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "redis"
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "postgres"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestValidate_DuplicateSpace(t *testing.T) {
	cfg := validConfig()
	cfg.Spaces = append(cfg.Spaces, SpaceConfig{Name: "semantic", Weight: 1})

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for duplicate space name")
	}
}

func TestValidate_MissingSemanticSpace(t *testing.T) {
	cfg := validConfig()
	cfg.Spaces = []SpaceConfig{{Name: "category", Weight: 1}}
	cfg.Enrichment.Spaces = []string{"category"}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when semantic space is missing")
	}
}

func TestValidate_EnrichmentUnknownSpace(t *testing.T) {
	cfg := validConfig()
	cfg.Enrichment.Spaces = []string{"nonexistent"}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown enrichment space")
	}
}

func TestValidate_UnknownStrategy(t *testing.T) {
	cfg := validConfig()
	cfg.Fusion.DefaultStrategy = "borda"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown fusion strategy")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("QF_TEST_KEY", "secret")

	out := string(expandEnvVars([]byte("api_key: ${QF_TEST_KEY}")))
	if out != "api_key: secret" {
		t.Errorf("got %q", out)
	}

	out = string(expandEnvVars([]byte("addr: ${QF_UNSET_VAR:-localhost:6379}")))
	if out != "addr: localhost:6379" {
		t.Errorf("got %q", out)
	}
}
