package config

import "testing"

func baseConfig() *Config {
	return &Config{
		Port:          "8000",
		Env:           "development",
		StoreDriver:   "postgres",
		DatabaseURL:   "postgres://localhost/claims",
		FraudAnalyzer: "rules",
		FraudWorkers:  4,
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := baseConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_BadStoreDriver(t *testing.T) {
	cfg := baseConfig()
	cfg.StoreDriver = "sqlite"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown store driver")
	}
}

func TestValidate_MemoryStoreRejectedInProduction(t *testing.T) {
	cfg := baseConfig()
	cfg.Env = "production"
	cfg.StoreDriver = "memory"
	cfg.AuthIssuer = "https://auth.example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for memory store in production")
	}
}

func TestValidate_ProductionRequiresIssuer(t *testing.T) {
	cfg := baseConfig()
	cfg.Env = "production"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing AUTH_ISSUER in production")
	}
	cfg.AuthIssuer = "https://auth.example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with issuer set: %v", err)
	}
}

func TestValidate_RemoteAnalyzerRequiresKey(t *testing.T) {
	cfg := baseConfig()
	cfg.FraudAnalyzer = "remote"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for remote analyzer without API key")
	}
	cfg.OpenAIAPIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with API key set: %v", err)
	}
}

func TestValidate_WorkerCount(t *testing.T) {
	cfg := baseConfig()
	cfg.FraudWorkers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero workers")
	}
}

func TestIsDev(t *testing.T) {
	cfg := baseConfig()
	if !cfg.IsDev() {
		t.Error("expected development mode")
	}
	cfg.Env = "production"
	if cfg.IsDev() {
		t.Error("did not expect development mode")
	}
	if !cfg.IsProduction() {
		t.Error("expected production mode")
	}
}
