package config

import "testing"

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 0},
		Database: DatabaseConfig{
			Driver: "redis",
			Addrs:  []string{"localhost:6379"},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "postgres"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Driver: "redis",
			Addrs:  []string{},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_MemoryDriverNeedsNoAddrs(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "memory"},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_EmbeddingNeedsDimensions(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Database:  DatabaseConfig{Driver: "memory"},
		Embedding: EmbeddingConfig{APIKey: "test-key"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing embedding dimensions")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver='redis', got %q", cfg.Database.Driver)
	}
	if cfg.Queue.BatchSize != 10 {
		t.Errorf("expected BatchSize=10, got %d", cfg.Queue.BatchSize)
	}
	if cfg.Queue.MaxAttempts != 8 {
		t.Errorf("expected MaxAttempts=8, got %d", cfg.Queue.MaxAttempts)
	}
	if cfg.Queue.VisibilityTimeoutSec != 120 {
		t.Errorf("expected VisibilityTimeoutSec=120, got %d", cfg.Queue.VisibilityTimeoutSec)
	}
	if cfg.Dedup.DownloadWindowSec != 86400 {
		t.Errorf("expected DownloadWindowSec=86400, got %d", cfg.Dedup.DownloadWindowSec)
	}
	if cfg.Dedup.ViewWindowSec != 3600 {
		t.Errorf("expected ViewWindowSec=3600, got %d", cfg.Dedup.ViewWindowSec)
	}
	if cfg.Enrich.PreviewRows != 10 {
		t.Errorf("expected PreviewRows=10, got %d", cfg.Enrich.PreviewRows)
	}
	if cfg.Storage.KeyPrefix != "datahub:" {
		t.Errorf("expected KeyPrefix='datahub:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: "memory", ReadinessTimeout: 15},
		Queue:    QueueConfig{BatchSize: 50, MaxAttempts: 3},
		Dedup:    DedupConfig{DownloadWindowSec: 60, ViewWindowSec: 30},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("expected Driver='memory', got %q", cfg.Database.Driver)
	}
	if cfg.Queue.BatchSize != 50 || cfg.Queue.MaxAttempts != 3 {
		t.Errorf("queue overrides lost: %+v", cfg.Queue)
	}
	if cfg.Dedup.DownloadWindowSec != 60 {
		t.Errorf("expected DownloadWindowSec=60, got %d", cfg.Dedup.DownloadWindowSec)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}
