package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	// Create temporary config file
	content := `
server:
  port: 9090
  host: "127.0.0.1"

database:
  host: "testdb"
  port: 5432
  user: "testuser"
  password: "testpass"
  dbname: "audiobooks_test"

auth:
  jwtSecret: "test-secret"
  accessTokenTTL: "10m"
`

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Load config
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify loaded values
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}

	if cfg.Database.DBName != "audiobooks_test" {
		t.Errorf("Expected dbname audiobooks_test, got %s", cfg.Database.DBName)
	}

	if cfg.Auth.JWTSecret != "test-secret" {
		t.Errorf("Expected jwt secret test-secret, got %s", cfg.Auth.JWTSecret)
	}

	if cfg.Auth.AccessTokenTTL.Minutes() != 10 {
		t.Errorf("Expected access token TTL 10m, got %v", cfg.Auth.AccessTokenTTL)
	}

	// Defaults should still apply for untouched sections
	if cfg.Storage.BucketName != "audiobooks" {
		t.Errorf("Expected default bucket audiobooks, got %s", cfg.Storage.BucketName)
	}

	if cfg.Auth.RefreshSecret() != "test-secret" {
		t.Errorf("Expected refresh secret fallback to jwt secret, got %s", cfg.Auth.RefreshSecret())
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}
