package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewConfigWithJSON(t *testing.T) {
	configPath := writeConfig(t, "config.json", `{
		"server_address": "json:8080",
		"base_url": "http://json",
		"enable_https": true,
		"session_ttl": "12h",
		"oauth_client_id": "client-json"
	}`)
	resetFlags(t, "-c", configPath)

	cfg := NewConfig()

	if cfg.ServerAddress != "json:8080" {
		t.Errorf("NewConfig() ServerAddress = %v, want %v", cfg.ServerAddress, "json:8080")
	}

	if cfg.BaseURL != "http://json" {
		t.Errorf("NewConfig() BaseURL = %v, want %v", cfg.BaseURL, "http://json")
	}

	if !cfg.EnableHTTPS {
		t.Errorf("NewConfig() EnableHTTPS = %v, want %v", cfg.EnableHTTPS, true)
	}

	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("NewConfig() SessionTTL = %v, want %v", cfg.SessionTTL, 12*time.Hour)
	}

	if cfg.OAuthClientID != "client-json" {
		t.Errorf("NewConfig() OAuthClientID = %v, want %v", cfg.OAuthClientID, "client-json")
	}

	if cfg.GRPCAddress != ":3200" {
		t.Errorf("NewConfig() GRPCAddress = %v, want default %v", cfg.GRPCAddress, ":3200")
	}
}

func TestNewConfigWithYAML(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
server_address: yaml:8080
backend: supabase
supabase_url: https://project.supabase.co
supabase_anon_key: anon
redis_db: 2
session_ttl: 30m
`)
	resetFlags(t)
	t.Setenv("CONFIG", configPath)

	cfg := NewConfig()

	if cfg.ServerAddress != "yaml:8080" {
		t.Errorf("NewConfig() ServerAddress = %v, want %v", cfg.ServerAddress, "yaml:8080")
	}

	if cfg.Backend != BackendSupabase {
		t.Errorf("NewConfig() Backend = %v, want %v", cfg.Backend, BackendSupabase)
	}

	if cfg.SupabaseAnonKey != "anon" {
		t.Errorf("NewConfig() SupabaseAnonKey = %v, want %v", cfg.SupabaseAnonKey, "anon")
	}

	if cfg.RedisDB != 2 {
		t.Errorf("NewConfig() RedisDB = %v, want %v", cfg.RedisDB, 2)
	}

	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("NewConfig() SessionTTL = %v, want %v", cfg.SessionTTL, 30*time.Minute)
	}

	if cfg.ConfigPath != configPath {
		t.Errorf("NewConfig() ConfigPath = %v, want %v", cfg.ConfigPath, configPath)
	}
}

func TestNewConfigJSONPriority(t *testing.T) {
	// 1. JSON says "json:8080"
	// 2. Flag says "flag:8080"
	// 3. Env says "env:8080"
	// Env should win.
	configPath := writeConfig(t, "config.json", `{"server_address": "json:8080", "base_url": "http://json"}`)

	resetFlags(t, "-c", configPath, "-a", "flag:8080", "-b", "http://flag")
	t.Setenv("SERVER_ADDRESS", "env:8080")

	cfg := NewConfig()

	if cfg.ServerAddress != "env:8080" {
		t.Errorf("NewConfig() ServerAddress = %v, want %v", cfg.ServerAddress, "env:8080")
	}

	if cfg.BaseURL != "http://flag" {
		t.Errorf("NewConfig() BaseURL = %v, want %v", cfg.BaseURL, "http://flag")
	}
}

func TestNewConfigInvalidFileKeepsDefaults(t *testing.T) {
	configPath := writeConfig(t, "config.json", `{"server_address": `)
	resetFlags(t, "-c", configPath)

	cfg := NewConfig()

	if cfg.ServerAddress != ":8080" {
		t.Errorf("NewConfig() ServerAddress = %v, want %v", cfg.ServerAddress, ":8080")
	}
}
