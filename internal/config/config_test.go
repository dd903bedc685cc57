package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q, want mysql", cfg.Database.Driver)
	}
	if cfg.Auth.PasswordScheme != "sha256" {
		t.Errorf("Auth.PasswordScheme = %q, want sha256", cfg.Auth.PasswordScheme)
	}
	if cfg.Maintenance.OverdueAfter != 24*time.Hour {
		t.Errorf("Maintenance.OverdueAfter = %v, want 24h", cfg.Maintenance.OverdueAfter)
	}
	if cfg.JWT.AccessExpire != 24*time.Hour {
		t.Errorf("JWT.AccessExpire = %v, want 24h", cfg.JWT.AccessExpire)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9090
  timezone: UTC
database:
  driver: sqlite
  sqlite_path: /tmp/lab.db
mysql:
  host: db.internal
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MYSQL_HOST", "override.internal")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.SQLitePath != "/tmp/lab.db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.MySQL.Host != "override.internal" {
		t.Errorf("MySQL.Host = %q, want env override", cfg.MySQL.Host)
	}
	if cfg.Server.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", cfg.Server.Location())
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Load() expected error for unknown driver")
	}
}
