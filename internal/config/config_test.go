package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/gateway")
	t.Setenv("QUERY_SERVICE_URL", "http://rag:9000")
	t.Setenv("ASSERTION_SECRET", "s3cret")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddress() != ":8080" || cfg.DirectoryDriver != DriverPostgres {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RequestTimeout != 30*time.Second || cfg.AssertionTTL != time.Minute {
		t.Fatalf("unexpected durations: %v %v", cfg.RequestTimeout, cfg.AssertionTTL)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"*"}) {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DIRECTORY_DRIVER", " SQLite ")
	t.Setenv("SQLITE_PATH", "/tmp/users.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DirectoryDriver != DriverSQLite || cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"https://a.example.com", "https://b.example.com"}) {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		unset string
		extra map[string]string
		want  string
	}{
		{name: "database url", unset: "DATABASE_URL", want: "DATABASE_URL is required"},
		{name: "query service", unset: "QUERY_SERVICE_URL", want: "QUERY_SERVICE_URL is required"},
		{name: "secret", unset: "ASSERTION_SECRET", want: "ASSERTION_SECRET is required"},
		{name: "driver", extra: map[string]string{"DIRECTORY_DRIVER": "mongo"}, want: "unsupported DIRECTORY_DRIVER"},
		{name: "sqlite path", extra: map[string]string{"DIRECTORY_DRIVER": "sqlite"}, want: "SQLITE_PATH is required"},
		{name: "bad duration", extra: map[string]string{"REQUEST_TIMEOUT": "soon"}, want: "parse env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			if tt.unset != "" {
				t.Setenv(tt.unset, "")
			}
			for k, v := range tt.extra {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want %q", err, tt.want)
			}
		})
	}
}
