package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.GracePeriod != 20*time.Minute {
		t.Errorf("GracePeriod = %s, want 20m", cfg.GracePeriod)
	}
	if cfg.TypingTTL != 3*time.Second {
		t.Errorf("TypingTTL = %s, want 3s", cfg.TypingTTL)
	}
	if cfg.Location == nil {
		t.Error("Location is nil")
	}
	if cfg.Postgres.Enabled {
		t.Error("Postgres archive must be disabled by default")
	}
	if cfg.WS.ReadLimit != 65536 {
		t.Errorf("WS.ReadLimit = %d, want 65536", cfg.WS.ReadLimit)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("GRACE_PERIOD", "30m")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("WS_RATE_BURST", "5")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.GracePeriod != 30*time.Minute {
		t.Errorf("GracePeriod = %s, want 30m", cfg.GracePeriod)
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %s, want UTC", cfg.Location)
	}
	if cfg.WS.RateBurst != 5 {
		t.Errorf("WS.RateBurst = %d, want 5", cfg.WS.RateBurst)
	}
}

func TestNewRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"unknown timezone": {"TIMEZONE", "Mars/Olympus"},
		"zero typing ttl":  {"TYPING_TTL", "0s"},
		"bad duration":     {"GRACE_PERIOD", "soon"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])

			if _, err := New(); err == nil {
				t.Fatalf("New() with %s=%s: expected error", kv[0], kv[1])
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSL: "disable"}
	if got, want := p.DSN(), "postgresql://u:p@db:5433/n?sslmode=disable"; got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	p.URL = "postgres://override"
	if got := p.DSN(); got != "postgres://override" {
		t.Errorf("DSN() with URL = %q", got)
	}
}

func TestNewArchiveBackends(t *testing.T) {
	t.Run("s3 without bucket", func(t *testing.T) {
		t.Setenv("S3_ENABLED", "true")

		if _, err := New(); err == nil {
			t.Fatal("expected error for s3 archive without bucket")
		}
	})

	t.Run("both archives", func(t *testing.T) {
		t.Setenv("S3_ENABLED", "true")
		t.Setenv("S3_BUCKET", "reveals")
		t.Setenv("POSTGRES_ENABLED", "true")

		if _, err := New(); err == nil {
			t.Fatal("expected error when postgres and s3 are both enabled")
		}
	})

	t.Run("s3 only", func(t *testing.T) {
		t.Setenv("S3_ENABLED", "true")
		t.Setenv("S3_BUCKET", "reveals")

		cfg, err := New()
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if cfg.S3.Prefix != "reveals/" || cfg.S3.Region != "us-east-1" {
			t.Errorf("S3 defaults = %+v", cfg.S3)
		}
	})
}
