package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.Env != "development" || !cfg.IsDevelopment() {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if !cfg.Auth.SingleUseCodes {
		t.Fatal("single-use codes should default to on")
	}
	if cfg.Auth.TokenTTL != 24*time.Hour || cfg.Auth.SignupCooldown != 0 {
		t.Fatalf("unexpected auth defaults: %+v", cfg.Auth)
	}
	if cfg.Mail.Backend != MailBackendConsole || cfg.RatingWorkers != 8 {
		t.Fatalf("unexpected defaults: mail=%q workers=%d", cfg.Mail.Backend, cfg.RatingWorkers)
	}
	if cfg.Mongo.Database != "yamdb" {
		t.Fatalf("unexpected mongo db %q", cfg.Mongo.Database)
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":       "s3cret",
		"ENV":              "production",
		"SINGLE_USE_CODES": "false",
		"SIGNUP_COOLDOWN":  "45s",
		"MAIL_BACKEND":     "smtp",
		"MAIL_SMTP_HOST":   "smtp.example.com",
		"MAIL_SMTP_PORT":   "2525",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IsDevelopment() || cfg.Auth.SingleUseCodes || cfg.Auth.SignupCooldown != 45*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Mail.Host != "smtp.example.com" || cfg.Mail.Port != 2525 {
		t.Fatalf("unexpected mail config: %+v", cfg.Mail)
	}
}

func TestLoadWith_BadDuration(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "x",
		"TOKEN_TTL":  "forever",
	}))
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoadWith_Invalid(t *testing.T) {
	cases := map[string]struct {
		env  map[string]string
		want string
	}{
		"missing secret": {
			env:  map[string]string{},
			want: "JWT_SECRET",
		},
		"unknown mail backend": {
			env:  map[string]string{"JWT_SECRET": "x", "MAIL_BACKEND": "pigeon"},
			want: "MAIL_BACKEND",
		},
		"smtp without host": {
			env:  map[string]string{"JWT_SECRET": "x", "MAIL_BACKEND": "smtp"},
			want: "MAIL_SMTP_HOST",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadWith(context.Background(), envconfig.MapLookuper(tc.env))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
