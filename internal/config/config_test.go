package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default values",
			env: map[string]string{
				"GENESYS_CLIENT_ID":     "id",
				"GENESYS_CLIENT_SECRET": "secret",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != "8080" {
					t.Errorf("expected port 8080, got %s", cfg.Port)
				}
				if cfg.LogLevel != "info" {
					t.Errorf("expected log level info, got %s", cfg.LogLevel)
				}
				if cfg.GenesysRegion != "mypurecloud.de" {
					t.Errorf("expected region mypurecloud.de, got %s", cfg.GenesysRegion)
				}
				if cfg.PollInterval != 300*time.Second {
					t.Errorf("expected PollInterval 300s, got %v", cfg.PollInterval)
				}
				if cfg.MOSThreshold != 4.5 {
					t.Errorf("expected MOSThreshold 4.5, got %v", cfg.MOSThreshold)
				}
			},
		},
		{
			name: "custom values",
			env: map[string]string{
				"PORT":                  "9000",
				"LOG_LEVEL":             "debug",
				"GENESYS_CLIENT_ID":     "id",
				"GENESYS_CLIENT_SECRET": "secret",
				"GENESYS_REGION":        "mypurecloud.ie",
				"QUEUE_NAME":            "Billing",
				"POLL_INTERVAL":         "60",
				"MOS_THRESHOLD":         "4.2",
				"ALLOWED_ORIGINS":       "http://example.com, http://test.com",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != "9000" {
					t.Errorf("expected port 9000, got %s", cfg.Port)
				}
				if cfg.GenesysRegion != "mypurecloud.ie" {
					t.Errorf("expected region mypurecloud.ie, got %s", cfg.GenesysRegion)
				}
				if cfg.QueueName != "Billing" {
					t.Errorf("expected queue Billing, got %s", cfg.QueueName)
				}
				if cfg.PollInterval != 60*time.Second {
					t.Errorf("expected PollInterval 60s, got %v", cfg.PollInterval)
				}
				if cfg.MOSThreshold != 4.2 {
					t.Errorf("expected MOSThreshold 4.2, got %v", cfg.MOSThreshold)
				}
				if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://test.com" {
					t.Errorf("expected trimmed origins, got %v", cfg.AllowedOrigins)
				}
			},
		},
		{
			name: "missing client id",
			env: map[string]string{
				"GENESYS_CLIENT_SECRET": "secret",
			},
			wantErr: true,
		},
		{
			name: "missing client secret",
			env: map[string]string{
				"GENESYS_CLIENT_ID": "id",
			},
			wantErr: true,
		},
		{
			name: "invalid POLL_INTERVAL",
			env: map[string]string{
				"GENESYS_CLIENT_ID":     "id",
				"GENESYS_CLIENT_SECRET": "secret",
				"POLL_INTERVAL":         "soon",
			},
			wantErr: true,
		},
		{
			name: "invalid MOS_THRESHOLD",
			env: map[string]string{
				"GENESYS_CLIENT_ID":     "id",
				"GENESYS_CLIENT_SECRET": "secret",
				"MOS_THRESHOLD":         "high",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			// Load config
			cfg, err := Load()

			// Check error
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// Run custom checks
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestWebSocketConstants(t *testing.T) {
	os.Clearenv()
	os.Setenv("GENESYS_CLIENT_ID", "id")
	os.Setenv("GENESYS_CLIENT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.PongWait != cfg.WSReadTimeout {
		t.Errorf("PongWait (%v) should equal WSReadTimeout (%v)", cfg.PongWait, cfg.WSReadTimeout)
	}
	if cfg.PingPeriod >= cfg.PongWait {
		t.Errorf("PingPeriod (%v) must be less than PongWait (%v)", cfg.PingPeriod, cfg.PongWait)
	}
}
