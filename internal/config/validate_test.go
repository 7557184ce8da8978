package config

import (
	"strings"
	"testing"

	"github.com/adamancini/geoasset/internal/types"
)

func validConfig() *Config {
	return Default()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errContains string
	}{
		{
			name:    "defaults valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:        "invalid provider",
			mutate:      func(c *Config) { c.Provider = "gitlab" },
			wantErr:     true,
			errContains: "provider",
		},
		{
			name:        "custom without links",
			mutate:      func(c *Config) { c.Provider = types.ProviderCustom },
			wantErr:     true,
			errContains: "custom_links",
		},
		{
			name: "custom with links",
			mutate: func(c *Config) {
				c.Provider = types.ProviderCustom
				c.CustomLinks = []string{"https://example.com/rules.tar.gz"}
			},
			wantErr: false,
		},
		{
			name: "link without scheme",
			mutate: func(c *Config) {
				c.Provider = types.ProviderCustom
				c.CustomLinks = []string{"example.com/rules.tar.gz"}
			},
			wantErr:     true,
			errContains: "custom_links[0]",
		},
		{
			name:        "ftp api base",
			mutate:      func(c *Config) { c.APIBaseURL = "ftp://example.com" },
			wantErr:     true,
			errContains: "api_base_url",
		},
		{
			name:        "socks5 without port",
			mutate:      func(c *Config) { c.Proxy.SOCKS5 = "127.0.0.1" },
			wantErr:     true,
			errContains: "proxy.socks5",
		},
		{
			name:        "credentials without proxy",
			mutate:      func(c *Config) { c.Proxy.Username = "user" },
			wantErr:     true,
			errContains: "credentials",
		},
		{
			name:        "bad log level",
			mutate:      func(c *Config) { c.Log.Level = "trace" },
			wantErr:     true,
			errContains: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := Validate(c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.errContains)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	c := validConfig()
	c.Provider = "bogus"
	c.Log.Level = "loud"

	err := Validate(c)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"provider", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
