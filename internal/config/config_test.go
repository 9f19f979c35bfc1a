package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"TorProxyAddress", cfg.TorProxyAddress, "127.0.0.1:9050"},
		{"FallbackProxyAddresses", cfg.FallbackProxyAddresses, []string{"127.0.0.1:9150"}},
		{"Timeout", cfg.Timeout, 60 * time.Second},
		{"MaxAttempts", cfg.MaxAttempts, 3},
		{"RetryDelay", cfg.RetryDelay, 5 * time.Second},
		{"RequestDelay", cfg.RequestDelay, 2 * time.Second},
		{"MaxBodySize", cfg.MaxBodySize, int64(10 * 1024 * 1024)},
		{"OutputDir", cfg.OutputDir, "output"},
		{"BatchSize", cfg.BatchSize, 2},
		{"TorStartupTimeout", cfg.TorStartupTimeout, 3 * time.Minute},
		{"UseEmbeddedTor", cfg.UseEmbeddedTor, false},
		{"SaveToDB", cfg.SaveToDB, true},
		{"DBDir", cfg.DBDir, XDGDataDir()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, tt.got)
			}
		})
	}

	if !strings.Contains(cfg.UserAgent, "Firefox") {
		t.Errorf("expected a browser user agent, got %q", cfg.UserAgent)
	}
}

// TestConfigValidate tests each validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"http://forum.onion/threads/1/"}
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"no targets", func(c *Config) { c.Targets = nil }, ErrNoTarget},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, ErrInvalidMaxAttempts},
		{"negative retry delay", func(c *Config) { c.RetryDelay = -time.Second }, ErrInvalidRetryDelay},
		{"zero retry delay", func(c *Config) { c.RetryDelay = 0 }, nil},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"both formats", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"negative request delay", func(c *Config) { c.RequestDelay = -1 }, ErrInvalidRequestDelay},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, ErrEmptyOutputDir},
		{"history without dir", func(c *Config) { c.DBDir = "" }, ErrEmptyDBDir},
		{"no history without dir", func(c *Config) { c.DBDir, c.SaveToDB = "", false }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestProxyCandidates tests the probe order.
func TestProxyCandidates(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if got := cfg.ProxyCandidates(); !reflect.DeepEqual(got, []string{"127.0.0.1:9050", "127.0.0.1:9150"}) {
		t.Errorf("unexpected candidates %v", got)
	}

	cfg.TorProxyAddress = "127.0.0.1:9150"
	if got := cfg.ProxyCandidates(); !reflect.DeepEqual(got, []string{"127.0.0.1:9150"}) {
		t.Errorf("expected duplicates removed, got %v", got)
	}

	cfg.FallbackProxyAddresses = nil
	cfg.TorProxyAddress = "10.0.0.1:9050"
	if got := cfg.ProxyCandidates(); !reflect.DeepEqual(got, []string{"10.0.0.1:9050"}) {
		t.Errorf("unexpected candidates %v", got)
	}
}

// TestFileGetSiteConfig tests merging defaults with host settings.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Cookie:  "default=1",
			Headers: map[string]string{"Accept-Language": "en-US"},
		},
		Sites: map[string]SiteConfig{
			"forum.onion": {
				Cookie:    "xf_session=abc",
				Headers:   map[string]string{"Referer": "http://forum.onion/"},
				UserAgent: "custom",
			},
		},
	}

	t.Run("site overrides defaults", func(t *testing.T) {
		t.Parallel()

		got := cf.GetSiteConfig("forum.onion")
		if got.Cookie != "xf_session=abc" || got.UserAgent != "custom" {
			t.Errorf("unexpected config %+v", got)
		}
		want := map[string]string{"Accept-Language": "en-US", "Referer": "http://forum.onion/"}
		if !reflect.DeepEqual(got.Headers, want) {
			t.Errorf("expected headers %v, got %v", want, got.Headers)
		}
	})

	t.Run("lookup by URL", func(t *testing.T) {
		t.Parallel()

		got := cf.GetSiteConfig("http://FORUM.onion:80/threads/1/")
		if got.Cookie != "xf_session=abc" {
			t.Errorf("expected site cookie, got %q", got.Cookie)
		}
	})

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		got := cf.GetSiteConfig("other.onion")
		if got.Cookie != "default=1" || got.UserAgent != "" {
			t.Errorf("unexpected config %+v", got)
		}
	})

	t.Run("defaults are not modified", func(t *testing.T) {
		t.Parallel()

		_ = cf.GetSiteConfig("forum.onion")
		if len(cf.Defaults.Headers) != 1 {
			t.Errorf("defaults changed: %v", cf.Defaults.Headers)
		}
	})

	t.Run("nil file", func(t *testing.T) {
		t.Parallel()

		var nilFile *File
		if got := nilFile.GetSiteConfig("forum.onion"); !reflect.DeepEqual(got, SiteConfig{}) {
			t.Errorf("expected empty config, got %+v", got)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.darkthread")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".darkthread")
		content := `defaults:
  cookie: "default=abc"
sites:
  Forum.onion:
    cookie: "xf_user=1; xf_session=xyz"
    userAgent: "Mozilla/5.0"
    headers:
      Referer: "http://forum.onion/"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Defaults.Cookie != "default=abc" {
			t.Errorf("expected default cookie, got %q", cfg.Defaults.Cookie)
		}

		site, ok := cfg.Sites["forum.onion"]
		if !ok {
			t.Fatal("expected forum.onion in sites")
		}
		if site.Cookie != "xf_user=1; xf_session=xyz" || site.UserAgent != "Mozilla/5.0" {
			t.Errorf("unexpected site %+v", site)
		}
		if site.Headers["Referer"] != "http://forum.onion/" {
			t.Errorf("expected Referer header")
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".darkthread")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".darkthread")
		if err := os.WriteFile(configPath, []byte("defaults:\n  cookie: a=b\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if got := FindConfigFile(configPath); got != configPath {
			t.Errorf("expected %q, got %q", configPath, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
	} {
		if filepath.Base(dir) != AppName {
			t.Errorf("expected %s dir to end in %q, got %q", name, AppName, dir)
		}
	}
}

// TestHostKey tests host normalization.
func TestHostKey(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"forum.onion":                   "forum.onion",
		"FORUM.onion":                   "forum.onion",
		"forum.onion:8080":              "forum.onion",
		"http://forum.onion/threads/1/": "forum.onion",
		"https://Forum.Onion:443/a?b=c": "forum.onion",
	}
	for in, want := range tests {
		if got := hostKey(in); got != want {
			t.Errorf("hostKey(%q) = %q, want %q", in, got, want)
		}
	}
}
