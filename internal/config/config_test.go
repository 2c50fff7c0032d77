package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-pickupform/pkg/host"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		LineAPIBase:    host.DefaultAPIBase,
		PostalEndpoint: "https://zipcloud.ibsnet.co.jp/api/search",
		LookupTimeout:  5 * time.Second,
		SendTimeout:    10 * time.Second,
		CacheTTL:       24 * time.Hour,
		LogLevel:       "info",
		LogFormat:      "console",
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.HostEnabled() {
		t.Fatalf("host should be disabled without a channel token")
	}
}

func TestLoadReadsPrefixedVariables(t *testing.T) {
	t.Setenv("PICKUPFORM_HOST_APP_ID", "2000000000-abcdEFGH")
	t.Setenv("PICKUPFORM_LINE_CHANNEL_TOKEN", "token")
	t.Setenv("PICKUPFORM_LINE_USER_ID", "U123")
	t.Setenv("PICKUPFORM_LOOKUP_DEBOUNCE", "300ms")
	t.Setenv("PICKUPFORM_VARIANT", "strict")
	t.Setenv("PICKUPFORM_MERGE_POLICY", "fill-if-empty")
	t.Setenv("PICKUPFORM_REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("PICKUPFORM_TEMPLATE_DIR", t.TempDir())
	t.Setenv("PICKUPFORM_BANNER_DATA", "shop:片付け屋,area:関東")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.HostEnabled() || cfg.Variant != "strict" || cfg.LookupDebounce != 300*time.Millisecond {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	want := host.MessagingConfig{
		AppID:        "2000000000-abcdEFGH",
		ChannelToken: "token",
		UserID:       "U123",
		APIBase:      host.DefaultAPIBase,
	}
	if diff := cmp.Diff(want, cfg.Messaging()); diff != "" {
		t.Fatalf("messaging config mismatch (-want +got):\n%s", diff)
	}
	if len(cfg.PostalOptions()) != 2 {
		t.Fatalf("expected endpoint and timeout options")
	}
	if diff := cmp.Diff(map[string]string{"shop": "片付け屋", "area": "関東"}, cfg.BannerData); diff != "" {
		t.Fatalf("banner data mismatch (-want +got):\n%s", diff)
	}
	if len(cfg.ComposeOptions()) != 2 {
		t.Fatalf("expected template dir and globals options")
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "host without app id",
			env:  map[string]string{"PICKUPFORM_LINE_CHANNEL_TOKEN": "token"},
			want: "HOST_APP_ID",
		},
		{
			name: "unknown merge policy",
			env:  map[string]string{"PICKUPFORM_MERGE_POLICY": "append"},
			want: "merge policy",
		},
		{
			name: "zero lookup timeout",
			env:  map[string]string{"PICKUPFORM_LOOKUP_TIMEOUT": "0s"},
			want: "lookup timeout",
		},
		{
			name: "missing template dir",
			env:  map[string]string{"PICKUPFORM_TEMPLATE_DIR": "/nonexistent/pickupform-banners"},
			want: "template dir",
		},
		{
			name: "malformed duration",
			env:  map[string]string{"PICKUPFORM_SEND_TIMEOUT": "soon"},
			want: "SEND_TIMEOUT",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for key, value := range tc.env {
				t.Setenv(key, value)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
