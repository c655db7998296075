package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Cache.Backend != CacheBackendMemory || cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if got := strings.Join(cfg.Provider.Slots, ","); got != "breakfast,lunch,dinner" {
		t.Errorf("slots = %q", got)
	}
	if cfg.Storage.DBPath == "" {
		t.Error("db path should default")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_CACHE_BACKEND", "REDIS")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("APP_PROVIDER_SLOTS", "lunch, dinner")
	t.Setenv("APP_PARSER_LOCATION_KEYWORDS", "cafe,bistro")
	t.Setenv("APP_SEARCH_ALIAS_GROUPS", "Commons|Schwarzman Commons")
	t.Setenv("PORT", "9090")

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Cache.Backend != CacheBackendRedis || cfg.Redis.Addr != "cache:6379" {
		t.Errorf("cache/redis = %+v / %+v", cfg.Cache, cfg.Redis)
	}
	if got := strings.Join(cfg.Provider.Slots, ","); got != "lunch,dinner" {
		t.Errorf("slots = %q", got)
	}
	if got := strings.Join(cfg.Parser.LocationKeywords, ","); got != "cafe,bistro" {
		t.Errorf("location keywords = %q", got)
	}
	if len(cfg.Search.AliasGroups) != 1 || cfg.Search.AliasGroups[0] != "Commons|Schwarzman Commons" {
		t.Errorf("alias groups = %q", cfg.Search.AliasGroups)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
		want string
	}{
		{name: "unknown backend", key: "cache.backend", val: "memcached", want: "unknown cache backend"},
		{name: "zero workers", key: "queue.workers", val: 0, want: "invalid queue workers"},
		{name: "bad slot", key: "provider.slots", val: []string{"brunch"}, want: "unknown provider slot"},
		{name: "negative retries", key: "provider.retry_count", val: -1, want: "invalid provider retry count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey("short"); got != "****" {
		t.Errorf("short = %q", got)
	}
	if got := MaskAPIKey("abcd1234efgh5678"); got != "abcd...5678" {
		t.Errorf("long = %q", got)
	}
}
