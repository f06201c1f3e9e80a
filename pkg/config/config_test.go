package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(values map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for key, value := range values {
		v.Set(key, value)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg := fromViper(newTestViper(nil))

	require.NotNil(t, cfg)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ModeDev, cfg.Upstream.Mode)
	assert.Equal(t, DefaultUpstreamURL, cfg.Upstream.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "Europe/Berlin", cfg.Display.Timezone)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, "gigboard_session", cfg.Session.CookieName)
	assert.False(t, cfg.Audit.Enabled)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperSelectsUpstreamByMode(t *testing.T) {
	cases := []struct {
		mode string
		want string
	}{
		{mode: "production", want: "https://api.example.com"},
		{mode: "vercel", want: "https://edge.example.com/api"},
		{mode: "dev", want: "http://localhost:4000/api"},
		{mode: "unknown", want: "http://localhost:4000/api"},
	}

	for _, tc := range cases {
		t.Run(tc.mode, func(t *testing.T) {
			cfg := fromViper(newTestViper(map[string]interface{}{
				"APP_MODE":       tc.mode,
				"API_URL_PROD":   "https://api.example.com/",
				"API_URL_VERCEL": "https://edge.example.com/api",
				"API_URL_DEV":    "http://localhost:4000/api",
			}))
			assert.Equal(t, tc.want, cfg.Upstream.BaseURL)
		})
	}
}

func TestFromViperFallsBackWhenModeURLMissing(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{"APP_MODE": "production"}))
	assert.Equal(t, DefaultUpstreamURL, cfg.Upstream.BaseURL)
}

func TestFromViperParsesListsAndDurations(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{
		"ALLOWED_ORIGINS":  " https://a.example , ,https://b.example",
		"SESSION_TTL":      "30m",
		"UPSTREAM_TIMEOUT": "not-a-duration",
		"SESSION_STORE":    "Redis",
	}))

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "redis", cfg.Session.Store)
}
