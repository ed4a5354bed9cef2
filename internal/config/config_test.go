package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://crm@localhost/crm")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 4, c.ReplyWorkers)
	assert.Equal(t, 3, c.ReplyMaxAttempts)
	assert.Equal(t, 15*time.Second, c.EvolutionTimeout)
	assert.False(t, c.IsProduction())
	assert.Empty(t, c.TrustedProxies)
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://crm@localhost/crm")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,192.168.0.0/16")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, c.TrustedProxies)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "unused")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	_, err := Load()
	assert.Error(t, err)
}

func TestWebhookURL(t *testing.T) {
	cases := map[string]string{
		"":                         "",
		"http://localhost:3000":    "",
		"http://127.0.0.1:8080":    "",
		"https://crm.example.com":  "https://crm.example.com/api/webhooks/evolution",
		"https://crm.example.com/": "https://crm.example.com/api/webhooks/evolution",
	}
	for appURL, want := range cases {
		c := &Config{AppURL: appURL}
		assert.Equal(t, want, c.WebhookURL(), appURL)
	}
}
