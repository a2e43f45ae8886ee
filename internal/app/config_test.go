package app

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/credbite/internal/pkg/config"
)

func TestSampleConfig_CredentialLifetimes(t *testing.T) {
	raw, err := os.ReadFile("../../config/config.yaml")
	require.NoError(t, err)

	cfg, err := config.NewViperFromBytes("yaml", raw)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.GetSecond("modules.identity.code_ttl_seconds"))
	assert.Equal(t, 5*time.Minute, cfg.GetSecond("modules.identity.url_token_ttl_seconds"))
	assert.Equal(t, 15*time.Minute, cfg.GetSecond("modules.identity.reset_token_ttl_seconds"))
	assert.Equal(t, time.Minute, cfg.GetSecond("modules.identity.cooldown_seconds"))
}
