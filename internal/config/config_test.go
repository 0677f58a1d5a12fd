package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, cfg.ExpansionCacheTTL)
	require.Equal(t, 30, cfg.SubmissionRateLimit)
	require.Equal(t, 10, cfg.UploadMaxMB)
	require.Equal(t, "gema.assessment", cfg.NATSSubjectPrefix)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.False(t, cfg.CloudinaryEnabled())
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_EXPANSION_CACHE_TTL", "90s")
	t.Setenv("GEMA_SUBMISSION_RATE_LIMIT", "5")
	t.Setenv("GEMA_NATS_SUBJECT_PREFIX", "campus.quiz.")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, cfg.ExpansionCacheTTL)
	require.Equal(t, 5, cfg.SubmissionRateLimit)
	require.Equal(t, "campus.quiz", cfg.NATSSubjectPrefix)
}

func TestLoadRejectsInvalidTTL(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_EXPANSION_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
}
