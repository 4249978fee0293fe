package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"designkit/internal/breaker"
	"designkit/internal/data"
	"designkit/internal/logging"
)

const fixtureTokens = `[
  {"name": "primary-blue", "value": "#0051A5", "category": "color", "description": "Primary brand color", "usage": ["buttons", "links"]},
  {"name": "font-size-large", "value": 24, "category": "typography", "description": "Large heading size", "aliases": ["text-lg"]},
  {"name": "spacing-sm", "value": 8, "category": "spacing", "deprecated": true}
]`

const fixtureComponents = `[
  {
    "name": "Button",
    "description": "Primary action trigger",
    "category": "forms",
    "props": [{"name": "variant", "type": "string", "required": true}],
    "guidelines": ["Use one primary button per view"]
  },
  {
    "name": "Card",
    "description": "Content container with elevation",
    "category": "layout"
  }
]`

const fixtureGuidelines = `[
  {
    "id": "color-usage",
    "title": "Color usage",
    "category": "foundations",
    "content": "Use primary-blue for primary actions.",
    "tags": ["color", "branding"],
    "relatedComponents": ["Button"],
    "relatedTokens": ["primary-blue"]
  },
  {
    "id": "spacing-scale",
    "title": "Spacing scale",
    "category": "foundations",
    "content": "Stick to the 8px grid.",
    "tags": ["layout"]
  }
]`

// testEnv wires a loaded data manager and a breaker registry the way the
// server does, minus the transport.
type testEnv struct {
	manager  *data.Manager
	registry *breaker.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		data.TokensFile:     fixtureTokens,
		data.ComponentsFile: fixtureComponents,
		data.GuidelinesFile: fixtureGuidelines,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	m, err := data.NewManager(data.Config{DataDir: dir, WatchFiles: false, CacheTTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	_, err = m.Load(context.Background())
	require.NoError(t, err)

	logger, _ := logging.NewTestLogger()
	return &testEnv{manager: m, registry: breaker.NewRegistry(logger)}
}

// emptyEnv returns an environment whose manager never loaded.
func emptyEnv(t *testing.T) *testEnv {
	t.Helper()
	m, err := data.NewManager(data.Config{DataDir: t.TempDir(), WatchFiles: false})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	logger, _ := logging.NewTestLogger()
	return &testEnv{manager: m, registry: breaker.NewRegistry(logger)}
}

func (e *testEnv) breakerConfig() breaker.Config {
	cfg := breaker.DefaultConfig("")
	cfg.FailureThreshold = 3
	cfg.RecoveryTimeout = 50 * time.Millisecond
	return cfg
}

func (e *testEnv) tokens(t *testing.T) *TokenService {
	t.Helper()
	s, err := NewTokenService(e.manager, e.registry, e.breakerConfig())
	require.NoError(t, err)
	return s
}

func (e *testEnv) components(t *testing.T) *ComponentService {
	t.Helper()
	s, err := NewComponentService(e.manager, e.registry, e.breakerConfig())
	require.NoError(t, err)
	return s
}

func (e *testEnv) guidelines(t *testing.T) *GuidelineService {
	t.Helper()
	s, err := NewGuidelineService(e.manager, e.registry, e.breakerConfig())
	require.NoError(t, err)
	return s
}

// breakerStats looks up the cumulative stats for a facade breaker.
func (e *testEnv) breakerStats(t *testing.T, name string) breaker.Stats {
	t.Helper()
	b, ok := e.registry.Get(name)
	require.True(t, ok)
	return b.Stats()
}
