package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config layer at a fresh temp tree and returns its root.
func isolate(t *testing.T) string {
	t.Helper()
	Reset()
	t.Cleanup(Reset)

	root := t.TempDir()
	prevSystem := systemConfigPath
	systemConfigPath = filepath.Join(root, "etc", "am.toml")
	t.Cleanup(func() { systemConfigPath = prevSystem })

	t.Setenv("HOME", filepath.Join(root, "home"))
	for _, key := range []string{"database.path", "sync.timezone", "sync.skip_invalid", "scrape.workers"} {
		t.Setenv(EnvKey(key), "")
		os.Unsetenv(EnvKey(key))
	}

	project := filepath.Join(root, "project")
	require.NoError(t, os.MkdirAll(project, 0755))
	t.Chdir(project)
	return root
}

func writeTOML(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestLoad_Cascade(t *testing.T) {
	root := isolate(t)

	writeTOML(t, filepath.Join(root, "etc", "am.toml"), `
[database]
path = "system.db"

[scrape]
workers = 2
`)
	writeTOML(t, filepath.Join(root, "home", ".mangasync", "am.toml"), `
[database]
path = "user.db"

[sync]
skip_invalid = true
`)
	writeTOML(t, filepath.Join(root, "project", "am.toml"), `
[database]
path = "project.db"
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "project.db", cfg.Database.Path, "project wins over user and system")
	assert.True(t, cfg.Sync.SkipInvalid, "user value survives when project is silent")
	assert.Equal(t, 2, cfg.Scrape.Workers, "system value survives when nothing overrides it")
	assert.Equal(t, "Asia/Jakarta", cfg.Sync.Timezone, "defaults fill the rest")

	assert.Equal(t, LayerProject, keyOrigins["database.path"].Layer)
	assert.Equal(t, LayerUser, keyOrigins["sync.skip_invalid"].Layer)
	assert.Equal(t, LayerSystem, keyOrigins["scrape.workers"].Layer)
	_, tracked := keyOrigins["sync.timezone"]
	assert.False(t, tracked, "defaults are not file sources")
}

func TestLoad_EnvBeatsFiles(t *testing.T) {
	root := isolate(t)
	writeTOML(t, filepath.Join(root, "project", "am.toml"), `
[database]
path = "project.db"
`)
	t.Setenv("MANGASYNC_DATABASE_PATH", "env.db")
	t.Setenv("MANGASYNC_SCRAPE_WORKERS", "9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database.Path)
	assert.Equal(t, 9, cfg.Scrape.Workers)
}

func TestLoad_Caches(t *testing.T) {
	isolate(t)

	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoad_ProjectConfigFoundFromSubdirectory(t *testing.T) {
	root := isolate(t)
	writeTOML(t, filepath.Join(root, "project", "am.toml"), `
[sync]
timezone = "UTC"
`)
	sub := filepath.Join(root, "project", "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0755))
	t.Chdir(sub)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Sync.Timezone)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	writeTOML(t, path, `
[sync]
atomic_reconcile = true

[scrape]
slugs = ["blue-lock", "smiley"]
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Sync.AtomicReconcile)
	assert.Equal(t, []string{"blue-lock", "smiley"}, cfg.Scrape.Slugs)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestExplain(t *testing.T) {
	root := isolate(t)
	writeTOML(t, filepath.Join(root, "project", "am.toml"), `
[database]
path = "project.db"
`)
	t.Setenv("MANGASYNC_SYNC_TIMEZONE", "UTC")

	report, err := Explain()
	require.NoError(t, err)
	assert.Contains(t, report.File, "am.toml")

	byKey := make(map[string]Setting)
	for _, s := range report.Settings {
		byKey[s.Key] = s
	}

	require.Contains(t, byKey, "database.path")
	assert.Equal(t, LayerProject, byKey["database.path"].Layer)
	assert.Equal(t, "project.db", byKey["database.path"].Value)

	require.Contains(t, byKey, "sync.timezone")
	assert.Equal(t, LayerEnv, byKey["sync.timezone"].Layer)
	assert.Equal(t, "MANGASYNC_SYNC_TIMEZONE", byKey["sync.timezone"].Path)

	require.Contains(t, byKey, "scrape.workers")
	assert.Equal(t, defaultOrigin, byKey["scrape.workers"].Origin)

	keys := make([]string, 0, len(report.Settings))
	for _, s := range report.Settings {
		keys = append(keys, s.Key)
	}
	assert.IsIncreasing(t, keys)
}

func TestLayerRank(t *testing.T) {
	order := []Layer{LayerDefault, LayerSystem, LayerUser, LayerProject, LayerEnv}
	for i := 1; i < len(order); i++ {
		assert.Less(t, order[i-1].Rank(), order[i].Rank(), order[i])
	}
}
