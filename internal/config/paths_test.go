package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	t.Run("defaults resolve to working directory", func(t *testing.T) {
		paths, err := GetPaths(Default())
		require.NoError(t, err)

		assert.Equal(t, wd, paths.WorkingDir)
		assert.Equal(t, wd, paths.InputDir)
		assert.Equal(t, wd, paths.OutputDir)
		assert.Equal(t, filepath.Join(wd, "final_sdg_water_data.csv"), paths.OutputCSV)
		assert.Empty(t, paths.OutputXLSX)
		assert.Empty(t, paths.MetricsTextfile)
		assert.Equal(t,
			filepath.Join(wd, "Access to improved source of drinking water.csv"),
			paths.DatasetPath(DefaultDatasets()[0]))
	})

	t.Run("configured directories", func(t *testing.T) {
		abs := t.TempDir()
		cfg := Default()
		cfg.Paths.InputDir = "data"
		cfg.Paths.OutputDir = abs
		cfg.Output.XLSXFile = "final.xlsx"
		cfg.Telemetry.MetricsTextfile = "/var/lib/node_exporter/sdgwater.prom"

		paths, err := GetPaths(cfg)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(wd, "data"), paths.InputDir)
		assert.Equal(t, abs, paths.OutputDir)
		assert.Equal(t, filepath.Join(abs, "final.xlsx"), paths.OutputXLSX)
		assert.Equal(t, "/var/lib/node_exporter/sdgwater.prom", paths.MetricsTextfile)
	})

	t.Run("absolute dataset path is kept", func(t *testing.T) {
		paths, err := GetPaths(Default())
		require.NoError(t, err)
		assert.Equal(t, "/srv/water.csv", paths.DatasetPath(DatasetConfig{Path: "/srv/water.csv"}))
	})
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	paths := &Paths{
		OutputDir: filepath.Join(root, "out", "nested"),
		LogsDir:   filepath.Join(root, "logs"),
	}

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.OutputDir)
	assert.DirExists(t, paths.LogsDir)

	// idempotent
	require.NoError(t, paths.EnsureDirectories())
}

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.csv")
	assert.False(t, FileExists(path))
	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0644))
	assert.True(t, FileExists(path))
}
