package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogYAML = `
applications:
  sleeper:
    versions:
      "1":
        image_url: example/sleeper:1
        entrypoints:
          main:
            cmd: ["python", "run.py"]
            allowed_env:
              - DURATION
            hardware:
              cpu_cores: 2
              memory: 4
`

func writeTestCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogYAML), 0o644))
	return path
}

func TestLoadAndResolve(t *testing.T) {
	c, err := Load(writeTestCatalog(t))
	require.NoError(t, err)

	imageURL, ep, err := c.Resolve("sleeper", "1", "main")
	require.NoError(t, err)
	assert.Equal(t, "example/sleeper:1", imageURL)
	assert.Equal(t, []string{"python", "run.py"}, ep.Cmd)
	assert.Equal(t, 2, ep.Hardware.CPUCores)
}

func TestResolve_UnknownTriple(t *testing.T) {
	c, err := Load(writeTestCatalog(t))
	require.NoError(t, err)

	_, _, err = c.Resolve("missing-app", "1", "main")
	assert.ErrorIs(t, err, ErrUnknownTriple)

	_, _, err = c.Resolve("sleeper", "missing-version", "main")
	assert.ErrorIs(t, err, ErrUnknownTriple)

	_, _, err = c.Resolve("sleeper", "1", "missing-entrypoint")
	assert.ErrorIs(t, err, ErrUnknownTriple)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEntrypoint_ValidateEnv(t *testing.T) {
	ep := &Entrypoint{AllowedEnv: []string{"DURATION", "SEED"}}

	assert.Equal(t, "", ep.ValidateEnv(map[string]string{"DURATION": "5"}))
	assert.Equal(t, "FORBIDDEN", ep.ValidateEnv(map[string]string{"FORBIDDEN": "x"}))
	assert.Equal(t, "", ep.ValidateEnv(nil))
}
