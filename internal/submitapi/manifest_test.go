package submitapi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestBuildFilesDown_EnumeratesConfigDataArtifact(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "alice", "config", "cfg-1", "params.yaml"), "x")
	writeFile(t, filepath.Join(root, "alice", "data", "data-1", "a.csv"), "x")
	writeFile(t, filepath.Join(root, "alice", "data", "data-1", "nested", "b.csv"), "x")
	writeFile(t, filepath.Join(root, "alice", "artifact", "art-1", "model.bin"), "x")

	manifest, err := BuildFilesDown(root, "alice", "cfg-1", []string{"data-1"}, []string{"art-1"})
	require.NoError(t, err)

	assert.Equal(t,
		filepath.Join(root, "alice", "config", "cfg-1", "params.yaml"),
		manifest[filepath.Join("/job/input", "config", "cfg-1", "params.yaml")],
	)
	assert.Equal(t,
		filepath.Join(root, "alice", "data", "data-1", "a.csv"),
		manifest[filepath.Join("/job/input", "data", "data-1", "a.csv")],
	)
	assert.Equal(t,
		filepath.Join(root, "alice", "data", "data-1", "nested", "b.csv"),
		manifest[filepath.Join("/job/input", "data", "data-1", "nested", "b.csv")],
	)
	assert.Equal(t,
		filepath.Join(root, "alice", "artifact", "art-1", "model.bin"),
		manifest[filepath.Join("/job/input", "artifact", "art-1", "model.bin")],
	)
	assert.Len(t, manifest, 4)
}

func TestBuildFilesDown_NoConfigOrExtraInputs(t *testing.T) {
	root := t.TempDir()
	manifest, err := BuildFilesDown(root, "alice", "", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, manifest)
}

func TestBuildFilesDown_UnknownInputID(t *testing.T) {
	root := t.TempDir()
	_, err := BuildFilesDown(root, "alice", "missing-cfg", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownInput)
}

func TestBuildPathsUpload(t *testing.T) {
	paths := BuildPathsUpload("/data", "alice", "job-123")
	assert.Equal(t, filepath.Join("/data", "alice", "jobs", "job-123", "output"), paths["output"])
	assert.Equal(t, filepath.Join("/data", "alice", "jobs", "job-123", "log"), paths["log"])
	assert.Equal(t, filepath.Join("/data", "alice", "jobs", "job-123", "artifact"), paths["artifact"])
}
