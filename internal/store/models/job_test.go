package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironment_AnySerializesAsNull(t *testing.T) {
	b, err := json.Marshal(EnvironmentAny)
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	var got Environment
	require.NoError(t, json.Unmarshal([]byte("null"), &got))
	assert.Equal(t, EnvironmentAny, got)
}

func TestEnvironment_LocalAndCloudRoundTrip(t *testing.T) {
	for _, e := range []Environment{EnvironmentLocal, EnvironmentCloud} {
		b, err := json.Marshal(e)
		require.NoError(t, err)

		var got Environment
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, e, got)
	}
}

func TestWorkerList_ValueScanRoundTrip(t *testing.T) {
	w := WorkerList{"host-a", "host-b", "host-c"}
	v, err := w.Value()
	assert.NoError(t, err)
	assert.Equal(t, "host-a;host-b;host-c", v)

	var roundTripped WorkerList
	assert.NoError(t, roundTripped.Scan(v))
	assert.Equal(t, w, roundTripped)
}

func TestWorkerList_ScanEmpty(t *testing.T) {
	var w WorkerList
	assert.NoError(t, w.Scan(""))
	assert.Nil(t, w)
	assert.NoError(t, w.Scan(nil))
	assert.Nil(t, w)
}

func TestWorkerList_Contains(t *testing.T) {
	w := WorkerList{"host-1", "host-12", "host-2"}
	assert.True(t, w.Contains("host-1"))
	assert.True(t, w.Contains("host-12"))
	assert.True(t, w.Contains("host-2"))
	assert.False(t, w.Contains("host"))
	assert.False(t, w.Contains("ost-1"))
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusFinished.IsTerminal())
	assert.True(t, StatusError.IsTerminal())
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
}

func TestJobSpec_ValueScanRoundTrip(t *testing.T) {
	spec := JobSpec{
		App:     AppSpec{Cmd: []string{"python", "run.py"}, EnvVars: map[string]string{"FOO": "bar"}},
		Handler: HandlerSpec{ImageURL: "example/image:1", FilesDown: map[string]string{"/in": "local/a"}},
		Meta:    MetaSpec{JobID: "abc"},
		Hardware: HardwareSpec{
			CPUCores: 2,
			Memory:   4,
		},
	}

	v, err := spec.Value()
	assert.NoError(t, err)

	var roundTripped JobSpec
	assert.NoError(t, roundTripped.Scan(v))
	assert.Equal(t, spec, roundTripped)
}

func TestJobFilter_NormalizeDefaultsCPUCores(t *testing.T) {
	f := JobFilter{}
	f.Normalize()
	assert.Equal(t, 1, f.CPUCores)

	f2 := JobFilter{CPUCores: 8}
	f2.Normalize()
	assert.Equal(t, 8, f2.CPUCores)
}
