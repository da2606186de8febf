package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudforge/jobbroker/internal/store/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_NoBaseURLIsNoop(t *testing.T) {
	tr := &Tracker{Client: http.DefaultClient}
	err := tr.Notify(context.Background(), "job-1", models.StatusRunning, "")
	assert.NoError(t, err)
}

func TestNotify_Success(t *testing.T) {
	var gotPath, gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("x-api-key")
		assert.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := &Tracker{Client: srv.Client(), BaseURL: srv.URL, APIKey: "secret"}
	err := tr.Notify(context.Background(), "job-1", models.StatusRunning, "")
	require.NoError(t, err)
	assert.Equal(t, "/_job_status/job-1", gotPath)
	assert.Equal(t, "secret", gotAPIKey)
}

func TestNotify_NotFoundMapsToErrJobDeleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr := &Tracker{Client: srv.Client(), BaseURL: srv.URL}
	err := tr.Notify(context.Background(), "job-1", models.StatusRunning, "")
	assert.ErrorIs(t, err, ErrJobDeleted)
}

func TestNotify_ServerErrorMapsToErrUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := &Tracker{Client: srv.Client(), BaseURL: srv.URL}
	err := tr.Notify(context.Background(), "job-1", models.StatusRunning, "")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestNotifyAsync_ReachesServerWithoutBlocking(t *testing.T) {
	var hit int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hit, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr := &Tracker{Client: srv.Client(), BaseURL: srv.URL}
	tr.NotifyAsync("job-1", models.StatusRunning, "")

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&hit) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
