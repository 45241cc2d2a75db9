package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProbe(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "ok", status: http.StatusOK, want: true},
		{name: "no content", status: http.StatusNoContent, want: false},
		{name: "unavailable", status: http.StatusServiceUnavailable, want: false},
		{name: "not found", status: http.StatusNotFound, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(server.Close)

			require.Equal(t, tt.want, newTestClient(t, server.URL).Probe(context.Background()))
			require.Equal(t, healthPath, path)
		})
	}
}

func TestProbeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	require.False(t, newTestClient(t, url).Probe(context.Background()))
}

func TestProbeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)
	client.healthTimeout = 50 * time.Millisecond

	require.False(t, client.Probe(context.Background()))
}
