package infrastructure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ncm-fetch-go/internal/domain"
)

// A transfer that outlives the configured timeout must still complete as
// long as bytes keep flowing; only the per-read gap is bounded.
func TestStreamOpen_SlowTransferOutlivesTimeout(t *testing.T) {
	chunk := []byte("0123456789abcdef")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 5; i++ {
			w.Write(chunk)
			flusher.Flush()
			time.Sleep(60 * time.Millisecond)
		}
	}))
	defer server.Close()

	streamer := NewAudioStreamer(150 * time.Millisecond)
	body, _, err := streamer.Open(context.Background(), server.URL)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Len(t, data, 5*len(chunk))
}

func TestStreamOpen_StalledBodyIsCutOff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("first"))
		w.(http.Flusher).Flush()
		time.Sleep(600 * time.Millisecond)
		w.Write([]byte("never delivered"))
	}))
	defer server.Close()

	streamer := NewAudioStreamer(150 * time.Millisecond)
	body, _, err := streamer.Open(context.Background(), server.URL)
	require.NoError(t, err)
	defer body.Close()

	_, err = io.ReadAll(body)
	assert.Error(t, err)
}

func TestStreamOpen_SlowHeadersAreTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	streamer := NewAudioStreamer(100 * time.Millisecond)
	_, _, err := streamer.Open(context.Background(), server.URL)
	assert.True(t, errors.Is(err, domain.ErrTransient))
}

func TestStreamOpen_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, domain.ErrAccessDenied},
		{http.StatusNotFound, domain.ErrAccessDenied},
		{http.StatusBadGateway, domain.ErrTransient},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		streamer := NewAudioStreamer(time.Second)
		_, _, err := streamer.Open(context.Background(), server.URL)
		assert.True(t, errors.Is(err, tt.want), "status %d", tt.status)
		server.Close()
	}
}
