package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/yourusername/ncm-fetch-go/internal/domain"
)

func newTestMirror(t *testing.T, handler http.HandlerFunc) *MirrorClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := &domain.MirrorConfig{
		Enabled: true,
		BaseURL: server.URL,
		Source:  "netease",
		Timeout: 5 * time.Second,
	}
	return NewMirrorClient(cfg, zap.NewNop())
}

func TestMirrorResolveURL_ListShape(t *testing.T) {
	mirror := newTestMirror(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "210049", r.URL.Query().Get("id"))
		assert.Equal(t, "lossless", r.URL.Query().Get("level"))
		w.Write([]byte(`{"code":200,"data":[{"url":"https://cdn.example.com/a.flac","br":999000,"size":"167.61MB","type":"FLAC","level":"lossless"}]}`))
	})

	u, err := mirror.ResolveURL(context.Background(), 210049, domain.LevelLossless)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.flac", u.URL)
	assert.Equal(t, "flac", u.Type)
	assert.Equal(t, int64(175751823), u.Size) // 167.61 MiB
	assert.Equal(t, domain.LevelLossless, u.Level)
}

func TestMirrorResolveURL_DictShape(t *testing.T) {
	mirror := newTestMirror(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"data":{"url":"https://cdn.example.com/a.mp3","br":320000,"size":8231148,"format":"mp3"}}`))
	})

	u, err := mirror.ResolveURL(context.Background(), 210049, domain.LevelExHigh)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.mp3", u.URL)
	assert.Equal(t, "mp3", u.Type)
	assert.Equal(t, int64(8231148), u.Size)
}

func TestMirrorResolveURL_EmptyListIsNotFound(t *testing.T) {
	mirror := newTestMirror(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"data":[]}`))
	})

	_, err := mirror.ResolveURL(context.Background(), 210049, domain.LevelStandard)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMirrorResolveURL_NonOKCodeIsAccessDenied(t *testing.T) {
	mirror := newTestMirror(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":403,"msg":"vip only"}`))
	})

	_, err := mirror.ResolveURL(context.Background(), 210049, domain.LevelHiRes)
	assert.True(t, errors.Is(err, domain.ErrAccessDenied))
}

func TestMirrorResolveURL_GarbageBodyIsUnrecognized(t *testing.T) {
	mirror := newTestMirror(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>cloudflare says no</html>`))
	})

	_, err := mirror.ResolveURL(context.Background(), 210049, domain.LevelStandard)
	assert.True(t, errors.Is(err, domain.ErrUnrecognizedShape))
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{`"167.61MB"`, 175751823},
		{`"3.5GB"`, 3758096384},
		{`"812KB"`, 812 << 10},
		{`"123B"`, 123},
		{`"4567"`, 4567},
		{`8231148`, 8231148},
		{`""`, 0},
		{`"weird"`, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSize(gjson.Parse(tt.in)), "input %s", tt.in)
	}
}
