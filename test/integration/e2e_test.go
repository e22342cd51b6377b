//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/ncm-fetch-go/api"
	"github.com/yourusername/ncm-fetch-go/internal/app"
	"github.com/yourusername/ncm-fetch-go/internal/domain"
	"github.com/yourusername/ncm-fetch-go/internal/infrastructure"
)

// upstream fakes the music service and its CDN in one server. Song
// 210049 has no lossless stream but resolves at exhigh; the signed
// request bodies are opaque, so responses are scripted by call order.
type upstream struct {
	mu          sync.Mutex
	playerCalls int
	hits        map[string]int
	url         string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits[r.URL.Path]++
	if r.URL.Path == "/weapi/song/enhance/player/url/v1" {
		u.playerCalls++
	}
	calls := u.playerCalls
	base := u.url
	u.mu.Unlock()

	switch r.URL.Path {
	case "/weapi/v3/song/detail":
		w.Write([]byte(`{"code":200,"songs":[{"id":210049,"name":"Song","fee":0,"dt":262000,
			"ar":[{"id":1,"name":"Artist"}],"al":{"id":2,"name":"Album"}}]}`))
	case "/weapi/song/enhance/download/url/v1":
		w.Write([]byte(`{"code":200,"data":{"id":210049,"url":null}}`))
	case "/weapi/song/enhance/player/url/v1":
		// lossless and hires tiers fail, exhigh resolves
		if calls < 3 {
			w.Write([]byte(`{"code":200,"data":[{"id":210049,"url":null}]}`))
			return
		}
		w.Write([]byte(`{"code":200,"data":[{"id":210049,"url":"` + base +
			`/cdn/audio.mp3","br":320000,"size":16,"type":"mp3","level":"exhigh"}]}`))
	case "/cdn/audio.mp3":
		w.Write([]byte("0123456789abcdef"))
	default:
		w.Write([]byte(`{"code":200,"data":[]}`))
	}
}

func (u *upstream) count(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

func setupTestServer(t *testing.T) (*httptest.Server, *upstream, *infrastructure.SQLiteCatalogRepository) {
	t.Helper()

	up := &upstream{hits: map[string]int{}}
	fake := httptest.NewServer(up)
	t.Cleanup(fake.Close)
	up.url = fake.URL

	log := zap.NewNop()
	repo, err := infrastructure.NewSQLiteCatalogRepository(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	store, err := infrastructure.NewLocalFileStore(t.TempDir())
	require.NoError(t, err)

	transport := infrastructure.NewTransport(&domain.NeteaseConfig{
		BaseURL:      fake.URL,
		InterfaceURL: fake.URL,
		Timeout:      5 * time.Second,
	}, log)
	client := infrastructure.NewNeteaseClient(transport, log)
	resolver := app.NewQualityResolver(client, nil, log)
	streamer := infrastructure.NewAudioStreamer(5 * time.Second)
	coordinator := app.NewDownloadCoordinator(repo, resolver, streamer, store, &domain.DownloadConfig{
		Quality:          string(domain.LevelLossless),
		ConcurrentLimit:  2,
		NameWithMetadata: true,
	}, log)

	_, err = coordinator.Reconcile()
	require.NoError(t, err)

	router := api.SetupRouter(client, resolver, coordinator, repo, log)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server, up, repo
}

func TestAPI_DownloadFlow(t *testing.T) {
	server, up, repo := setupTestServer(t)

	payload, _ := json.Marshal(map[string][]int64{"ids": {210049}})
	resp, err := http.Post(server.URL+"/api/v1/downloads", "application/json", bytes.NewBuffer(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted struct {
		Results []app.RequestResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	require.Len(t, accepted.Results, 1)
	assert.Equal(t, app.OutcomeQueued, accepted.Results[0].Outcome)

	// The fetch is asynchronous; poll the record endpoint.
	require.Eventually(t, func() bool {
		r, err := http.Get(server.URL + "/api/v1/downloads/210049")
		if err != nil {
			return false
		}
		defer r.Body.Close()
		var record domain.DownloadRecord
		if json.NewDecoder(r.Body).Decode(&record) != nil {
			return false
		}
		return record.Status == domain.StatusCompleted
	}, 5*time.Second, 50*time.Millisecond)

	record, err := repo.FindByID(210049)
	require.NoError(t, err)
	assert.True(t, record.Downloaded)
	assert.True(t, strings.HasSuffix(record.FilePath, ".mp3"))
	assert.Equal(t, "Song", record.Title)
	assert.Equal(t, "Artist", record.Artist)
	assert.Equal(t, int64(16), record.FileSize)

	// Second request short-circuits on the completed record: zero new
	// upstream traffic.
	before := up.count("/weapi/song/enhance/player/url/v1")
	resp2, err := http.Post(server.URL+"/api/v1/downloads", "application/json", bytes.NewBuffer(payload))
	require.NoError(t, err)
	defer resp2.Body.Close()

	var cached struct {
		Results []app.RequestResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&cached))
	assert.Equal(t, app.OutcomeCached, cached.Results[0].Outcome)
	assert.Equal(t, before, up.count("/weapi/song/enhance/player/url/v1"))
}

func TestAPI_HealthAndStats(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(server.URL + "/api/v1/downloads/stats")
	require.NoError(t, err)
	defer resp2.Body.Close()

	var stats domain.CatalogStats
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&stats))
	assert.Equal(t, int64(0), stats.Total)
}

func TestAPI_SongEndpoints(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/songs/210049")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var song domain.Song
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&song))
	assert.Equal(t, "Song", song.Title)

	resp2, err := http.Get(server.URL + "/api/v1/songs/210049/url?level=lossless")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	var res domain.Resolution
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&res))
	assert.Equal(t, domain.LevelExHigh, res.Used)
	assert.NotEmpty(t, res.URL.URL)
}
