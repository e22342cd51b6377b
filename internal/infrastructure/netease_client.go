package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/yourusername/ncm-fetch-go/internal/domain"
)

// Search type constants of the upstream search endpoint.
const (
	SearchTypeSong     = 1
	SearchTypeAlbum    = 10
	SearchTypeArtist   = 100
	SearchTypePlaylist = 1000
)

type h = map[string]any

// NeteaseClient exposes the upstream endpoints over a signed Transport.
// All failures come back as wrapped taxonomy errors, never panics.
type NeteaseClient struct {
	transport *Transport
	logger    *zap.Logger
}

func NewNeteaseClient(transport *Transport, logger *zap.Logger) *NeteaseClient {
	return &NeteaseClient{transport: transport, logger: logger}
}

var _ domain.MetadataSource = (*NeteaseClient)(nil)

// HasSession reports whether the client carries an authenticated cookie.
func (c *NeteaseClient) HasSession() bool { return c.transport.HasSession() }

// SearchSongs queries the song search endpoint.
func (c *NeteaseClient) SearchSongs(ctx context.Context, keyword string, limit, offset int) (*domain.SearchResult, error) {
	out := c.transport.PostWeapi(ctx, "/weapi/search/get", h{
		"s":          keyword,
		"type":       SearchTypeSong,
		"limit":      limit,
		"offset":     offset,
		"total":      true,
		"csrf_token": "",
	}, false)
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}

	result := out.Body.Get("result")
	sr := &domain.SearchResult{
		Total:   result.Get("songCount").Int(),
		HasMore: result.Get("hasMore").Bool(),
	}
	result.Get("songs").ForEach(func(_, item gjson.Result) bool {
		sr.Songs = append(sr.Songs, domain.SongFromJSON(item))
		return true
	})
	return sr, nil
}

// SongDetail fetches metadata for a batch of song ids.
func (c *NeteaseClient) SongDetail(ctx context.Context, ids []int64) ([]domain.Song, error) {
	type ref struct {
		ID string `json:"id"`
		V  int    `json:"v"`
	}
	refs := make([]ref, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, ref{ID: strconv.FormatInt(id, 10)})
	}
	encoded, err := json.Marshal(refs)
	if err != nil {
		return nil, err
	}

	out := c.transport.PostWeapi(ctx, "/weapi/v3/song/detail", h{"c": string(encoded)}, false)
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("song detail: %w", err)
	}

	var songs []domain.Song
	out.Body.Get("songs").ForEach(func(_, item gjson.Result) bool {
		songs = append(songs, domain.SongFromJSON(item))
		return true
	})
	return songs, nil
}

// PlayerURL resolves streaming URLs via the web surface's player endpoint.
// The data field is a list, one entry per requested id.
func (c *NeteaseClient) PlayerURL(ctx context.Context, ids []int64, level domain.QualityLevel) ([]domain.SongURL, error) {
	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	out := c.transport.PostWeapi(ctx, "/weapi/song/enhance/player/url/v1", h{
		"ids":        string(encoded),
		"level":      string(level),
		"encodeType": level.EncodeType(),
	}, false)
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("player url: %w", err)
	}
	return urlsFromList(out.Body.Get("data"))
}

// DownloadURL resolves a download URL via the web surface's download
// endpoint. Unlike PlayerURL, the data field is a single object.
func (c *NeteaseClient) DownloadURL(ctx context.Context, id int64, level domain.QualityLevel) (*domain.SongURL, error) {
	out := c.transport.PostWeapi(ctx, "/weapi/song/enhance/download/url/v1", h{
		"id":    strconv.FormatInt(id, 10),
		"level": string(level),
	}, false)
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("download url: %w", err)
	}
	data := out.Body.Get("data")
	if !data.IsObject() {
		return nil, fmt.Errorf("%w: download data is %s", domain.ErrUnrecognizedShape, data.Type)
	}
	u := domain.SongURLFromJSON(data)
	return &u, nil
}

// EapiSongURL resolves streaming URLs via the mobile-app surface, which
// has broader catalog coverage for tier-restricted content.
func (c *NeteaseClient) EapiSongURL(ctx context.Context, ids []int64, level domain.QualityLevel) ([]domain.SongURL, error) {
	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	out := c.transport.PostEapi(ctx, "/api/song/enhance/player/url/v1", h{
		"ids":        string(encoded),
		"level":      string(level),
		"encodeType": level.EncodeType(),
	})
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("eapi song url: %w", err)
	}
	return urlsFromList(out.Body.Get("data"))
}

// Lyric fetches the lyric variants for one song.
func (c *NeteaseClient) Lyric(ctx context.Context, id int64) (*domain.Lyric, error) {
	out := c.transport.PostWeapi(ctx, "/weapi/song/lyric", h{
		"id": id, "tv": -1, "lv": -1, "rv": -1, "kv": -1, "_nmclfl": 1,
	}, false)
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("lyric: %w", err)
	}
	return &domain.Lyric{
		Raw:        out.Body.Get("lrc.lyric").String(),
		Translated: out.Body.Get("tlyric.lyric").String(),
		Romanized:  out.Body.Get("romalrc.lyric").String(),
	}, nil
}

// PlaylistDetail fetches a playlist summary and its full track id list.
func (c *NeteaseClient) PlaylistDetail(ctx context.Context, id int64) (*domain.Playlist, []int64, error) {
	out := c.transport.PostWeapi(ctx,
		fmt.Sprintf("/api/v6/playlist/detail?id=%d", id),
		h{"id": strconv.FormatInt(id, 10), "n": "100000", "s": "0"}, false)
	if err := out.Err(); err != nil {
		return nil, nil, fmt.Errorf("playlist detail: %w", err)
	}

	pl := out.Body.Get("playlist")
	if !pl.Exists() {
		return nil, nil, fmt.Errorf("%w: playlist %d", domain.ErrNotFound, id)
	}
	info := &domain.Playlist{
		ID:         pl.Get("id").Int(),
		Name:       pl.Get("name").String(),
		CoverURL:   pl.Get("coverImgUrl").String(),
		TrackCount: pl.Get("trackCount").Int(),
		PlayCount:  pl.Get("playCount").Int(),
		Creator:    pl.Get("creator.nickname").String(),
	}
	var trackIDs []int64
	pl.Get("trackIds").ForEach(func(_, t gjson.Result) bool {
		trackIDs = append(trackIDs, t.Get("id").Int())
		return true
	})
	return info, trackIDs, nil
}

// PlaylistTracks fetches full song metadata for every track of a
// playlist, batching detail lookups the way the upstream expects.
func (c *NeteaseClient) PlaylistTracks(ctx context.Context, id int64) ([]domain.Song, error) {
	_, trackIDs, err := c.PlaylistDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	const batchSize = 500
	var songs []domain.Song
	for start := 0; start < len(trackIDs); start += batchSize {
		end := start + batchSize
		if end > len(trackIDs) {
			end = len(trackIDs)
		}
		batch, err := c.SongDetail(ctx, trackIDs[start:end])
		if err != nil {
			return nil, err
		}
		songs = append(songs, batch...)
	}
	return songs, nil
}

// AlbumSongs fetches the album name and all songs on an album.
func (c *NeteaseClient) AlbumSongs(ctx context.Context, id int64) (string, []domain.Song, error) {
	out := c.transport.PostWeapi(ctx,
		fmt.Sprintf("/weapi/v1/album/%d", id),
		h{"id": strconv.FormatInt(id, 10)}, false)
	if err := out.Err(); err != nil {
		return "", nil, fmt.Errorf("album: %w", err)
	}

	var songs []domain.Song
	out.Body.Get("songs").ForEach(func(_, item gjson.Result) bool {
		songs = append(songs, domain.SongFromJSON(item))
		return true
	})
	return out.Body.Get("album.name").String(), songs, nil
}

// UserInfo fetches the account behind the session cookie, used to verify
// a login. Returns ErrAccessDenied when the cookie is invalid or expired.
func (c *NeteaseClient) UserInfo(ctx context.Context) (nickname string, userID int64, err error) {
	out := c.transport.PostWeapi(ctx, "/weapi/w/nuser/account/get", h{}, false)
	if err := out.Err(); err != nil {
		return "", 0, fmt.Errorf("user info: %w", err)
	}
	profile := out.Body.Get("profile")
	if !profile.Exists() || profile.Type == gjson.Null {
		return "", 0, fmt.Errorf("%w: no profile for session", domain.ErrAccessDenied)
	}
	return profile.Get("nickname").String(), profile.Get("userId").Int(), nil
}

// PersonalFM fetches the personalized radio feed, which lives on the
// interface host.
func (c *NeteaseClient) PersonalFM(ctx context.Context) ([]domain.Song, error) {
	out := c.transport.PostWeapi(ctx, "/weapi/v1/radio/get", h{"imageFm": "0"}, true)
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("personal fm: %w", err)
	}
	var songs []domain.Song
	out.Body.Get("data").ForEach(func(_, item gjson.Result) bool {
		songs = append(songs, domain.SongFromJSON(item))
		return true
	})
	return songs, nil
}

// NewSongs fetches the new-songs chart. areaID filters by region
// (0 all, 7 chinese, 8 japanese, 16 korean, 96 western).
func (c *NeteaseClient) NewSongs(ctx context.Context, areaID int) ([]domain.Song, error) {
	out := c.transport.PostWeapi(ctx, "/weapi/v1/discovery/new/songs", h{
		"areaId": areaID,
		"total":  true,
	}, false)
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("new songs: %w", err)
	}
	var songs []domain.Song
	out.Body.Get("data").ForEach(func(_, item gjson.Result) bool {
		songs = append(songs, domain.SongFromJSON(item))
		return true
	})
	return songs, nil
}

// RecommendSongs fetches the daily recommendations. Requires an
// authenticated session.
func (c *NeteaseClient) RecommendSongs(ctx context.Context) ([]domain.Song, error) {
	out := c.transport.PostWeapi(ctx, "/weapi/v3/discovery/recommend/songs", h{}, false)
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("recommend songs: %w", err)
	}
	var songs []domain.Song
	out.Body.Get("data.dailySongs").ForEach(func(_, item gjson.Result) bool {
		songs = append(songs, domain.SongFromJSON(item))
		return true
	})
	return songs, nil
}

// ArtistSongs fetches songs by one artist. order is "hot" or "time".
func (c *NeteaseClient) ArtistSongs(ctx context.Context, artistID int64, order string, limit, offset int) ([]domain.Song, error) {
	if order != "time" {
		order = "hot"
	}
	out := c.transport.PostWeapi(ctx, "/weapi/v1/artist/songs", h{
		"id":            strconv.FormatInt(artistID, 10),
		"private_cloud": "true",
		"work_type":     1,
		"order":         order,
		"offset":        offset,
		"limit":         limit,
	}, false)
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("artist songs: %w", err)
	}
	var songs []domain.Song
	out.Body.Get("songs").ForEach(func(_, item gjson.Result) bool {
		songs = append(songs, domain.SongFromJSON(item))
		return true
	})
	return songs, nil
}

// Toplist fetches the available charts.
func (c *NeteaseClient) Toplist(ctx context.Context) ([]domain.Chart, error) {
	out := c.transport.PostWeapi(ctx, "/api/toplist", h{}, false)
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("toplist: %w", err)
	}
	var charts []domain.Chart
	out.Body.Get("list").ForEach(func(_, item gjson.Result) bool {
		charts = append(charts, domain.Chart{
			ID:              item.Get("id").Int(),
			Name:            item.Get("name").String(),
			Description:     item.Get("description").String(),
			UpdateFrequency: item.Get("updateFrequency").String(),
			CoverURL:        item.Get("coverImgUrl").String(),
		})
		return true
	})
	return charts, nil
}

// RedHeartPlaylist finds the session user's liked-songs list, which the
// upstream keeps as the first playlist of the account.
func (c *NeteaseClient) RedHeartPlaylist(ctx context.Context) (*domain.Playlist, error) {
	_, userID, err := c.UserInfo(ctx)
	if err != nil {
		return nil, err
	}
	out := c.transport.PostWeapi(ctx, "/weapi/user/playlist", h{
		"uid":    strconv.FormatInt(userID, 10),
		"limit":  1,
		"offset": 0,
	}, false)
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("user playlists: %w", err)
	}
	pl := out.Body.Get("playlist.0")
	if !pl.Exists() {
		return nil, fmt.Errorf("%w: no liked-songs playlist for user %d", domain.ErrNotFound, userID)
	}
	return &domain.Playlist{
		ID:         pl.Get("id").Int(),
		Name:       pl.Get("name").String(),
		CoverURL:   pl.Get("coverImgUrl").String(),
		TrackCount: pl.Get("trackCount").Int(),
		PlayCount:  pl.Get("playCount").Int(),
		Creator:    pl.Get("creator.nickname").String(),
	}, nil
}

// RedHeartSongs fetches the tracks of the liked-songs list.
func (c *NeteaseClient) RedHeartSongs(ctx context.Context) ([]domain.Song, error) {
	pl, err := c.RedHeartPlaylist(ctx)
	if err != nil {
		return nil, err
	}
	return c.PlaylistTracks(ctx, pl.ID)
}

// urlsFromList normalizes the list-shaped data field of the url
// endpoints. A dict-shaped data is tolerated as a single-entry list;
// anything else is an unrecognized shape.
func urlsFromList(data gjson.Result) ([]domain.SongURL, error) {
	switch {
	case data.IsArray():
		var urls []domain.SongURL
		data.ForEach(func(_, item gjson.Result) bool {
			urls = append(urls, domain.SongURLFromJSON(item))
			return true
		})
		return urls, nil
	case data.IsObject():
		return []domain.SongURL{domain.SongURLFromJSON(data)}, nil
	default:
		return nil, fmt.Errorf("%w: url data is %s", domain.ErrUnrecognizedShape, data.Type)
	}
}
