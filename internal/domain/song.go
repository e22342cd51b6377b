package domain

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// FeeTier represents the access restriction attached to a song.
type FeeTier int

const (
	FeeFree           FeeTier = 0
	FeeVIP            FeeTier = 1
	FeeAlbum          FeeTier = 4
	FeeLowQualityFree FeeTier = 8
)

// Restricted reports whether the song requires a paid entitlement to play
// at full quality.
func (f FeeTier) Restricted() bool {
	return f == FeeVIP || f == FeeAlbum
}

// Artist is a performing artist as returned by the upstream service.
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Album is the album a song belongs to.
type Album struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	PicURL string `json:"picUrl,omitempty"`
}

// Song is the immutable metadata for a single upstream track.
type Song struct {
	ID       int64    `json:"id"`
	Title    string   `json:"name"`
	Artists  []Artist `json:"artists"`
	Album    Album    `json:"album"`
	Duration int64    `json:"duration"` // milliseconds
	Fee      FeeTier  `json:"fee"`
}

// ArtistNames joins all artist names for display, in upstream order.
func (s *Song) ArtistNames() string {
	names := make([]string, 0, len(s.Artists))
	for _, a := range s.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// DurationString renders the duration as m:ss.
func (s *Song) DurationString() string {
	secs := s.Duration / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// SongFromJSON builds a Song from an upstream detail/search item. The
// upstream returns either the short keys (ar/al/dt) or the long keys
// (artists/album/duration) depending on endpoint.
func SongFromJSON(item gjson.Result) Song {
	artistsData := item.Get("ar")
	if !artistsData.Exists() {
		artistsData = item.Get("artists")
	}
	var artists []Artist
	artistsData.ForEach(func(_, a gjson.Result) bool {
		artists = append(artists, Artist{
			ID:   a.Get("id").Int(),
			Name: a.Get("name").String(),
		})
		return true
	})

	albumData := item.Get("al")
	if !albumData.Exists() {
		albumData = item.Get("album")
	}

	duration := item.Get("dt").Int()
	if duration == 0 {
		duration = item.Get("duration").Int()
	}

	return Song{
		ID:      item.Get("id").Int(),
		Title:   item.Get("name").String(),
		Artists: artists,
		Album: Album{
			ID:     albumData.Get("id").Int(),
			Name:   albumData.Get("name").String(),
			PicURL: albumData.Get("picUrl").String(),
		},
		Duration: duration,
		Fee:      FeeTier(item.Get("fee").Int()),
	}
}

// SongURL is a resolved (or unresolved) playback location for a song.
// It is transient: only the final on-disk path is ever persisted.
type SongURL struct {
	ID      int64        `json:"id"`
	URL     string       `json:"url"` // empty means unresolved
	Bitrate int64        `json:"br"`
	Size    int64        `json:"size"`
	Type    string       `json:"type"` // mp3, flac
	Level   QualityLevel `json:"level"`
	MD5     string       `json:"md5,omitempty"`
}

// Resolved reports whether the upstream actually handed out a URL.
func (u *SongURL) Resolved() bool {
	return u != nil && u.URL != ""
}

// Extension returns the file extension for the resolved codec. The
// upstream omits the type on some backends, in which case it is derived
// from the quality level.
func (u *SongURL) Extension() string {
	if t := strings.ToLower(u.Type); t != "" {
		return t
	}
	return u.Level.Extension()
}

// SongURLFromJSON builds a SongURL from one upstream url-endpoint item.
func SongURLFromJSON(item gjson.Result) SongURL {
	return SongURL{
		ID:      item.Get("id").Int(),
		URL:     item.Get("url").String(),
		Bitrate: item.Get("br").Int(),
		Size:    item.Get("size").Int(),
		Type:    strings.ToLower(item.Get("type").String()),
		Level:   QualityLevel(item.Get("level").String()),
		MD5:     item.Get("md5").String(),
	}
}

// Lyric holds the lyric variants for a song.
type Lyric struct {
	Raw        string `json:"lrc"`
	Translated string `json:"tlyric,omitempty"`
	Romanized  string `json:"romalrc,omitempty"`
}

// Playlist is the summary of an upstream playlist.
type Playlist struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CoverURL   string `json:"coverUrl,omitempty"`
	TrackCount int64  `json:"trackCount"`
	PlayCount  int64  `json:"playCount"`
	Creator    string `json:"creator,omitempty"`
}

// Chart is one entry of the upstream's chart index.
type Chart struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	UpdateFrequency string `json:"updateFrequency,omitempty"`
	CoverURL        string `json:"coverUrl,omitempty"`
}

// SearchResult is a page of song search hits.
type SearchResult struct {
	Songs   []Song `json:"songs"`
	Total   int64  `json:"total"`
	HasMore bool   `json:"hasMore"`
}
