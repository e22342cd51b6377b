package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestSongFromJSON_ShortKeys(t *testing.T) {
	item := gjson.Parse(`{
		"id": 210049,
		"name": "Song",
		"ar": [{"id": 1, "name": "Artist"}, {"id": 2, "name": "Guest"}],
		"al": {"id": 9, "name": "Album", "picUrl": "http://p.example/a.jpg"},
		"dt": 262000,
		"fee": 1
	}`)

	song := SongFromJSON(item)
	assert.Equal(t, int64(210049), song.ID)
	assert.Equal(t, "Song", song.Title)
	assert.Equal(t, "Artist, Guest", song.ArtistNames())
	assert.Equal(t, "Album", song.Album.Name)
	assert.Equal(t, "4:22", song.DurationString())
	assert.Equal(t, FeeVIP, song.Fee)
	assert.True(t, song.Fee.Restricted())
}

func TestSongFromJSON_LongKeys(t *testing.T) {
	item := gjson.Parse(`{
		"id": 7,
		"name": "Other",
		"artists": [{"id": 3, "name": "Solo"}],
		"album": {"id": 4, "name": "LP"},
		"duration": 61000,
		"fee": 8
	}`)

	song := SongFromJSON(item)
	assert.Equal(t, "Solo", song.ArtistNames())
	assert.Equal(t, "LP", song.Album.Name)
	assert.Equal(t, "1:01", song.DurationString())
	assert.Equal(t, FeeLowQualityFree, song.Fee)
	assert.False(t, song.Fee.Restricted())
}

func TestSongURL_Resolved(t *testing.T) {
	var missing *SongURL
	assert.False(t, missing.Resolved())

	unresolved := SongURLFromJSON(gjson.Parse(`{"id": 1, "url": null, "br": 0}`))
	assert.False(t, unresolved.Resolved())

	resolved := SongURLFromJSON(gjson.Parse(`{"id": 1, "url": "http://cdn.example/a.mp3", "br": 320000, "type": "MP3", "level": "exhigh"}`))
	assert.True(t, resolved.Resolved())
	assert.Equal(t, "mp3", resolved.Type)
	assert.Equal(t, LevelExHigh, resolved.Level)
}

func TestSongURL_ExtensionFallsBackToLevel(t *testing.T) {
	u := SongURL{Type: "", Level: LevelLossless}
	assert.Equal(t, "flac", u.Extension())

	u = SongURL{Type: "FLAC", Level: LevelStandard}
	assert.Equal(t, "flac", u.Extension())
}
