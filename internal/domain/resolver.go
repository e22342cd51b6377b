package domain

import "context"

// Resolution is the outcome of a URL resolution attempt: the level actually
// granted is reported, which may be lower than the one requested.
type Resolution struct {
	URL       SongURL      `json:"url"`
	Requested QualityLevel `json:"requested"`
	Used      QualityLevel `json:"used"`
	Backend   string       `json:"backend"` // eapi, weapi-download, weapi-player, mirror
}

// MirrorResolver is the optional last-resort aggregator strategy consulted
// after every native backend has failed. Absent by default.
type MirrorResolver interface {
	Name() string
	ResolveURL(ctx context.Context, id int64, level QualityLevel) (*SongURL, error)
}

// MetadataSource provides batch song metadata, used by the coordinator to
// commit resolved title/artist alongside a completed download.
type MetadataSource interface {
	SongDetail(ctx context.Context, ids []int64) ([]Song, error)
}
