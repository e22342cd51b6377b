package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/yourusername/ncm-fetch-go/internal/domain"
	"github.com/yourusername/ncm-fetch-go/internal/infrastructure"
)

const (
	metadataCacheSize = 512
	metadataCacheTTL  = 10 * time.Minute
)

// QualityResolver finds a playable URL for a song, walking quality tiers
// and backends in a fixed order and stopping at the first hit. It never
// compares two successful results; first success wins.
//
// The order: for tier-restricted songs the mobile surface is tried first
// (requested level, then the fallback list) since it covers more of the
// restricted catalog; the web surface follows, trying the download
// endpoint shape then the player shape per level; a configured mirror is
// the last resort.
type QualityResolver struct {
	client *infrastructure.NeteaseClient
	mirror domain.MirrorResolver // nil when not configured
	cache  *expirable.LRU[int64, domain.Song]
	logger *zap.Logger
}

func NewQualityResolver(client *infrastructure.NeteaseClient, mirror domain.MirrorResolver, logger *zap.Logger) *QualityResolver {
	return &QualityResolver{
		client: client,
		mirror: mirror,
		cache:  expirable.NewLRU[int64, domain.Song](metadataCacheSize, nil, metadataCacheTTL),
		logger: logger,
	}
}

// Song returns metadata for one song, served from the LRU when fresh.
func (r *QualityResolver) Song(ctx context.Context, id int64) (*domain.Song, error) {
	if song, ok := r.cache.Get(id); ok {
		return &song, nil
	}
	songs, err := r.client.SongDetail(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(songs) == 0 {
		return nil, fmt.Errorf("%w: song %d", domain.ErrNotFound, id)
	}
	r.cache.Add(id, songs[0])
	return &songs[0], nil
}

// Prime stores already-fetched metadata, saving the per-id detail call
// when the caller has done a batch lookup.
func (r *QualityResolver) Prime(songs []domain.Song) {
	for _, s := range songs {
		r.cache.Add(s.ID, s)
	}
}

// Resolve finds the first usable URL for id at the requested level.
// The returned Resolution reports the level actually granted, which may
// be lower than requested. An unresolved song is ErrNotFound.
func (r *QualityResolver) Resolve(ctx context.Context, id int64, level domain.QualityLevel) (*domain.Resolution, error) {
	song, err := r.Song(ctx, id)
	if err != nil {
		return nil, err
	}

	levels := fallbackChain(level)

	if song.Fee.Restricted() {
		if res := r.tryEapi(ctx, id, level, levels); res != nil {
			return res, nil
		}
	}
	if res := r.tryWeapi(ctx, id, level, levels); res != nil {
		return res, nil
	}
	if r.mirror != nil {
		if res := r.tryMirror(ctx, id, level); res != nil {
			return res, nil
		}
	}
	return nil, fmt.Errorf("%w: no backend resolved song %d at %s", domain.ErrNotFound, id, level)
}

// fallbackChain is the requested level followed by the fixed priority
// list, deduplicated. The priority list is fidelity-first and distinct
// from the comparison order.
func fallbackChain(requested domain.QualityLevel) []domain.QualityLevel {
	chain := []domain.QualityLevel{requested}
	for _, l := range domain.FallbackOrder {
		if l != requested {
			chain = append(chain, l)
		}
	}
	return chain
}

func (r *QualityResolver) tryEapi(ctx context.Context, id int64, requested domain.QualityLevel, levels []domain.QualityLevel) *domain.Resolution {
	for _, l := range levels {
		urls, err := r.client.EapiSongURL(ctx, []int64{id}, l)
		if err != nil {
			r.logger.Debug("eapi resolve failed",
				zap.Int64("id", id), zap.String("level", string(l)), zap.Error(err))
			continue
		}
		for i := range urls {
			if urls[i].ID == id && urls[i].Resolved() {
				return resolution(urls[i], requested, "eapi")
			}
		}
	}
	return nil
}

func (r *QualityResolver) tryWeapi(ctx context.Context, id int64, requested domain.QualityLevel, levels []domain.QualityLevel) *domain.Resolution {
	for _, l := range levels {
		if u, err := r.client.DownloadURL(ctx, id, l); err == nil && u.Resolved() {
			return resolution(*u, requested, "weapi-download")
		} else if err != nil {
			r.logger.Debug("weapi download resolve failed",
				zap.Int64("id", id), zap.String("level", string(l)), zap.Error(err))
		}

		urls, err := r.client.PlayerURL(ctx, []int64{id}, l)
		if err != nil {
			r.logger.Debug("weapi player resolve failed",
				zap.Int64("id", id), zap.String("level", string(l)), zap.Error(err))
			continue
		}
		for i := range urls {
			if urls[i].ID == id && urls[i].Resolved() {
				return resolution(urls[i], requested, "weapi-player")
			}
		}
	}
	return nil
}

func (r *QualityResolver) tryMirror(ctx context.Context, id int64, requested domain.QualityLevel) *domain.Resolution {
	u, err := r.mirror.ResolveURL(ctx, id, requested)
	if err != nil {
		r.logger.Debug("mirror resolve failed", zap.Int64("id", id), zap.Error(err))
		return nil
	}
	if !u.Resolved() {
		return nil
	}
	return resolution(*u, requested, r.mirror.Name())
}

// resolution fills the Used level in: trust the upstream's reported
// level, fall back to inferring it from the codec.
func resolution(u domain.SongURL, requested domain.QualityLevel, backend string) *domain.Resolution {
	used := u.Level
	if !used.Valid() {
		if u.Type == "flac" {
			used = domain.LevelLossless
		} else {
			used = domain.LevelStandard
		}
	}
	return &domain.Resolution{URL: u, Requested: requested, Used: used, Backend: backend}
}
