package app

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/ncm-fetch-go/internal/domain"
	"github.com/yourusername/ncm-fetch-go/internal/infrastructure"
)

// RequestOutcome is the synchronous answer for one requested id; the
// actual fetch runs in the background after "queued".
type RequestOutcome string

const (
	// OutcomeCached means a completed record plus its file already exist,
	// so no network call was made.
	OutcomeCached RequestOutcome = "cached"
	// OutcomeQueued means this call won the claim and a fetch started.
	OutcomeQueued RequestOutcome = "queued"
	// OutcomeDropped means another worker already owns the id.
	OutcomeDropped RequestOutcome = "dropped"
)

// RequestResult is the per-id result of a Request batch.
type RequestResult struct {
	ID       int64          `json:"id"`
	Outcome  RequestOutcome `json:"outcome"`
	FilePath string         `json:"file_path,omitempty"`
}

// DownloadCoordinator is the concurrency core: it claims ownership of
// song ids, spawns background fetches bounded by a semaphore, streams
// audio to disk, and keeps the catalog record truthful on every exit
// path. The catalog claim is the only serialization point; workers never
// touch a record they did not claim.
type DownloadCoordinator struct {
	repo     domain.CatalogRepository
	resolver *QualityResolver
	meta     domain.MetadataSource
	streamer *infrastructure.AudioStreamer
	store    *infrastructure.LocalFileStore
	quality  domain.QualityLevel
	withMeta bool
	sem      chan struct{}
	wg       sync.WaitGroup
	logger   *zap.Logger
}

func NewDownloadCoordinator(
	repo domain.CatalogRepository,
	resolver *QualityResolver,
	streamer *infrastructure.AudioStreamer,
	store *infrastructure.LocalFileStore,
	cfg *domain.DownloadConfig,
	logger *zap.Logger,
) *DownloadCoordinator {
	limit := cfg.ConcurrentLimit
	if limit <= 0 {
		limit = 4
	}
	quality := domain.QualityLevel(cfg.Quality)
	if !quality.Valid() {
		quality = domain.LevelExHigh
	}
	return &DownloadCoordinator{
		repo:     repo,
		resolver: resolver,
		meta:     resolver.client,
		streamer: streamer,
		store:    store,
		quality:  quality,
		withMeta: cfg.NameWithMetadata,
		sem:      make(chan struct{}, limit),
		logger:   logger,
	}
}

// Request enqueues a batch of song ids. It returns immediately: cache
// hits report their path, winners of the claim race are queued for a
// background fetch, losers are dropped silently. One bad id never
// affects the rest of the batch.
func (c *DownloadCoordinator) Request(ctx context.Context, ids []int64) []RequestResult {
	results := make([]RequestResult, 0, len(ids))
	var claimed []int64

	for _, id := range ids {
		record, err := c.repo.FindByID(id)
		if err != nil {
			c.logger.Error("catalog lookup failed", zap.Int64("id", id), zap.Error(err))
			results = append(results, RequestResult{ID: id, Outcome: OutcomeDropped})
			continue
		}

		if record != nil && record.IsCompleted() {
			if _, ok := c.store.Exists(record.FilePath); ok {
				results = append(results, RequestResult{ID: id, Outcome: OutcomeCached, FilePath: record.FilePath})
				continue
			}
			// Completed record whose file vanished: make it claimable.
			record.ResetPending()
			if err := c.repo.Update(record); err != nil {
				c.logger.Error("record repair failed", zap.Int64("id", id), zap.Error(err))
				results = append(results, RequestResult{ID: id, Outcome: OutcomeDropped})
				continue
			}
		}

		ok, err := c.repo.Claim(id)
		if err != nil {
			c.logger.Error("claim failed", zap.Int64("id", id), zap.Error(err))
			results = append(results, RequestResult{ID: id, Outcome: OutcomeDropped})
			continue
		}
		if !ok {
			results = append(results, RequestResult{ID: id, Outcome: OutcomeDropped})
			continue
		}
		claimed = append(claimed, id)
		results = append(results, RequestResult{ID: id, Outcome: OutcomeQueued})
	}

	if len(claimed) == 0 {
		return results
	}

	// One batch metadata lookup covers every claimed id; workers read
	// from the primed cache instead of fetching detail one by one.
	if songs, err := c.meta.SongDetail(ctx, claimed); err == nil {
		c.resolver.Prime(songs)
	} else {
		c.logger.Warn("batch metadata lookup failed", zap.Int("count", len(claimed)), zap.Error(err))
	}

	for _, id := range claimed {
		c.wg.Add(1)
		go c.fetch(id)
	}
	return results
}

// Wait blocks until every in-flight fetch has finished. Used by shutdown
// and by tests.
func (c *DownloadCoordinator) Wait() {
	c.wg.Wait()
}

// fetch downloads one claimed id. Claimed downloads are not cancelled by
// the requester going away, so the worker runs on its own context;
// per-call transport timeouts still bound each network operation.
func (c *DownloadCoordinator) fetch(id int64) {
	defer c.wg.Done()
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	ctx := context.Background()
	committed := false
	relPath := ""

	// Whatever goes wrong, including a panic, the id must come back to
	// Pending with no partial file left behind.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("fetch panicked", zap.Int64("id", id), zap.Any("panic", r))
		}
		if committed {
			return
		}
		if relPath != "" {
			if err := c.store.Remove(relPath); err != nil {
				c.logger.Warn("partial cleanup failed", zap.Int64("id", id), zap.Error(err))
			}
		}
		c.resetPending(id)
	}()

	res, err := c.resolver.Resolve(ctx, id, c.quality)
	if err != nil {
		c.logger.Warn("resolve failed", zap.Int64("id", id), zap.String("quality", string(c.quality)), zap.Error(err))
		return
	}

	var title, artist string
	if song, err := c.resolver.Song(ctx, id); err == nil {
		title = song.Title
		artist = song.ArtistNames()
	}

	nameArtist, nameTitle := artist, title
	if !c.withMeta {
		nameArtist, nameTitle = "", ""
	}

	relPath = c.store.FileName(id, nameArtist, nameTitle, res.URL.Extension())
	body, length, err := c.streamer.Open(ctx, res.URL.URL)
	if err != nil {
		c.logger.Warn("stream open failed", zap.Int64("id", id), zap.Error(err))
		return
	}
	defer body.Close()

	expected := res.URL.Size
	if expected <= 0 {
		expected = length
	}
	written, err := c.store.Save(body, relPath, expected)
	if err != nil {
		c.logger.Warn("stream write failed", zap.Int64("id", id), zap.Error(err))
		return
	}

	record, err := c.repo.FindByID(id)
	if err != nil || record == nil {
		record = domain.NewClaimedRecord(id)
	}
	record.MarkCompleted(title, artist, relPath, written)
	if err := c.repo.Upsert(record); err != nil {
		c.logger.Error("commit failed", zap.Int64("id", id), zap.Error(err))
		return
	}
	committed = true

	c.logger.Info("download completed",
		zap.Int64("id", id),
		zap.String("file", relPath),
		zap.Int64("size", written),
		zap.String("requested", string(res.Requested)),
		zap.String("used", string(res.Used)),
		zap.String("backend", res.Backend))
}

func (c *DownloadCoordinator) resetPending(id int64) {
	record, err := c.repo.FindByID(id)
	if err != nil || record == nil {
		return
	}
	if record.Status != domain.StatusDownloading {
		return
	}
	record.ResetPending()
	if err := c.repo.Update(record); err != nil {
		c.logger.Error("reset to pending failed", zap.Int64("id", id), zap.Error(err))
	}
}

// ReconcileReport summarizes a startup reconciliation pass.
type ReconcileReport struct {
	ResetStale int64 `json:"reset_stale"`
	Discovered int   `json:"discovered"`
}

// Reconcile repairs the catalog after a crash. It must run before any
// worker exists: stale Downloading rows go back to Pending, and files
// present on disk but absent or inconsistent in the catalog become
// Completed records.
func (c *DownloadCoordinator) Reconcile() (*ReconcileReport, error) {
	report := &ReconcileReport{}

	reset, err := c.repo.ResetStale()
	if err != nil {
		return nil, err
	}
	report.ResetStale = reset

	files, err := c.store.Scan()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		id, ok := songIDFromFileName(f.RelPath)
		if !ok {
			continue
		}
		record, err := c.repo.FindByID(id)
		if err != nil {
			return nil, err
		}
		if record != nil && record.IsCompleted() && record.Consistent() &&
			record.FilePath == f.RelPath && record.FileSize == f.Size {
			continue
		}

		if record == nil {
			record = domain.NewCompletedRecord(id, f.RelPath, f.Size)
			record.Artist, record.Title = metadataFromFileName(f.RelPath)
		} else {
			title, artist := record.Title, record.Artist
			if title == "" && artist == "" {
				artist, title = metadataFromFileName(f.RelPath)
			}
			record.MarkCompleted(title, artist, f.RelPath, f.Size)
		}
		if err := c.repo.Upsert(record); err != nil {
			return nil, err
		}
		report.Discovered++
	}

	c.logger.Info("catalog reconciled",
		zap.Int64("reset_stale", report.ResetStale),
		zap.Int("discovered", report.Discovered))
	return report, nil
}

// songIDFromFileName recovers the numeric id prefix of a stored file.
func songIDFromFileName(name string) (int64, bool) {
	base := strings.TrimSuffix(name, ".mp3")
	base = strings.TrimSuffix(base, ".flac")
	digits := base
	if i := strings.IndexByte(base, '-'); i >= 0 {
		digits = base[:i]
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// metadataFromFileName guesses artist and title from the canonical
// "<id>-<artist> - <title>" layout. Best effort only.
func metadataFromFileName(name string) (artist, title string) {
	base := strings.TrimSuffix(name, ".mp3")
	base = strings.TrimSuffix(base, ".flac")
	i := strings.IndexByte(base, '-')
	if i < 0 {
		return "", ""
	}
	rest := base[i+1:]
	if parts := strings.SplitN(rest, " - ", 2); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", rest
}
