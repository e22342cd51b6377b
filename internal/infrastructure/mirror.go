package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/yourusername/ncm-fetch-go/internal/domain"
)

// MirrorClient resolves songs through a third-party aggregator API as a
// last resort for tier-restricted content. Aggregators are unsigned and
// loosely specified: the response data is sometimes a list, sometimes a
// single object, and sizes arrive as human-readable strings.
type MirrorClient struct {
	baseURL string
	source  string
	client  *req.Client
	logger  *zap.Logger
}

func NewMirrorClient(cfg *domain.MirrorConfig, logger *zap.Logger) *MirrorClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := req.C().
		SetTimeout(timeout).
		SetCommonHeader("User-Agent", defaultHeaders["User-Agent"]).
		SetCommonHeader("Accept", "application/json")
	return &MirrorClient{baseURL: cfg.BaseURL, source: cfg.Source, client: client, logger: logger}
}

func (m *MirrorClient) Name() string { return "mirror" }

// ResolveURL asks the aggregator for a playable URL at the given level.
func (m *MirrorClient) ResolveURL(ctx context.Context, id int64, level domain.QualityLevel) (*domain.SongURL, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		SetQueryParam("id", strconv.FormatInt(id, 10)).
		SetQueryParam("level", string(level)).
		SetQueryParam("type", "json").
		SetQueryParam("source", m.source).
		Get(m.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: mirror request: %v", domain.ErrTransient, err)
	}
	body := resp.Bytes()
	if resp.IsErrorState() {
		return nil, fmt.Errorf("%w: mirror returned %d", domain.ErrTransient, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: mirror returned non-JSON", domain.ErrUnrecognizedShape)
	}

	parsed := gjson.ParseBytes(body)
	if code := parsed.Get("code"); code.Exists() && code.Int() != 200 {
		return nil, fmt.Errorf("%w: mirror code %d", domain.ErrAccessDenied, code.Int())
	}

	entry, err := mirrorEntry(parsed)
	if err != nil {
		return nil, err
	}
	u := mirrorURLFromJSON(id, entry)
	if !u.Resolved() {
		return nil, fmt.Errorf("%w: mirror has no url for %d", domain.ErrNotFound, id)
	}
	m.logger.Debug("mirror resolved",
		zap.Int64("id", id),
		zap.String("level", string(level)),
		zap.Int64("size", u.Size))
	return &u, nil
}

// mirrorEntry normalizes the data field: a list yields its first entry,
// an object is used directly, and some aggregators skip the envelope
// entirely and put the url at the top level.
func mirrorEntry(parsed gjson.Result) (gjson.Result, error) {
	data := parsed.Get("data")
	switch {
	case data.IsArray():
		entries := data.Array()
		if len(entries) == 0 {
			return gjson.Result{}, fmt.Errorf("%w: mirror data is empty", domain.ErrNotFound)
		}
		return entries[0], nil
	case data.IsObject():
		return data, nil
	case parsed.Get("url").Exists():
		return parsed, nil
	default:
		return gjson.Result{}, fmt.Errorf("%w: mirror data is %s", domain.ErrUnrecognizedShape, data.Type)
	}
}

func mirrorURLFromJSON(id int64, entry gjson.Result) domain.SongURL {
	u := domain.SongURL{
		ID:      id,
		URL:     entry.Get("url").String(),
		Bitrate: entry.Get("br").Int(),
		Type:    strings.ToLower(entry.Get("type").String()),
		Level:   domain.QualityLevel(entry.Get("level").String()),
	}
	if u.Type == "" {
		u.Type = strings.ToLower(entry.Get("format").String())
	}
	u.Size = parseSize(entry.Get("size"))
	return u
}

// parseSize accepts either a raw byte count or a human-readable size
// such as "167.61MB".
func parseSize(v gjson.Result) int64 {
	if v.Type == gjson.Number {
		return v.Int()
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return 0
	}

	units := []struct {
		suffix string
		factor float64
	}{
		{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1},
	}
	upper := strings.ToUpper(s)
	for _, u := range units {
		if strings.HasSuffix(upper, u.suffix) {
			num := strings.TrimSpace(upper[:len(upper)-len(u.suffix)])
			f, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0
			}
			return int64(f * u.factor)
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
