package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/yourusername/ncm-fetch-go/internal/crypto"
	"github.com/yourusername/ncm-fetch-go/internal/domain"
)

// OutcomeKind classifies one upstream call. All transport failures are
// represented as values; nothing in this package panics across its boundary.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeTimeout
	OutcomeTransportError
	OutcomeDecodeError
)

// Outcome is the typed result of a signed upstream request.
type Outcome struct {
	Kind   OutcomeKind
	Body   gjson.Result
	Detail string
}

// OK reports a transport-level success with the upstream's success code.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess && o.Body.Get("code").Int() == 200
}

// Code returns the upstream envelope code, or 0 when the call never got a
// decodable body.
func (o Outcome) Code() int64 {
	if o.Kind != OutcomeSuccess {
		return 0
	}
	return o.Body.Get("code").Int()
}

// Err maps a non-success outcome onto the failure taxonomy. A successful
// outcome with a non-200 envelope code maps to ErrAccessDenied, which is
// what the upstream uses for tier-restricted content.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeTimeout:
		return fmt.Errorf("%w: request timeout", domain.ErrTransient)
	case OutcomeTransportError:
		return fmt.Errorf("%w: %s", domain.ErrTransient, o.Detail)
	case OutcomeDecodeError:
		return fmt.Errorf("%w: %s", domain.ErrUnrecognizedShape, o.Detail)
	}
	if code := o.Code(); code != 200 {
		return fmt.Errorf("%w: upstream code %d", domain.ErrAccessDenied, code)
	}
	return nil
}

var defaultHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36",
	"Content-Type":    "application/x-www-form-urlencoded",
	"Referer":         "https://music.163.com/",
	"Origin":          "https://music.163.com",
	"Accept":          "*/*",
	"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
}

// Transport issues signed POSTs against one upstream surface and decodes
// the JSON envelope. It holds the long-lived session cookie injected at
// construction; the eapi surface instead attaches a synthetic device
// cookie set per request, by upstream design.
type Transport struct {
	baseURL      string
	interfaceURL string
	cookie       string
	client       *http.Client
	logger       *zap.Logger
}

// NewTransport creates a transport for the configured upstream. The cookie
// may be empty for anonymous access; cookieFile, when set and readable,
// takes precedence.
func NewTransport(cfg *domain.NeteaseConfig, logger *zap.Logger) *Transport {
	cookie := cfg.Cookie
	if cfg.CookieFile != "" {
		if data, err := os.ReadFile(cfg.CookieFile); err == nil {
			cookie = strings.TrimSpace(string(data))
		}
	}
	return &Transport{
		baseURL:      cfg.BaseURL,
		interfaceURL: cfg.InterfaceURL,
		cookie:       cookie,
		client:       &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
	}
}

// Cookie exposes the session cookie for callers persisting credentials.
func (t *Transport) Cookie() string { return t.cookie }

// HasSession reports whether an authenticated MUSIC_U session is present.
func (t *Transport) HasSession() bool {
	return strings.Contains(t.cookie, "MUSIC_U=")
}

// PostWeapi signs body with the legacy web scheme and POSTs it to path on
// the main host (or the interface host when useInterface is set).
func (t *Transport) PostWeapi(ctx context.Context, path string, body any, useInterface bool) Outcome {
	form, err := crypto.WeapiEncrypt(body)
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Detail: err.Error()}
	}
	base := t.baseURL
	if useInterface {
		base = t.interfaceURL
	}
	return t.post(ctx, base+path, form, nil)
}

// PostEapi signs body with the mobile-app scheme. apiPath is the /api/...
// form; the request goes to the rewritten /eapi/... path on the interface
// host with the synthetic device cookies attached.
func (t *Transport) PostEapi(ctx context.Context, apiPath string, body any) Outcome {
	form, err := crypto.EapiEncrypt(apiPath, body)
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Detail: err.Error()}
	}
	return t.post(ctx, t.interfaceURL+crypto.EapiPath(apiPath), form, crypto.EapiCookies())
}

func (t *Transport) post(ctx context.Context, dest string, form url.Values, cookies []*http.Cookie) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest, strings.NewReader(form.Encode()))
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Detail: err.Error()}
	}
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}
	if t.cookie != "" && cookies == nil {
		req.Header.Set("Cookie", t.cookie)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return Outcome{Kind: OutcomeTimeout, Detail: err.Error()}
		}
		return Outcome{Kind: OutcomeTransportError, Detail: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Detail: err.Error()}
	}

	t.logger.Debug("upstream request",
		zap.String("url", dest),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Outcome{Kind: OutcomeTransportError, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	if !gjson.ValidBytes(data) {
		return Outcome{Kind: OutcomeDecodeError, Detail: "invalid JSON response"}
	}
	return Outcome{Kind: OutcomeSuccess, Body: gjson.ParseBytes(data)}
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
