package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/imroc/req/v3"

	"github.com/yourusername/ncm-fetch-go/internal/domain"
)

// AudioStreamer streams resolved audio from the CDN. CDN hosts reject
// naked clients, so requests carry the same browser headers as the API
// surface.
//
// The timeout bounds time-to-first-byte and the gap between reads, not
// the whole transfer: a large lossless file may take as long as it keeps
// delivering bytes, while a stalled connection is cut off.
type AudioStreamer struct {
	client *req.Client
	idle   time.Duration
}

func NewAudioStreamer(timeout time.Duration) *AudioStreamer {
	client := req.C().
		SetCommonHeader("User-Agent", defaultHeaders["User-Agent"]).
		SetCommonHeader("Referer", defaultHeaders["Referer"]).
		SetCommonHeader("Accept", "*/*")
	client.GetTransport().SetResponseHeaderTimeout(timeout)
	return &AudioStreamer{client: client, idle: timeout}
}

// Open starts streaming the audio at url. The caller owns the returned
// reader and must close it. The second value is the declared content
// length, or -1 when the CDN does not report one.
func (s *AudioStreamer) Open(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		DisableAutoReadResponse().
		Get(url)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: stream %s: %v", domain.ErrTransient, url, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
			return nil, 0, fmt.Errorf("%w: cdn returned %d for %s", domain.ErrAccessDenied, resp.StatusCode, url)
		}
		return nil, 0, fmt.Errorf("%w: cdn returned %d for %s", domain.ErrTransient, resp.StatusCode, url)
	}
	return newIdleTimeoutBody(resp.Body, s.idle), resp.ContentLength, nil
}

// idleTimeoutBody closes the underlying body when no Read completes
// within the idle window, so a stalled CDN connection surfaces as a read
// error instead of hanging the worker. Response bodies document Close as
// safe to call concurrently with Read.
type idleTimeoutBody struct {
	rc    io.ReadCloser
	timer *time.Timer
	idle  time.Duration
}

func newIdleTimeoutBody(rc io.ReadCloser, idle time.Duration) io.ReadCloser {
	if idle <= 0 {
		return rc
	}
	b := &idleTimeoutBody{rc: rc, idle: idle}
	b.timer = time.AfterFunc(idle, func() { rc.Close() })
	return b
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if err == nil {
		b.timer.Reset(b.idle)
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.timer.Stop()
	return b.rc.Close()
}
