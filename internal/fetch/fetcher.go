package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/common/urlutil"
)

// Mode is the CORS mode of a request, named after the crossorigin attribute.
type Mode string

const (
	ModeAnonymous      Mode = "anonymous"
	ModeUseCredentials Mode = "use-credentials"
	// ModeNone is a no-cors load: cross-origin bodies are opaque.
	ModeNone Mode = ""
)

// Request describes one subresource load made on behalf of a page.
type Request struct {
	URL     string
	PageURL string
	Mode    Mode
	Accept  string

	// NoReferrer omits the Referer header (referrerpolicy="no-referrer").
	NoReferrer bool
}

// Response is a completed load. Readable reports whether the page would be
// allowed to read Body under CORS rules.
type Response struct {
	URL         string `json:"url"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	AllowOrigin string `json:"allow_origin,omitempty"`
	AllowCreds  bool   `json:"allow_credentials,omitempty"`
	Body        []byte `json:"body"`
	Readable    bool   `json:"-"`
	FromCache   bool   `json:"-"`
}

// Cache stores raw response bytes by request key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
}

type Config struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

func DefaultConfig() Config {
	return Config{
		Timeout:   15 * time.Second,
		MaxBytes:  20 << 20,
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) pagesaver/1.0",
	}
}

// Fetcher loads subresources the way a page would, including a cookie jar
// for credentialed requests.
type Fetcher struct {
	client *http.Client
	config Config
	cache  Cache
	logger *zap.Logger
}

// New builds a Fetcher. cache may be nil.
func New(config Config, cache Cache, logger *zap.Logger) *Fetcher {
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultConfig().MaxBytes
	}
	jar, _ := cookiejar.New(nil)
	return &Fetcher{
		client: &http.Client{
			Timeout: config.Timeout,
			Jar:     jar,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		config: config,
		cache:  cache,
		logger: logger,
	}
}

// Get loads req.URL. Transport failures, non-2xx statuses and empty bodies
// return ErrResourceFetch. A CORS-forbidden response is returned without
// error with Readable=false; callers decide whether that matters.
func (f *Fetcher) Get(ctx context.Context, req Request) (*Response, error) {
	sameOrigin := req.PageURL == "" || urlutil.IsSameOrigin(req.PageURL, req.URL)
	key := cacheKey(req, sameOrigin)

	if resp, ok := f.fromCache(ctx, key); ok {
		resp.Readable = readable(resp, req, sameOrigin)
		return resp, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResourceFetch, err)
	}
	if req.Accept != "" {
		httpReq.Header.Set("Accept", req.Accept)
	}
	if f.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", f.config.UserAgent)
	}
	if req.PageURL != "" {
		if !req.NoReferrer {
			httpReq.Header.Set("Referer", req.PageURL)
		}
		if !sameOrigin && req.Mode != ModeNone {
			httpReq.Header.Set("Origin", urlutil.Origin(req.PageURL))
		}
	}

	client := f.client
	if !sameOrigin && req.Mode != ModeUseCredentials {
		// credentials are omitted for anonymous and no-cors cross-origin loads
		c := *f.client
		c.Jar = nil
		client = &c
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResourceFetch, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d for %s", ErrResourceFetch, httpResp.StatusCode, req.URL)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, f.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrResourceFetch, err)
	}
	if int64(len(body)) > f.config.MaxBytes {
		return nil, fmt.Errorf("%w: %s larger than %d bytes", ErrTooLarge, req.URL, f.config.MaxBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body for %s", ErrResourceFetch, req.URL)
	}

	resp := &Response{
		URL:         req.URL,
		Status:      httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		AllowOrigin: httpResp.Header.Get("Access-Control-Allow-Origin"),
		AllowCreds:  strings.EqualFold(httpResp.Header.Get("Access-Control-Allow-Credentials"), "true"),
		Body:        body,
	}
	resp.Readable = readable(resp, req, sameOrigin)
	f.toCache(ctx, key, resp)

	f.logger.Debug("Resource fetched",
		zap.String("url", req.URL),
		zap.String("mode", string(req.Mode)),
		zap.Int("bytes", len(body)),
		zap.Bool("readable", resp.Readable))
	return resp, nil
}

// GetReadable is Get that also fails with ErrCrossOriginDenied when the body
// may not be read.
func (f *Fetcher) GetReadable(ctx context.Context, req Request) (*Response, error) {
	resp, err := f.Get(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.Readable {
		return nil, fmt.Errorf("%w: %s", ErrCrossOriginDenied, req.URL)
	}
	return resp, nil
}

func readable(resp *Response, req Request, sameOrigin bool) bool {
	if sameOrigin {
		return true
	}
	origin := urlutil.Origin(req.PageURL)
	switch req.Mode {
	case ModeAnonymous:
		return resp.AllowOrigin == "*" || resp.AllowOrigin == origin
	case ModeUseCredentials:
		return resp.AllowOrigin == origin && resp.AllowCreds
	default:
		return false
	}
}

// cacheKey separates responses that a server may answer differently: the
// CORS mode decides credentials and the Origin header, and the referrer
// policy decides the Referer header.
func cacheKey(req Request, sameOrigin bool) string {
	mode := string(req.Mode)
	if req.Mode == ModeNone {
		mode = "no-cors"
	}
	var b strings.Builder
	b.WriteString(req.URL)
	b.WriteString("|mode=")
	b.WriteString(mode)
	if !sameOrigin {
		b.WriteString("|origin=")
		b.WriteString(urlutil.Origin(req.PageURL))
	}
	if req.NoReferrer {
		b.WriteString("|no-referrer")
	}
	return b.String()
}

func (f *Fetcher) fromCache(ctx context.Context, key string) (*Response, bool) {
	if f.cache == nil {
		return nil, false
	}
	data, ok := f.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		f.logger.Debug("Discarding unreadable cache entry", zap.String("url", key), zap.Error(err))
		return nil, false
	}
	resp.FromCache = true
	return &resp, true
}

func (f *Fetcher) toCache(ctx context.Context, key string, resp *Response) {
	if f.cache == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	f.cache.Set(ctx, key, data)
}
