package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/ppiankov/continuum/internal/model"
	"github.com/ppiankov/continuum/internal/util"
	"github.com/ppiankov/continuum/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a narrative
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Fetcher retrieves remote narratives politely: robots.txt is honoured,
// requests are rate-limited per host and transient failures are retried.
type Fetcher struct {
	httpClient *http.Client
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	userAgent  string
	maxBytes   int64
	retry      retryPolicy
	logger     *zap.Logger
}

// FetchResult contains the fetched body and metadata
type FetchResult struct {
	Body        string
	ContentType string
	StatusCode  int
	FinalURL    string
}

// NewFetcher creates a Fetcher from the HTTP and retry configuration
func NewFetcher(cfg model.HTTPConfig, retry model.RetryConfig, logger *zap.Logger) *Fetcher {
	client := util.NewHTTPClient(0, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	client.Timeout = cfg.Timeout
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 20_000_000
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		httpClient: client,
		robots:     util.NewRobotsChecker(cfg.UserAgent, client),
		limiter:    worker.NewLimiter(1, 1),
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		retry:      newRetryPolicy(retry, isRetryableFetchError),
		logger:     logger,
	}
}

// httpStatusError is a non-2xx fetch response
type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.code, http.StatusText(e.code))
}

// FetchWithRetry checks robots.txt, then fetches rawURL with retries
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
	}

	host, err := worker.HostKey(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	var result *FetchResult
	err = callWithRetry(ctx, f.retry, f.logger, "fetch", func(ctx context.Context) error {
		if err := f.limiter.WaitWithDelay(ctx, host, delay); err != nil {
			return err
		}
		r, err := f.fetch(ctx, rawURL)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// isRetryableFetchError treats 429, 5xx and network timeouts as transient
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.code == http.StatusTooManyRequests || statusErr.code >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
