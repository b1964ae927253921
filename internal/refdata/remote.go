package refdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"dlscan/internal/config"
)

const maxAttempts = 5

var contentTypeExt = map[string]string{
	"text/csv":                 ".csv",
	"application/csv":          ".csv",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
}

// RemoteClient downloads the reference table from REFERENCE_URL.
type RemoteClient struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

func NewRemoteClient(cfg config.Config) *RemoteClient {
	return &RemoteClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.ReferenceTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.ReferenceRateLimitRPS),
	}
}

func (c *RemoteClient) Fetch(ctx context.Context) (*Dataset, error) {
	rawURL := strings.TrimSpace(c.cfg.ReferenceURL)
	if rawURL == "" {
		return nil, errors.New("missing REFERENCE_URL")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	body, contentType, err := c.download(ctx, u.String())
	if err != nil {
		return nil, err
	}

	ds, err := Parse(datasetName(u, contentType), body, c.cfg.ReferenceIDColumn, c.cfg.ReferenceSheet)
	if err != nil {
		return nil, err
	}
	ds.Source = u.Redacted()
	return ds, nil
}

func (c *RemoteClient) download(ctx context.Context, target string) ([]byte, string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, "", err
		}
		if token := strings.TrimSpace(c.cfg.ReferenceAPIToken); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				if err := sleepCtx(ctx, backoff); err != nil {
					return nil, "", err
				}
				lastErr = fmt.Errorf("reference host status %d", resp.StatusCode)
				continue
			}
			return nil, "", fmt.Errorf("reference download failed: status=%d body=%s", resp.StatusCode, truncate(string(body), 200))
		}

		return body, resp.Header.Get("Content-Type"), nil
	}

	if lastErr == nil {
		lastErr = errors.New("reference download failed")
	}
	return nil, "", lastErr
}

// datasetName picks a file name whose extension tells Parse the format: the
// URL path when it has a known extension, otherwise the response content type.
func datasetName(u *url.URL, contentType string) string {
	base := path.Base(u.Path)
	switch strings.ToLower(path.Ext(base)) {
	case ".csv", ".xlsx", ".xlsm":
		return base
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := contentTypeExt[mediaType]; ok {
			return "reference" + ext
		}
	}
	return base
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
