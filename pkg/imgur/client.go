package imgur

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"imgurstats/pkg/config"
	errs "imgurstats/pkg/errors"
	"imgurstats/pkg/logger"
	"imgurstats/pkg/metrics"
	"imgurstats/pkg/ratelimit"
	"imgurstats/pkg/retry"
)

// Client talks to the imgur API and the account subdomain endpoints
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	endpoints  Endpoints
	limiter    ratelimit.Limiter
	retry      config.RetryConfig
	sleep      retry.SleepFunc
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLimiter paces requests through l.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithMetrics records request counts and durations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRetry sets the retry policy of single lookups such as Me.
func WithRetry(rc config.RetryConfig) Option {
	return func(c *Client) { c.retry = rc }
}

// WithSleep replaces the sleep used between retries.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the configured imgur endpoints
func NewClient(cfg config.ImgurConfig, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		headers: map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept":          "application/json, text/javascript, */*; q=0.01",
			"Accept-Language": "en-US,en;q=0.9",
			"Connection":      "keep-alive",
		},
		endpoints: Endpoints{
			APIBaseURL:      cfg.APIBaseURL,
			WebBaseURL:      cfg.WebBaseURL,
			SiteURLTemplate: cfg.SiteURLTemplate,
			ClientID:        cfg.ClientID,
		},
		limiter: ratelimit.Unlimited{},
		retry:   config.DefaultConfig().Retry,
		logger:  log.WithField("component", "imgur"),
	}
	if cfg.Cookie != "" {
		c.headers["Cookie"] = cfg.Cookie
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoints returns the URL builder the client uses.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetCookie sets the session cookie sent with every request
func (c *Client) SetCookie(cookie string) {
	if cookie == "" {
		delete(c.headers, "Cookie")
		return
	}
	c.headers["Cookie"] = cookie
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(ctx context.Context, endpoint, rawURL, referer string) (*http.Response, []byte, error) {
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	if waited := time.Since(start); waited > time.Millisecond {
		logger.LogRateLimit(c.logger, endpoint, waited.Milliseconds())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	sent := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(sent)

	if err != nil {
		c.metrics.ObserveRequest(endpoint, 0, duration)
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      rawURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, nil, errs.New(errs.ErrorTypeTransport, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	c.metrics.ObserveRequest(endpoint, resp.StatusCode, duration)
	logger.LogRequest(c.logger, req.Method, rawURL, resp.StatusCode, float64(duration.Microseconds())/1000)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, errs.New(errs.ErrorTypeTransport, resp.StatusCode, "failed to read response body: %v", err)
	}
	return resp, body, nil
}

// checkResponseStatus turns a non-2xx status into a typed error
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	errorType := errs.FromStatusCode(resp.StatusCode)
	return errs.New(errorType, resp.StatusCode, "%s", http.StatusText(resp.StatusCode))
}

// parseEnvelope decodes body, falling back to an unsuccessful empty envelope
// when the body is not JSON.
func (c *Client) parseEnvelope(rawURL string, body []byte) Envelope {
	env := defaultEnvelope()
	if err := json.Unmarshal(body, &env); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.WarnWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return defaultEnvelope()
	}
	if len(env.Data) == 0 {
		env.Data = json.RawMessage(`{}`)
	}
	return env
}

// getJSON fetches rawURL and decodes the data member of the envelope into target
func (c *Client) getJSON(ctx context.Context, endpoint, rawURL, referer string, target interface{}) error {
	resp, body, err := c.doRequest(ctx, endpoint, rawURL, referer)
	if err != nil {
		return err
	}
	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	env := c.parseEnvelope(rawURL, body)
	if !env.Success {
		c.logger.WarnWithFields("imgur reported failure", map[string]interface{}{
			"url":    rawURL,
			"status": env.Status,
		})
		return errs.New(errs.ErrorTypeUpstream, env.Status, "imgur reported failure for %s", endpoint)
	}

	if err := json.Unmarshal(env.Data, target); err != nil {
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse %s data: %v", endpoint, err)
	}
	return nil
}

// Submissions fetches one page of user's posts. An empty slice means there
// are no more pages.
func (c *Client) Submissions(ctx context.Context, user string, page int) ([]Submission, error) {
	var posts []Submission
	err := c.getJSON(ctx, "submissions", c.endpoints.SubmissionsURL(user, page), c.endpoints.PostsReferer(user), &posts)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ImagesPage fetches one page of user's image listing.
func (c *Client) ImagesPage(ctx context.Context, user string, page, perPage int) (*ImagesPage, error) {
	var listing ImagesPage
	err := c.getJSON(ctx, "images", c.endpoints.ImagesURL(user, page, perPage), c.endpoints.PostsReferer(user), &listing)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// Views fetches view counts for up to MaxViewsBatch hashes.
func (c *Client) Views(ctx context.Context, user string, hashes []string) (Views, error) {
	if len(hashes) > MaxViewsBatch {
		hashes = hashes[:MaxViewsBatch]
	}
	var views Views
	err := c.getJSON(ctx, "views", c.endpoints.ViewsURL(user, hashes), c.endpoints.PostsReferer(user), &views)
	if err != nil {
		return nil, err
	}
	return views, nil
}

// Me resolves the signed-in account, retrying transient failures. It returns
// errs.ErrNotSignedIn when imgur answers without an account name.
func (c *Client) Me(ctx context.Context) (*Account, error) {
	rc := retry.FromConfig(ctx, c.retry, c.logger)
	rc.Sleep = c.sleep

	account, err := retry.DoWithResult(func() (*Account, error) {
		var acct Account
		if err := c.getJSON(ctx, "account", c.endpoints.AccountURL(), c.endpoints.UploadReferer(), &acct); err != nil {
			return nil, err
		}
		return &acct, nil
	}, rc)
	if err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeAuth {
			return nil, errors.Join(errs.ErrNotSignedIn, err)
		}
		return nil, err
	}
	if account.URL == "" {
		return nil, errs.ErrNotSignedIn
	}

	c.logger.DebugWithFields("resolved account", map[string]interface{}{
		"username":   account.URL,
		"subscribed": bool(account.IsSubscribed),
	})
	return account, nil
}
