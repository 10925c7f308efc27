// Package gemini implements a cookie-authenticated client for the Gemini web
// frontend. It speaks the frontend's private batchexecute protocol: one
// generate call per conversation turn, authenticated by the __Secure-1PSID /
// __Secure-1PSIDTS cookie pair rather than an API key.
package gemini

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
)

const (
	endpointInit     = "https://gemini.google.com/app"
	endpointGenerate = "https://gemini.google.com/_/BardChatUi/data/assistant.lamda.BardFrontendService/StreamGenerate"

	// fallbackBuildLabel is used when the init page stops exposing "bl".
	fallbackBuildLabel = "boq_assistant-bard-web-server_20240319.09_p0"

	defaultTimeoutSeconds = 300
)

// CookiePSID and CookiePSIDTS are the two session secrets the client needs.
const (
	CookiePSID   = "__Secure-1PSID"
	CookiePSIDTS = "__Secure-1PSIDTS"
)

var (
	reSNlM0e     = regexp.MustCompile(`"SNlM0e":"(.*?)"`)
	reBuildLabel = regexp.MustCompile(`"bl":"(.*?)"`)
	reBuildAttr  = regexp.MustCompile(`data-bl="(.*?)"`)
	reFSID       = regexp.MustCompile(`"f.sid":"(.*?)"`)
)

// Client is a session against the Gemini web frontend. It is safe to share
// across concurrent requests after Init succeeds: the scraped tokens are
// read-only from then on and the request counter is atomic.
type Client struct {
	httpClient tls_client.HttpClient
	userAgent  string
	logger     *slog.Logger

	snlm0e     string
	buildLabel string
	fsid       string
	reqID      atomic.Int64
}

// Option is a functional option for configuring a Client.
type Option func(*clientConfig)

type clientConfig struct {
	timeoutSeconds int
	logger         *slog.Logger
}

// WithTimeout sets the session-wide HTTP timeout in seconds. This is the
// startup-configured timeout; no per-call timeout exists beyond it.
func WithTimeout(seconds int) Option {
	return func(c *clientConfig) {
		if seconds > 0 {
			c.timeoutSeconds = seconds
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// New creates a Client authenticated by the two session cookies. The session
// is not usable until Init succeeds.
func New(psid, psidts string, opts ...Option) (*Client, error) {
	cfg := clientConfig{
		timeoutSeconds: defaultTimeoutSeconds,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	profile, userAgent := pickProfile()
	httpClient, err := tls_client.NewHttpClient(
		tls_client.NewNoopLogger(),
		clientOptions(profile, cfg.timeoutSeconds)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to construct http client: %w", err)
	}

	u, err := url.Parse("https://gemini.google.com")
	if err != nil {
		return nil, err
	}
	cookies := []*http.Cookie{
		{Name: CookiePSID, Value: psid, Domain: ".google.com", Path: "/"},
	}
	if psidts != "" {
		cookies = append(cookies, &http.Cookie{Name: CookiePSIDTS, Value: psidts, Domain: ".google.com", Path: "/"})
	}
	httpClient.SetCookies(u, cookies)

	c := &Client{
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     cfg.logger,
	}
	c.reqID.Store(int64(newReqID()))
	return c, nil
}

// nextReqID advances the per-session request counter. The session is shared
// across concurrent requests, so the increment must be atomic.
func (c *Client) nextReqID() int64 {
	return c.reqID.Add(1)
}

// Init loads the frontend page and scrapes the tokens every generate call
// needs: the SNlM0e anti-CSRF token, the "bl" build label and the f.sid
// session id. It must succeed exactly once, before the session is used.
func (c *Client) Init(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointInit, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to load init page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("init page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read init page: %w", err)
	}
	page := string(body)

	match := reSNlM0e.FindStringSubmatch(page)
	if len(match) < 2 {
		return fmt.Errorf("SNlM0e token not found; the session cookies are likely expired")
	}
	c.snlm0e = match[1]

	if m := reBuildLabel.FindStringSubmatch(page); len(m) >= 2 {
		c.buildLabel = m[1]
	} else if m := reBuildAttr.FindStringSubmatch(page); len(m) >= 2 {
		c.buildLabel = m[1]
	}
	if c.buildLabel == "" {
		c.logger.Warn("could not extract build label, using fallback")
		c.buildLabel = fallbackBuildLabel
	}

	if m := reFSID.FindStringSubmatch(page); len(m) >= 2 {
		c.fsid = m[1]
	}

	c.logger.Info("gemini session initialized",
		slog.String("build_label", c.buildLabel),
	)
	return nil
}

// Send performs one complete conversation turn: it uploads each attachment
// path, issues a generate call for the prompt, and parses the final snapshot
// into a Reply. Failures are surfaced uninterpreted.
func (c *Client) Send(ctx context.Context, prompt string, attachmentPaths []string, model string) (Reply, error) {
	files := make([]FileData, 0, len(attachmentPaths))
	for _, path := range attachmentPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return Reply{}, fmt.Errorf("failed to read attachment %s: %w", path, err)
		}
		name := filepath.Base(path)
		fileID, err := c.uploadFile(ctx, data, name)
		if err != nil {
			return Reply{}, err
		}
		files = append(files, FileData{URL: fileID, FileName: name})
	}

	body, err := c.streamGenerate(ctx, prompt, model, files)
	if err != nil {
		return Reply{}, err
	}

	return parseReply(body)
}

func (c *Client) streamGenerate(ctx context.Context, prompt, model string, files []FileData) ([]byte, error) {
	form := url.Values{}
	form.Set("f.req", buildGeneratePayload(prompt, files))
	form.Set("at", c.snlm0e)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointGenerate, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	q.Add("bl", c.buildLabel)
	q.Add("_reqid", fmt.Sprintf("%d", c.nextReqID()))
	q.Add("rt", "c")
	if c.fsid != "" {
		q.Add("f.sid", c.fsid)
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Origin", "https://gemini.google.com")
	req.Header.Set("Referer", "https://gemini.google.com/")
	req.Header.Set("X-Same-Domain", "1")
	req.Header.Set("x-goog-ext-525001261-jspb", HeaderFor(model))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generate request failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
