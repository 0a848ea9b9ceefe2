package seek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"golang.org/x/time/rate"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/140.0.0.0 Safari/537.36"

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the transport shared by the session, the uploader and the gateway.
// The cookie jar carries the login flow's state between its steps.
type Client struct {
	httpClient  HTTPClient
	rateLimiter *rate.Limiter
}

func NewClient() (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("error creating cookie jar: %w", err)
	}
	return &Client{httpClient: &http.Client{Jar: jar, Timeout: 2 * time.Minute}}, nil
}

func (c *Client) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

func (c *Client) SetRateLimit(maxRequestsPerSecond float32) {
	c.rateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 1)
}

type request struct {
	method  string
	url     string
	body    io.Reader
	headers map[string]string
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, headers map[string]string) ([]byte, error) {

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding request body: %w", err)
	}

	allHeaders := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		allHeaders[k] = v
	}

	return c.sendRequest(ctx, request{
		method:  http.MethodPost,
		url:     url,
		body:    bytes.NewReader(data),
		headers: allHeaders,
	})
}

func (c *Client) sendRequest(ctx context.Context, r request) ([]byte, error) {

	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return c.handleResponse(r, resp)
}

// finalURL issues a GET and returns the URL the redirect chain ended on.
func (c *Client) finalURL(ctx context.Context, rawURL string, headers map[string]string) (*url.URL, error) {

	r := request{method: http.MethodGet, url: rawURL, headers: headers}
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if location, err := resp.Location(); err == nil {
			return location, nil
		}
	}

	if _, err = c.handleResponse(r, resp); err != nil {
		return nil, err
	}

	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL, nil
	}
	return url.Parse(rawURL)
}

func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, newTransportError(r, 0, "", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.body)
	if err != nil {
		return nil, newTransportError(r, 0, "", fmt.Errorf("error creating request: %w", err))
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newTransportError(r, 0, "", fmt.Errorf("error sending request: %w", err))
	}

	return resp, nil
}

func (c *Client) handleResponse(r request, resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(r, resp.StatusCode, "", fmt.Errorf("error reading response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newTransportError(r, resp.StatusCode, string(body), nil)
	}

	return body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
