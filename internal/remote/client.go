package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/oukeidos/lapsectl/internal/apperrors"
	"github.com/oukeidos/lapsectl/internal/httpclient"
	"github.com/oukeidos/lapsectl/internal/logger"
	"github.com/oukeidos/lapsectl/internal/settings"
)

const DefaultBaseURL = "http://localhost:8000"

// Client talks to the timelapse service. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	baseURL  string
	http     httpclient.Doer
	download httpclient.Doer
}

type ClientOption func(*Client)

// WithHTTPClient replaces the transport used for JSON calls.
func WithHTTPClient(d httpclient.Doer) ClientOption {
	return func(c *Client) { c.http = d }
}

// WithDownloadClient replaces the transport used for streamed downloads.
func WithDownloadClient(d httpclient.Doer) ClientOption {
	return func(c *Client) { c.download = d }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.ForCalls(httpclient.DefaultTimeout)
	}
	if c.download == nil {
		c.download = httpclient.ForDownloads()
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.call(ctx, http.MethodGet, "/timelapse/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Start(ctx context.Context, req settings.StartRequest) error {
	return c.call(ctx, http.MethodPost, "/timelapse/start", req, nil)
}

func (c *Client) Stop(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/timelapse/stop", struct{}{}, nil)
}

func (c *Client) FrameInfo(ctx context.Context) (*FrameInfo, error) {
	var out FrameInfo
	if err := c.call(ctx, http.MethodGet, "/timelapse/frame-info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Timelapses(ctx context.Context) ([]Timelapse, error) {
	var out timelapseList
	if err := c.call(ctx, http.MethodGet, "/timelapses", nil, &out); err != nil {
		return nil, err
	}
	if out.Timelapses == nil {
		return []Timelapse{}, nil
	}
	return out.Timelapses, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/timelapse/"+url.PathEscape(id), nil, nil)
}

// Download streams the rendered video for id into w and returns the number
// of bytes written.
func (c *Client) Download(ctx context.Context, id string, w io.Writer) (int64, error) {
	path := "/timelapse/" + url.PathEscape(id) + "/download"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.download.Do(req)
	if err != nil {
		return 0, apperrors.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, classifyStatus(req.Method, path, resp.StatusCode, httpclient.ErrorBody(resp))
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, apperrors.Transport(fmt.Errorf("download interrupted after %d bytes: %w", n, err))
	}
	logger.Debug("Download finished", "id", id, "bytes", n)
	return n, nil
}

// LatestFrameURL returns the latest-frame image URL with a cache-busting
// query parameter. marker is Unix seconds.
func (c *Client) LatestFrameURL(marker int64) string {
	return c.baseURL + "/timelapse/latest-frame?t=" + strconv.FormatInt(marker, 10)
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	status, respBody, err := httpclient.Exchange(c.http, req)
	if err != nil {
		if status == 0 {
			logger.Debug("Request failed", "method", method, "path", path, "error", err)
			return apperrors.Transport(err)
		}
		return apperrors.HTTPFailure(status, err.Error(), err)
	}
	logger.Debug("Timelapse service response", "method", method, "path", path, "status", status)

	if status < 200 || status > 299 {
		return classifyStatus(method, path, status, respBody)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.Decode(fmt.Errorf("failed to decode %s %s response: %w", method, path, err))
	}
	return nil
}

func classifyStatus(method, path string, status int, body []byte) error {
	statusText := fmt.Sprintf("%d %s", status, http.StatusText(status))
	detail := parseDetail(body)
	cause := fmt.Errorf("%s %s: status=%s", method, path, statusText)
	if status == http.StatusNotFound {
		return apperrors.NotFound(detail, cause)
	}
	if detail == "" {
		return apperrors.HTTPFailure(status,
			fmt.Sprintf("Http failure response for %s: %s", path, statusText), cause)
	}
	return apperrors.Rejection(status, detail, cause)
}
