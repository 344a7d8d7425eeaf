package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/oukeidos/lapsectl/internal/version"
)

const (
	// DefaultTimeout bounds a single JSON call to the timelapse service.
	DefaultTimeout = 30 * time.Second
	// MaxJSONBytes caps JSON response bodies.
	MaxJSONBytes = 8 * 1024 * 1024
	// MaxErrorBodyBytes caps the body read from a failed download, which
	// only ever carries a short detail message.
	MaxErrorBodyBytes = 64 * 1024
	// MaxRedirects is generous for a reverse proxy in front of the camera.
	MaxRedirects = 5
)

// ErrBodyTooLarge is returned when a JSON answer exceeds MaxJSONBytes.
var ErrBodyTooLarge = errors.New("response body too large")

// Doer issues one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ForCalls returns the client for status and control calls. timeout bounds
// each exchange end to end.
func ForCalls(timeout time.Duration) *http.Client {
	return newClient(timeout)
}

// ForDownloads returns the client for video downloads. The service renders
// the video before sending the first byte, so there is no total deadline
// and the caller's context decides when to give up.
func ForDownloads() *http.Client {
	return newClient(0)
}

func newClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          8,
		MaxIdleConnsPerHost:   4, // one service host
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:       timeout,
		Transport:     &agentTransport{base: transport, agent: UserAgent()},
		CheckRedirect: sameHostOnly,
	}
}

func UserAgent() string {
	return "lapsectl/" + version.Version
}

// agentTransport stamps requests that do not name a User-Agent.
type agentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *agentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.base.RoundTrip(req)
}

// sameHostOnly refuses redirects that leave the service host. Credentials
// in the base URL must not follow a redirect somewhere else.
func sameHostOnly(req *http.Request, via []*http.Request) error {
	if len(via) >= MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", len(via))
	}
	if from := via[0].URL.Host; req.URL.Host != from {
		return fmt.Errorf("refusing redirect from %s to %s", from, req.URL.Host)
	}
	return nil
}

// Exchange sends req and reads the JSON answer, capped at MaxJSONBytes.
// status is 0 when no response arrived. The body is always closed.
func Exchange(client Doer, req *http.Request) (status int, body []byte, err error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > MaxJSONBytes {
		return resp.StatusCode, nil, fmt.Errorf("%w: %d bytes announced (limit %d)", ErrBodyTooLarge, resp.ContentLength, MaxJSONBytes)
	}
	body, err = io.ReadAll(io.LimitReader(resp.Body, MaxJSONBytes+1))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxJSONBytes {
		return resp.StatusCode, nil, fmt.Errorf("%w (limit %d bytes)", ErrBodyTooLarge, MaxJSONBytes)
	}
	return resp.StatusCode, body, nil
}

// ErrorBody reads what a failed download sent back, up to MaxErrorBodyBytes.
// The caller still closes resp.Body.
func ErrorBody(resp *http.Response) []byte {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodyBytes))
	return body
}
