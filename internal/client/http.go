package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lebduska/blendmate/internal/assist"
	"github.com/lebduska/blendmate/internal/fileinfo"
)

var errNotConnected = errors.New("client: not connected")

// Status mirrors the daemon's /api/status response.
type Status struct {
	Bridge  string `json:"bridge"`
	Clients int    `json:"clients"`
}

// HTTPClient makes REST calls to the daemon.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	slow    *http.Client // assist calls outlive the normal timeout
}

// NewHTTPClient creates a client targeting the given base URL
// (e.g. "http://127.0.0.1:32124").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		slow:    &http.Client{},
	}
}

// SendText forwards one payload to the addon via POST /api/send.
func (c *HTTPClient) SendText(text string) error {
	return c.post(c.client, "/api/send", map[string]string{"text": text}, nil)
}

// GetStatus fetches /api/status.
func (c *HTTPClient) GetStatus() (*Status, error) {
	var s Status
	if err := c.get("/api/status", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetFileInfo fetches /api/file-info for the given path.
func (c *HTTPClient) GetFileInfo(path string) (*fileinfo.Info, error) {
	var info fileinfo.Info
	if err := c.get("/api/file-info?path="+url.QueryEscape(path), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Assist posts a prompt to /api/assist and waits for the result. The
// daemon enforces the helper timeout, so no client-side deadline here.
func (c *HTTPClient) Assist(prompt string) (*assist.Result, error) {
	var res assist.Result
	if err := c.post(c.slow, "/api/assist", map[string]string{"prompt": prompt}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) get(path string, out any) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, bytes.TrimSpace(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) post(hc *http.Client, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := hc.Post(c.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: %d %s", path, resp.StatusCode, bytes.TrimSpace(respBody))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
