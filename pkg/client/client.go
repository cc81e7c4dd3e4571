// Package client is a Go client for the signed plugin management API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/platinummonkey/hangar/pkg/control"
	"github.com/platinummonkey/hangar/pkg/httputil"
	"github.com/platinummonkey/hangar/pkg/signing"
)

// DefaultTimeout is used when no HTTP client is supplied
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response. Message is the server's error field verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Client signs and sends plugin management requests. Requests are not retried.
type Client struct {
	BaseURL string
	Signer  *signing.Signer
	HTTP    *http.Client
}

// New creates a client for baseURL signing with secret
func New(baseURL string, secret []byte) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	signer, err := signing.NewSigner(secret)
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Signer:  signer,
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// List returns every plugin known to the server
func (c *Client) List(ctx context.Context) ([]control.PluginSummary, error) {
	var list control.PluginList
	if err := c.do(ctx, http.MethodGet, "/_plugins", nil, &list); err != nil {
		return nil, err
	}
	return list.Plugins, nil
}

// Get returns the detail of one plugin
func (c *Client) Get(ctx context.Context, name string) (*control.PluginDetail, error) {
	var detail control.PluginDetail
	if err := c.do(ctx, http.MethodGet, pluginPath(name, ""), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SaveConfig replaces a plugin's saved config
func (c *Client) SaveConfig(ctx context.Context, name string, config map[string]any) (string, error) {
	return c.mutate(ctx, http.MethodPut, pluginPath(name, "config"), config)
}

// Enable enables a plugin
func (c *Client) Enable(ctx context.Context, name string) (string, error) {
	return c.mutate(ctx, http.MethodPost, pluginPath(name, "enable"), nil)
}

// Disable disables a plugin
func (c *Client) Disable(ctx context.Context, name string) (string, error) {
	return c.mutate(ctx, http.MethodPost, pluginPath(name, "disable"), nil)
}

// Install installs a plugin; source may be empty
func (c *Client) Install(ctx context.Context, name, source string) (string, error) {
	var body any
	if source != "" {
		body = control.InstallRequest{Source: source}
	}
	return c.mutate(ctx, http.MethodPost, pluginPath(name, "install"), body)
}

// Uninstall uninstalls a plugin
func (c *Client) Uninstall(ctx context.Context, name string) (string, error) {
	return c.mutate(ctx, http.MethodPost, pluginPath(name, "uninstall"), nil)
}

func pluginPath(name, action string) string {
	p := "/_plugins/" + url.PathEscape(name)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) mutate(ctx context.Context, method, path string, body any) (string, error) {
	var msg httputil.MessageResponse
	if err := c.do(ctx, method, path, body, &msg); err != nil {
		return "", err
	}
	return msg.Message, nil
}

// do signs the exact bytes it sends, so body is marshaled once
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Signer.SignRequest(req, payload)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp httputil.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
