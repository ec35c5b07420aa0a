package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cpp4you/snippetexec/sandbox"
)

// maxResponseBytes bounds how much of a response body is decoded.
const maxResponseBytes = 8 << 20

// HTTPClientConfig configures an HTTPClient.
type HTTPClientConfig struct {
	// Endpoint is the URL requests are POSTed to. Required.
	Endpoint string

	// Token is sent as a bearer token when set.
	Token string

	// HTTPClient performs requests. Default: http.DefaultClient.
	HTTPClient *http.Client
}

// HTTPClient is a RemoteClient posting JSON requests to a sandbox service.
type HTTPClient struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPClient creates an HTTPClient.
func NewHTTPClient(cfg HTTPClientConfig) (*HTTPClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: missing remote endpoint", sandbox.ErrConfiguration)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{endpoint: cfg.Endpoint, token: cfg.Token, client: client}, nil
}

// Endpoint returns the configured endpoint.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// Execute posts req and decodes the response.
//
// Transport failures and non-2xx statuses without a decodable error body
// wrap sandbox.ErrBackendUnavailable.
func (c *HTTPClient) Execute(ctx context.Context, req RemoteRequest) (RemoteResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return RemoteResponse{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return RemoteResponse{}, fmt.Errorf("%w: %v", sandbox.ErrConfiguration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return RemoteResponse{}, fmt.Errorf("%w: %v", sandbox.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	var out RemoteResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && out.Error != nil {
			return out, nil
		}
		return RemoteResponse{}, fmt.Errorf("%w: status %d", sandbox.ErrBackendUnavailable, resp.StatusCode)
	}
	if decodeErr != nil {
		return RemoteResponse{}, fmt.Errorf("%w: decode response: %v", ErrRemoteExecutionFailed, decodeErr)
	}
	return out, nil
}

var (
	_ RemoteClient     = (*HTTPClient)(nil)
	_ EndpointProvider = (*HTTPClient)(nil)
)
