package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/pkg/metrics"
)

const (
	// RotationHeader carries a replacement access token on any backend response.
	RotationHeader = "X-Cart-Token"

	cartIDHeader       = "X-Cart-Id"
	refreshTokenHeader = "X-Cart-Refresh-Token"
)

type upstreamClient struct {
	baseURL    string
	httpClient *http.Client
}

func newUpstreamClient(baseURL string, timeout time.Duration) *upstreamClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &upstreamClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type upstreamResponse struct {
	Status   int
	Body     []byte
	Rotation string
}

type header struct {
	key   string
	value string
}

// do sends one request and returns the raw body. Non-2xx responses come back
// as *GatewayError with the rotation header preserved.
func (c *upstreamClient) do(ctx context.Context, method, path string, session *models.CartSession, body interface{}, extra ...header) (*upstreamResponse, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != nil {
		req.Header.Set(cartIDHeader, session.CartID)
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)
		req.Header.Set(refreshTokenHeader, session.RefreshToken)
	}
	for _, h := range extra {
		req.Header.Set(h.key, h.value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamLatency.WithLabelValues(method, "error").Observe(time.Since(start).Seconds())
		return nil, upstreamError(http.StatusBadGateway, fmt.Sprintf("failed to reach backend: %v", err))
	}
	defer resp.Body.Close()
	metrics.UpstreamLatency.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstreamError(http.StatusBadGateway, fmt.Sprintf("failed to read response body: %v", err))
	}

	out := &upstreamResponse{
		Status:   resp.StatusCode,
		Body:     respBody,
		Rotation: strings.TrimSpace(resp.Header.Get(RotationHeader)),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gwErr := upstreamError(resp.StatusCode, extractUpstreamMessage(respBody, resp.StatusCode))
		gwErr.RotatedToken = out.Rotation
		return out, gwErr
	}

	return out, nil
}

func (c *upstreamClient) decode(resp *upstreamResponse, dest interface{}) error {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return upstreamError(http.StatusBadGateway, fmt.Sprintf("failed to unmarshal backend response: %v", err))
	}
	return nil
}

// messagePaths lists where the various backend envelopes put their message.
var messagePaths = [][]string{
	{"error", "message"},
	{"response", "data", "error", "message"},
	{"data", "error", "message"},
	{"errors", "0", "message"},
	{"message"},
	{"error"},
}

// extractUpstreamMessage probes the known error envelopes. This is the only
// place that knows their shapes.
func extractUpstreamMessage(body []byte, status int) string {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err == nil {
		for _, path := range messagePaths {
			if msg, ok := lookupString(doc, path); ok && msg != "" {
				return msg
			}
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "upstream error"
}

func lookupString(doc interface{}, path []string) (string, bool) {
	cur := doc
	for _, key := range path {
		switch node := cur.(type) {
		case map[string]interface{}:
			cur = node[key]
		case []interface{}:
			if key != "0" || len(node) == 0 {
				return "", false
			}
			cur = node[0]
		default:
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}
