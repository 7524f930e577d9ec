package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/serviceerrs"
	"github.com/bookon-app/bookon/internal/utils/logger"
)

type HTTPClient struct {
	client      http.Client
	gatewayAddr string
}

func NewHTTPClient(gatewayAddr string) *HTTPClient {
	return &HTTPClient{
		client:      http.Client{},
		gatewayAddr: gatewayAddr,
	}
}

// Send posts one event to the gateway. A 429 comes back as a
// TooManyRequestsError carrying the gateway's Retry-After.
func (c *HTTPClient) Send(ctx context.Context, ev Event) error {
	path := url.URL{
		Scheme: "http",
		Host:   c.gatewayAddr,
		Path:   "/api/notifications",
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	tCtx, cancel := context.WithTimeout(ctx, model.DefaultTimeout)
	defer cancel()
	request, err := http.NewRequestWithContext(
		tCtx, http.MethodPost, path.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create the request: %w", err)
	}
	request.Header.Set(model.HeaderContentType, "application/json")

	resp, err := c.client.Do(request)
	if err != nil {
		return fmt.Errorf("failed to send event to gateway: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log := logger.FromContext(ctx)
			log.LogAttrs(ctx,
				slog.LevelError,
				"failed to close the response body",
				slog.Any(model.KeyLoggerError, closeErr),
			)
		}
	}()
	if err != nil {
		return fmt.Errorf("failed to read the body: %w", err)
	}

	return c.handleResponse(resp, respBody)
}

func (c *HTTPClient) handleResponse(resp *http.Response, body []byte) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		return nil
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		if retryAfter == "" {
			return errors.New("empty retry-after value")
		}
		ra, err := strconv.Atoi(retryAfter)
		if err != nil {
			return fmt.Errorf("retry after atoi failed: %w", err)
		}
		return &serviceerrs.TooManyRequestsError{
			RetryAfter: time.Duration(ra) * time.Second,
		}
	case http.StatusInternalServerError:
		return fmt.Errorf("gateway error\nBody: %s", string(body))
	}

	return fmt.Errorf("unexpected status: %d\nBody: %s",
		resp.StatusCode, string(body))
}
