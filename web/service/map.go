package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/steams-social/steams-api/util/metrics"
)

const maxMapBodySize = 8 << 20

// MapPage is the rendered heatmap returned by the map service.
type MapPage struct {
	ContentType string
	Body        []byte
}

// MapService proxies heatmap requests to the external map service.
type MapService struct {
	baseURL    string
	httpClient *http.Client
}

func NewMapService(baseURL string, timeout time.Duration, client *http.Client) *MapService {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &MapService{baseURL: baseURL, httpClient: client}
}

// Heatmap fetches the heatmap around the given coordinates. Any transport
// failure or non-2xx answer is reported as ErrUpstream.
func (s *MapService) Heatmap(ctx context.Context, latitude, longitude string) (*MapPage, error) {
	params := url.Values{
		"latitude":  {latitude},
		"longitude": {longitude},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/heatmaps?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.MapRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.MapRequests.WithLabelValues("bad_status").Inc()
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMapBodySize))
	if err != nil {
		metrics.MapRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	metrics.MapRequests.WithLabelValues("ok").Inc()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}
	return &MapPage{ContentType: contentType, Body: body}, nil
}
