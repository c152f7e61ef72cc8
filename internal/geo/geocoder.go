package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/provenance-service/internal/config"
)

// UnknownLocation is returned when the external lookup fails. It is never
// cached, so the next scan for the same coordinates retries the lookup.
const UnknownLocation = "Location unavailable"

// Geocoder resolves a coordinate pair to a human readable place name.
type Geocoder interface {
	ReverseLookup(ctx context.Context, lat, lon float64) (string, error)
}

// HTTPGeocoder calls a Nominatim-compatible reverse geocoding endpoint.
type HTTPGeocoder struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPGeocoder builds the client from configuration.
func NewHTTPGeocoder(cfg config.GeocoderConfig, logger *zap.Logger) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// ReverseLookup performs one reverse geocoding call.
func (g *HTTPGeocoder) ReverseLookup(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.DisplayName == "" {
		if body.Error != "" {
			return "", fmt.Errorf("geocoder error: %s", body.Error)
		}
		return "", fmt.Errorf("geocoder returned empty display name")
	}
	return body.DisplayName, nil
}
