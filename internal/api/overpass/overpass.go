// Package overpass provides a map-data provider backed by the OpenStreetMap
// Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelradar/internal/geo"
	"github.com/andygrunwald/fuelradar/internal/models"
)

const (
	// ProviderName is the identifier for this provider.
	ProviderName = "overpass"
	// DefaultURL is the public Overpass interpreter endpoint.
	DefaultURL = "https://overpass-api.de/api/interpreter"
	// DefaultTimeout bounds a single query, client and server side.
	DefaultTimeout = 15 * time.Second

	userAgent = "fuelradar/1.0 (+https://github.com/andygrunwald/fuelradar)"
	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 8 << 20
)

// apiResponse represents the JSON response from the Overpass interpreter.
type apiResponse struct {
	Version   float64   `json:"version"`
	Generator string    `json:"generator"`
	Elements  []element `json:"elements"`
	Remark    string    `json:"remark"`
}

// element is a node or way. Ways carry their centroid in Center.
type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *center           `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Provider implements the api.Provider interface for Overpass.
type Provider struct {
	client  *http.Client
	logger  zerolog.Logger
	baseURL string
	timeout time.Duration
}

// New creates a new Overpass provider. An empty baseURL selects DefaultURL and
// a zero timeout selects DefaultTimeout.
func New(logger zerolog.Logger, baseURL string, timeout time.Duration) *Provider {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Provider{
		client: &http.Client{
			Timeout: timeout,
		},
		logger:  logger.With().Str("provider", ProviderName).Logger(),
		baseURL: baseURL,
		timeout: timeout,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// QueryFuelStationsInBounds fetches amenity=fuel nodes and ways in bounds.
func (p *Provider) QueryFuelStationsInBounds(ctx context.Context, bounds geo.Bounds) ([]models.RawStation, error) {
	query := buildQuery(bounds, p.timeout)

	p.logger.Debug().
		Str("url", p.baseURL).
		Str("bounds", bounds.Key()).
		Msg("querying fuel stations from Overpass")

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}

	// Overpass reports server-side timeouts in "remark" with a 200 status.
	if strings.Contains(strings.ToLower(apiResp.Remark), "runtime error") {
		return nil, fmt.Errorf("overpass runtime error: %s", apiResp.Remark)
	}

	results := make([]models.RawStation, 0, len(apiResp.Elements))
	for _, el := range apiResp.Elements {
		raw, ok := el.toRawStation()
		if !ok {
			continue
		}
		results = append(results, raw)
	}

	p.logger.Debug().
		Int("elementCount", len(apiResp.Elements)).
		Int("stationCount", len(results)).
		Msg("fetched fuel stations from Overpass")

	return results, nil
}

func (el element) toRawStation() (models.RawStation, bool) {
	var lat, lon float64
	switch {
	case el.Lat != nil && el.Lon != nil:
		lat, lon = *el.Lat, *el.Lon
	case el.Center != nil:
		lat, lon = el.Center.Lat, el.Center.Lon
	default:
		return models.RawStation{}, false
	}
	if el.Type == "" || el.ID == 0 {
		return models.RawStation{}, false
	}

	street := el.Tags["addr:street"]
	if hn := el.Tags["addr:housenumber"]; hn != "" && street != "" {
		street = hn + " " + street
	}

	return models.RawStation{
		ID:            fmt.Sprintf("%s/%d", el.Type, el.ID),
		Name:          el.Tags["name"],
		Operator:      el.Tags["operator"],
		Brand:         el.Tags["brand"],
		Lat:           lat,
		Lng:           lon,
		AddressStreet: street,
		AddressCity:   el.Tags["addr:city"],
	}, true
}

// buildQuery renders the Overpass QL for fuel stations in bounds.
func buildQuery(b geo.Bounds, timeout time.Duration) string {
	bbox := fmt.Sprintf("%f,%f,%f,%f", b.South, b.West, b.North, b.East)
	return fmt.Sprintf(
		`[out:json][timeout:%d];(node["amenity"="fuel"](%s);way["amenity"="fuel"](%s););out center tags;`,
		int(timeout.Seconds()), bbox, bbox,
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
