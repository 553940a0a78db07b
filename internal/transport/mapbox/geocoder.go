package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
	"github.com/smlier739/copytrip-backend-sub000/internal/repository/ports"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

type Config struct {
	Token         string
	BaseURL       string
	RatePerSecond float64
	Timeout       time.Duration
}

// Geocoder resolves place names with the Mapbox forward geocoding API. Requests are
// throttled so a large itinerary cannot exhaust the account quota.
type Geocoder struct {
	token   string
	baseURL string
	limiter *rate.Limiter
	client  *http.Client
}

var _ ports.Geocoder = (*Geocoder)(nil)

func NewGeocoder(cfg Config) *Geocoder {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Geocoder{
		token:   cfg.Token,
		baseURL: base,
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
		client:  &http.Client{Timeout: timeout},
	}
}

type geocodeResponse struct {
	Features []struct {
		Center []float64 `json:"center"`
	} `json:"features"`
}

func (g *Geocoder) Geocode(ctx context.Context, query string) (*domain.Coordinates, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("access_token", g.token)
	params.Set("limit", "1")
	endpoint := fmt.Sprintf("%s/%s.json?%s", g.baseURL, url.PathEscape(query), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		// url.Error carries the request URL, which includes the access token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("mapbox geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mapbox geocode: unexpected status %d", resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("mapbox geocode: decode: %w", err)
	}
	if len(body.Features) == 0 || len(body.Features[0].Center) < 2 {
		return nil, nil
	}
	lng, lat := body.Features[0].Center[0], body.Features[0].Center[1]
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, nil
	}
	return &domain.Coordinates{Lat: lat, Lng: lng}, nil
}
