package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/locality/internal/geo"
	"github.com/sells-group/locality/pkg/source"
)

const defaultGoogleBaseURL = "https://maps.googleapis.com"

const googleGeocoderName = "google-geocoding"

// GoogleGeocoder resolves addresses via the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *source.Breaker
}

// GoogleOption configures the GoogleGeocoder.
type GoogleOption func(*GoogleGeocoder)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) GoogleOption {
	return func(g *GoogleGeocoder) {
		g.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) GoogleOption {
	return func(g *GoogleGeocoder) {
		g.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) GoogleOption {
	return func(g *GoogleGeocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *source.Breaker) GoogleOption {
	return func(g *GoogleGeocoder) {
		g.breaker = b
	}
}

// NewGoogle creates a GoogleGeocoder. An empty apiKey leaves the geocoder
// unavailable.
func NewGoogle(apiKey string, opts ...GoogleOption) *GoogleGeocoder {
	g := &GoogleGeocoder{
		apiKey:  apiKey,
		baseURL: defaultGoogleBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(10, 10),
		breaker: source.NewBreaker(5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements Geocoder.
func (g *GoogleGeocoder) Name() string { return googleGeocoderName }

// Available implements Geocoder.
func (g *GoogleGeocoder) Available() bool { return g.apiKey != "" }

type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
	Status  string          `json:"status"`
	Error   string          `json:"error_message"`
}

type geocodeResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// Geocode implements Geocoder.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	return g.call(ctx, "geocode", url.Values{"address": {address}})
}

// ReverseGeocode implements Geocoder.
func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, p geo.Point) (*Result, error) {
	latlng := strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
	return g.call(ctx, "reverse geocode", url.Values{"latlng": {latlng}})
}

func (g *GoogleGeocoder) call(ctx context.Context, op string, params url.Values) (*Result, error) {
	if g.apiKey == "" {
		return nil, source.Unavailable(googleGeocoderName, op, eris.New("api key not configured"))
	}
	if !g.breaker.Allow() {
		return nil, source.Unavailable(googleGeocoderName, op, eris.New("circuit open"))
	}

	result, err := g.request(ctx, op, params)
	g.breaker.Record(err)
	return result, err
}

func (g *GoogleGeocoder) request(ctx context.Context, op string, params url.Values) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, source.Wrap(googleGeocoderName, op, eris.Wrap(err, "geocode: rate limit"))
	}

	params.Set("key", g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/maps/api/geocode/json?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, source.Wrap(googleGeocoderName, op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, source.Wrap(googleGeocoderName, op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, source.Unavailable(googleGeocoderName, op,
			eris.Errorf("geocode: unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	var parsed geocodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, source.Unavailable(googleGeocoderName, op, eris.Wrap(err, "geocode: parse response"))
	}

	switch parsed.Status {
	case "OK":
		if len(parsed.Results) == 0 {
			return &Result{Matched: false, Source: googleGeocoderName}, nil
		}
		r := parsed.Results[0]
		return &Result{
			Location: geo.Point{
				Lat: r.Geometry.Location.Lat,
				Lng: r.Geometry.Location.Lng,
			},
			FormattedAddress: r.FormattedAddress,
			Quality:          locationTypeToQuality(r.Geometry.LocationType),
			Source:           googleGeocoderName,
			Matched:          true,
		}, nil

	case "ZERO_RESULTS":
		return &Result{Matched: false, Source: googleGeocoderName}, nil

	default:
		return nil, source.Unavailable(googleGeocoderName, op,
			eris.Errorf("geocode: api status %s: %s", parsed.Status, parsed.Error))
	}
}

// locationTypeToQuality maps Google's location_type to our quality taxonomy.
func locationTypeToQuality(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "range"
	case "GEOMETRIC_CENTER":
		return "centroid"
	default:
		return "approximate"
	}
}
