package places

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/locality/internal/geo"
	"github.com/sells-group/locality/pkg/source"
)

const defaultGoogleBaseURL = "https://maps.googleapis.com"

const googleProviderName = "google-places"

// GoogleProvider searches points of interest via the Google Places Nearby
// Search API.
type GoogleProvider struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *source.Breaker
}

// GoogleOption configures the GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) GoogleOption {
	return func(p *GoogleProvider) {
		p.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) GoogleOption {
	return func(p *GoogleProvider) {
		p.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) GoogleOption {
	return func(p *GoogleProvider) {
		p.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *source.Breaker) GoogleOption {
	return func(p *GoogleProvider) {
		p.breaker = b
	}
}

// NewGoogle creates a GoogleProvider. An empty apiKey leaves the provider
// unavailable; every search then fails with a typed unavailable error so
// callers can treat it as missing data.
func NewGoogle(apiKey string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		apiKey:  apiKey,
		baseURL: defaultGoogleBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(10, 10),
		breaker: source.NewBreaker(5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return googleProviderName }

// Available implements Provider.
func (p *GoogleProvider) Available() bool { return p.apiKey != "" }

type nearbyResponse struct {
	Results []nearbyResult `json:"results"`
	Status  string         `json:"status"`
	Error   string         `json:"error_message"`
}

type nearbyResult struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Types            []string `json:"types"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
}

// NearbySearch implements Provider.
func (p *GoogleProvider) NearbySearch(ctx context.Context, center geo.Point, keyword string, radiusMeters float64) ([]Place, error) {
	params := url.Values{
		"location": {strconv.FormatFloat(center.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(center.Lng, 'f', -1, 64)},
		"radius":   {strconv.Itoa(int(clampRadius(radiusMeters)))},
	}
	if keyword != "" {
		params.Set("keyword", keyword)
	}
	return p.call(ctx, "nearby search", "/maps/api/place/nearbysearch/json", params)
}

// TextSearch implements Provider.
func (p *GoogleProvider) TextSearch(ctx context.Context, query string) ([]Place, error) {
	params := url.Values{"query": {query}}
	return p.call(ctx, "text search", "/maps/api/place/textsearch/json", params)
}

func (p *GoogleProvider) call(ctx context.Context, op, path string, params url.Values) ([]Place, error) {
	if p.apiKey == "" {
		return nil, source.Unavailable(googleProviderName, op, eris.New("api key not configured"))
	}
	if !p.breaker.Allow() {
		return nil, source.Unavailable(googleProviderName, op, eris.New("circuit open"))
	}

	places, err := p.request(ctx, op, path, params)
	p.breaker.Record(err)
	return places, err
}

func (p *GoogleProvider) request(ctx context.Context, op, path string, params url.Values) ([]Place, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, source.Wrap(googleProviderName, op, eris.Wrap(err, "places: rate limit"))
	}

	params.Set("key", p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "places: build request")
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, source.Wrap(googleProviderName, op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, source.Wrap(googleProviderName, op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, source.Unavailable(googleProviderName, op,
			eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	var parsed nearbyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, source.Unavailable(googleProviderName, op, eris.Wrap(err, "places: parse response"))
	}

	switch parsed.Status {
	case "OK":
		out := make([]Place, 0, len(parsed.Results))
		for _, r := range parsed.Results {
			out = append(out, Place{
				ID:    r.PlaceID,
				Name:  r.Name,
				Types: r.Types,
				Location: geo.Point{
					Lat: r.Geometry.Location.Lat,
					Lng: r.Geometry.Location.Lng,
				},
				Rating:          r.Rating,
				UserRatingCount: r.UserRatingsTotal,
			})
		}
		return out, nil

	case "ZERO_RESULTS":
		return []Place{}, nil

	default:
		// REQUEST_DENIED, OVER_QUERY_LIMIT, INVALID_REQUEST, UNKNOWN_ERROR.
		return nil, source.Unavailable(googleProviderName, op,
			eris.Errorf("places: api status %s: %s", parsed.Status, parsed.Error))
	}
}
