package ibge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/locality/pkg/source"
)

const defaultIBGEBaseURL = "https://servicodados.ibge.gov.br"

const ibgeClientName = "ibge"

// statEndpoints maps each statistic to its IBGE aggregate and variable ids.
// Population comes from the yearly estimate series; area and density from
// the census territorial tables.
var statEndpoints = map[StatisticKind]struct {
	aggregate string
	variable  string
}{
	StatPopulation: {aggregate: "6579", variable: "9324"},
	StatArea:       {aggregate: "1301", variable: "615"},
	StatDensity:    {aggregate: "1301", variable: "616"},
}

// HTTPClient talks to the public IBGE APIs. No credentials are required;
// Available is always true.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *source.Breaker
}

// HTTPOption configures the HTTPClient.
type HTTPOption func(*HTTPClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) HTTPOption {
	return func(c *HTTPClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) HTTPOption {
	return func(c *HTTPClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *source.Breaker) HTTPOption {
	return func(c *HTTPClient) {
		c.breaker = b
	}
}

// NewHTTP creates an HTTPClient.
func NewHTTP(opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: defaultIBGEBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(10, 10),
		breaker: source.NewBreaker(5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Client.
func (c *HTTPClient) Name() string { return ibgeClientName }

// Available implements Client.
func (c *HTTPClient) Available() bool { return true }

type localidadeMunicipio struct {
	ID           int    `json:"id"`
	Nome         string `json:"nome"`
	Microrregiao struct {
		Mesorregiao struct {
			UF struct {
				Sigla  string `json:"sigla"`
				Nome   string `json:"nome"`
				Regiao struct {
					Nome string `json:"nome"`
				} `json:"regiao"`
			} `json:"UF"`
		} `json:"mesorregiao"`
	} `json:"microrregiao"`
}

func (m localidadeMunicipio) toMunicipality() Municipality {
	return Municipality{
		ID:        strconv.Itoa(m.ID),
		Name:      m.Nome,
		State:     m.Microrregiao.Mesorregiao.UF.Sigla,
		StateName: m.Microrregiao.Mesorregiao.UF.Nome,
		Region:    m.Microrregiao.Mesorregiao.UF.Regiao.Nome,
	}
}

// Municipality implements Client.
func (c *HTTPClient) Municipality(ctx context.Context, id string) (*Municipality, error) {
	const op = "municipality"

	body, err := c.call(ctx, op, "/api/v1/localidades/municipios/"+id)
	if err != nil {
		return nil, err
	}

	// The API answers unknown codes with an empty document instead of 404.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("[]")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, source.NotFound(ibgeClientName, op)
	}

	var parsed localidadeMunicipio
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, source.Unavailable(ibgeClientName, op, eris.Wrap(err, "ibge: parse municipality"))
	}
	if parsed.ID == 0 {
		return nil, source.NotFound(ibgeClientName, op)
	}

	m := parsed.toMunicipality()
	return &m, nil
}

// Municipalities implements Client.
func (c *HTTPClient) Municipalities(ctx context.Context) ([]Municipality, error) {
	const op = "municipalities"

	body, err := c.call(ctx, op, "/api/v1/localidades/municipios")
	if err != nil {
		return nil, err
	}

	var parsed []localidadeMunicipio
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, source.Unavailable(ibgeClientName, op, eris.Wrap(err, "ibge: parse municipalities"))
	}

	out := make([]Municipality, 0, len(parsed))
	for _, m := range parsed {
		out = append(out, m.toMunicipality())
	}
	return out, nil
}

type agregadoResponse []struct {
	Unidade    string `json:"unidade"`
	Resultados []struct {
		Series []struct {
			Serie map[string]string `json:"serie"`
		} `json:"series"`
	} `json:"resultados"`
}

// Statistic implements Client. The latest published period wins.
func (c *HTTPClient) Statistic(ctx context.Context, id string, kind StatisticKind) (*Fact, error) {
	op := "statistic " + string(kind)

	endpoint, ok := statEndpoints[kind]
	if !ok {
		return nil, source.NewConfigError(eris.Errorf("ibge: unknown statistic kind %q", kind))
	}

	path := fmt.Sprintf("/api/v3/agregados/%s/periodos/-1/variaveis/%s?localidades=N6[%s]",
		endpoint.aggregate, endpoint.variable, id)

	body, err := c.call(ctx, op, path)
	if err != nil {
		return nil, err
	}

	var parsed agregadoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, source.Unavailable(ibgeClientName, op, eris.Wrap(err, "ibge: parse statistic"))
	}
	if len(parsed) == 0 || len(parsed[0].Resultados) == 0 || len(parsed[0].Resultados[0].Series) == 0 {
		return nil, source.NotFound(ibgeClientName, op)
	}

	serie := parsed[0].Resultados[0].Series[0].Serie
	year, raw := latestPeriod(serie)
	if raw == "" {
		return nil, source.NotFound(ibgeClientName, op)
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// IBGE publishes "-", ".." and "..." for suppressed values.
		return nil, source.NotFound(ibgeClientName, op)
	}

	return &Fact{
		Value:  value,
		Unit:   parsed[0].Unidade,
		Year:   year,
		Source: ibgeClientName,
	}, nil
}

// latestPeriod picks the newest year present in a serie map.
func latestPeriod(serie map[string]string) (int, string) {
	years := make([]int, 0, len(serie))
	byYear := make(map[int]string, len(serie))
	for k, v := range serie {
		y, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		years = append(years, y)
		byYear[y] = v
	}
	if len(years) == 0 {
		return 0, ""
	}
	sort.Ints(years)
	latest := years[len(years)-1]
	return latest, byYear[latest]
}

func (c *HTTPClient) call(ctx context.Context, op, path string) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, source.Unavailable(ibgeClientName, op, eris.New("circuit open"))
	}

	body, err := c.request(ctx, op, path)
	c.breaker.Record(err)
	return body, err
}

func (c *HTTPClient) request(ctx context.Context, op, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, source.Wrap(ibgeClientName, op, eris.Wrap(err, "ibge: rate limit"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, eris.Wrap(err, "ibge: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, source.Wrap(ibgeClientName, op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, source.Wrap(ibgeClientName, op, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, source.NotFound(ibgeClientName, op)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, source.Unavailable(ibgeClientName, op,
			eris.Errorf("ibge: unexpected status %d: %s", resp.StatusCode, string(body)))
	}
	return body, nil
}
