// Package ibge fetches Brazilian municipality identification and statistics
// from the IBGE localidades and agregados APIs, with a static client for
// offline and deterministic use.
package ibge

import "context"

// Municipality identifies a municipality by its seven-digit IBGE code.
type Municipality struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	StateName string `json:"state_name"`
	Region    string `json:"region"`
}

// StatisticKind selects one of the published municipal statistics.
type StatisticKind string

const (
	StatPopulation StatisticKind = "population"
	StatArea       StatisticKind = "area"
	StatDensity    StatisticKind = "density"
)

// Fact is one resolved statistic value.
type Fact struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Year   int     `json:"year"`
	Source string  `json:"source"`
}

// Client resolves municipalities and their statistics.
type Client interface {
	Name() string

	// Available reports whether the client can serve requests at all.
	Available() bool

	// Municipality resolves basic identification for an IBGE code.
	Municipality(ctx context.Context, id string) (*Municipality, error)

	// Statistic fetches one statistic for an IBGE code.
	Statistic(ctx context.Context, id string, kind StatisticKind) (*Fact, error)

	// Municipalities lists every municipality, for name search.
	Municipalities(ctx context.Context) ([]Municipality, error)
}
