package ibge

import (
	"context"
	"sort"

	"github.com/sells-group/locality/pkg/source"
)

// StaticRecord bundles a municipality with its statistics for the static
// client.
type StaticRecord struct {
	Municipality Municipality
	Facts        map[StatisticKind]Fact
}

// StaticClient serves municipality data from an in-memory table. It backs
// offline runs and gives tests a deterministic source.
type StaticClient struct {
	records map[string]StaticRecord
}

// NewStatic creates a StaticClient with a small built-in table of major
// municipalities.
func NewStatic() *StaticClient {
	return NewStaticWithData(builtinRecords())
}

// NewStaticWithData creates a StaticClient over the given records.
func NewStaticWithData(records []StaticRecord) *StaticClient {
	byID := make(map[string]StaticRecord, len(records))
	for _, r := range records {
		byID[r.Municipality.ID] = r
	}
	return &StaticClient{records: byID}
}

// Name implements Client.
func (c *StaticClient) Name() string { return "static" }

// Available implements Client.
func (c *StaticClient) Available() bool { return true }

// Municipality implements Client.
func (c *StaticClient) Municipality(_ context.Context, id string) (*Municipality, error) {
	r, ok := c.records[id]
	if !ok {
		return nil, source.NotFound("static", "municipality")
	}
	m := r.Municipality
	return &m, nil
}

// Statistic implements Client.
func (c *StaticClient) Statistic(_ context.Context, id string, kind StatisticKind) (*Fact, error) {
	r, ok := c.records[id]
	if !ok {
		return nil, source.NotFound("static", "statistic "+string(kind))
	}
	f, ok := r.Facts[kind]
	if !ok {
		return nil, source.NotFound("static", "statistic "+string(kind))
	}
	return &f, nil
}

// Municipalities implements Client. The list is ordered by name.
func (c *StaticClient) Municipalities(_ context.Context) ([]Municipality, error) {
	out := make([]Municipality, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r.Municipality)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func builtinRecords() []StaticRecord {
	mk := func(pop, area float64, year int) map[StatisticKind]Fact {
		return map[StatisticKind]Fact{
			StatPopulation: {Value: pop, Unit: "Pessoas", Year: year, Source: "static"},
			StatArea:       {Value: area, Unit: "km²", Year: 2022, Source: "static"},
			StatDensity:    {Value: pop / area, Unit: "habitante por quilômetro quadrado", Year: year, Source: "static"},
		}
	}

	return []StaticRecord{
		{
			Municipality: Municipality{ID: "3550308", Name: "São Paulo", State: "SP", StateName: "São Paulo", Region: "Sudeste"},
			Facts:        mk(11_451_999, 1521.11, 2022),
		},
		{
			Municipality: Municipality{ID: "3304557", Name: "Rio de Janeiro", State: "RJ", StateName: "Rio de Janeiro", Region: "Sudeste"},
			Facts:        mk(6_211_223, 1200.33, 2022),
		},
		{
			Municipality: Municipality{ID: "3106200", Name: "Belo Horizonte", State: "MG", StateName: "Minas Gerais", Region: "Sudeste"},
			Facts:        mk(2_315_560, 331.35, 2022),
		},
		{
			Municipality: Municipality{ID: "4106902", Name: "Curitiba", State: "PR", StateName: "Paraná", Region: "Sul"},
			Facts:        mk(1_773_718, 434.89, 2022),
		},
		{
			Municipality: Municipality{ID: "2927408", Name: "Salvador", State: "BA", StateName: "Bahia", Region: "Nordeste"},
			Facts:        mk(2_417_678, 693.45, 2022),
		},
	}
}
