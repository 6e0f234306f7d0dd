// Package scorer turns classified points of interest into per-category and
// overall 0-10 suitability scores using distance-weighted proximity curves.
package scorer

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/locality/pkg/source"
)

// Category is one of the seven fixed infrastructure classes.
type Category string

const (
	CategoryHealthcare     Category = "healthcare"
	CategoryEducation      Category = "education"
	CategoryTransportation Category = "transportation"
	CategoryShopping       Category = "shopping"
	CategoryServices       Category = "services"
	CategoryRecreation     Category = "recreation"
	CategoryDining         Category = "dining"
)

// Categories lists the known categories in declining-weight order. This is
// also the classifier precedence and the order insights are emitted in.
func Categories() []Category {
	return []Category{
		CategoryHealthcare,
		CategoryEducation,
		CategoryTransportation,
		CategoryShopping,
		CategoryServices,
		CategoryRecreation,
		CategoryDining,
	}
}

// CategoryConfig carries the scoring parameters for one category.
type CategoryConfig struct {
	// Weight is this category's share of the overall score. All weights
	// must sum to 1.
	Weight float64 `yaml:"weight" mapstructure:"weight"`

	// IdealDistanceMeters is the distance below which proximity is maximal.
	IdealDistanceMeters float64 `yaml:"ideal_distance_meters" mapstructure:"ideal_distance_meters"`

	// Tags are the raw provider type tags recognized as this category.
	Tags []string `yaml:"tags" mapstructure:"tags"`
}

// Config maps each category to its scoring parameters.
type Config struct {
	Categories map[Category]CategoryConfig `yaml:"categories" mapstructure:"categories"`
}

// weightTolerance bounds the floating-point slack allowed on the weight sum.
const weightTolerance = 1e-6

// DefaultConfig returns the built-in category table. Weights sum to 1.
func DefaultConfig() Config {
	return Config{
		Categories: map[Category]CategoryConfig{
			CategoryHealthcare: {
				Weight:              0.25,
				IdealDistanceMeters: 1000,
				Tags: []string{
					"hospital", "pharmacy", "drugstore", "doctor", "dentist",
					"clinic", "health", "physiotherapist",
				},
			},
			CategoryEducation: {
				Weight:              0.20,
				IdealDistanceMeters: 800,
				Tags: []string{
					"school", "primary_school", "secondary_school", "university", "library",
				},
			},
			CategoryTransportation: {
				Weight:              0.15,
				IdealDistanceMeters: 500,
				Tags: []string{
					"bus_station", "subway_station", "train_station", "light_rail_station",
					"transit_station", "airport", "taxi_stand",
				},
			},
			CategoryShopping: {
				Weight:              0.15,
				IdealDistanceMeters: 600,
				Tags: []string{
					"shopping_mall", "supermarket", "grocery_or_supermarket",
					"convenience_store", "market", "department_store", "clothing_store", "store",
				},
			},
			CategoryServices: {
				Weight:              0.10,
				IdealDistanceMeters: 1200,
				Tags: []string{
					"bank", "atm", "post_office", "police", "fire_station",
					"city_hall", "local_government_office", "courthouse",
				},
			},
			CategoryRecreation: {
				Weight:              0.10,
				IdealDistanceMeters: 1500,
				Tags: []string{
					"park", "gym", "stadium", "movie_theater", "amusement_park",
					"zoo", "museum", "art_gallery", "tourist_attraction",
				},
			},
			CategoryDining: {
				Weight:              0.05,
				IdealDistanceMeters: 400,
				Tags: []string{
					"restaurant", "cafe", "bar", "bakery", "food",
					"meal_takeaway", "meal_delivery",
				},
			},
		},
	}
}

// WeightSum returns the sum of all category weights.
func (c Config) WeightSum() float64 {
	var sum float64
	for _, cat := range c.Categories {
		sum += cat.Weight
	}
	return sum
}

// Validate checks that the config is internally consistent. Violations are
// configuration errors and abort startup.
func (c Config) Validate() error {
	var errs []string

	known := make(map[Category]bool, len(Categories()))
	for _, cat := range Categories() {
		known[cat] = true
	}

	for cat, cc := range c.Categories {
		if !known[cat] {
			errs = append(errs, fmt.Sprintf("unknown category %q", cat))
			continue
		}
		if cc.Weight < 0 {
			errs = append(errs, fmt.Sprintf("%s: weight must be >= 0", cat))
		}
		if cc.IdealDistanceMeters <= 0 {
			errs = append(errs, fmt.Sprintf("%s: ideal_distance_meters must be > 0", cat))
		}
		if len(cc.Tags) == 0 {
			errs = append(errs, fmt.Sprintf("%s: at least one tag is required", cat))
		}
	}

	if len(c.Categories) == 0 {
		errs = append(errs, "at least one category is required")
	} else if sum := c.WeightSum(); math.Abs(sum-1.0) > weightTolerance {
		errs = append(errs, fmt.Sprintf("weights must sum to 1.0, got %.6f", sum))
	}

	if len(errs) > 0 {
		return source.NewConfigError(
			eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// LoadFile reads a category table from a YAML file, replacing the built-in
// table entirely. The loaded table is validated before use.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, eris.Wrapf(err, "scorer: read category table %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, eris.Wrapf(err, "scorer: parse category table %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
