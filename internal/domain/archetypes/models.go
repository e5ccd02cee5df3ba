package archetypes

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidTable = errors.New("invalid archetype table")

// Behavior holds the coefficients copied onto every agent at creation.
// Each coefficient is in [0,1].
type Behavior struct {
	MessageFrequency    float64 `toml:"message_frequency" json:"message_frequency"`
	RiskTolerance       float64 `toml:"risk_tolerance" json:"risk_tolerance"`
	TradeFrequency      float64 `toml:"trade_frequency" json:"trade_frequency"`
	SocialInfluence     float64 `toml:"social_influence" json:"social_influence"`
	EmotionalVolatility float64 `toml:"emotional_volatility" json:"emotional_volatility"`
	ContrarianRate      float64 `toml:"contrarian_rate" json:"contrarian_rate"`
	TechnicalLanguage   float64 `toml:"technical_language" json:"technical_language"`
}

func (b Behavior) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"message_frequency", b.MessageFrequency},
		{"risk_tolerance", b.RiskTolerance},
		{"trade_frequency", b.TradeFrequency},
		{"social_influence", b.SocialInfluence},
		{"emotional_volatility", b.EmotionalVolatility},
		{"contrarian_rate", b.ContrarianRate},
		{"technical_language", b.TechnicalLanguage},
	}
	for _, f := range fields {
		// NaN fails both comparisons and is rejected too
		if !(f.value >= 0 && f.value <= 1) {
			return fmt.Errorf("%s = %v is outside [0,1]", f.name, f.value)
		}
	}
	return nil
}

type Archetype struct {
	ID         string          `toml:"id"`
	Share      int             `toml:"share"`
	FundingMin decimal.Decimal `toml:"funding_min"`
	FundingMax decimal.Decimal `toml:"funding_max"`
	Behavior   Behavior        `toml:"behavior"`
}

type Occupation struct {
	ID    string `toml:"id"`
	Share int    `toml:"share"`
}

// Table is the static categorical configuration the distributor samples from.
type Table struct {
	Archetypes  []Archetype
	Occupations []Occupation
}

// Validate rejects tables that cannot be sampled: empty categories, shares
// that do not sum to 100, duplicate ids, bad funding ranges or coefficients.
func (t Table) Validate() error {
	if len(t.Archetypes) == 0 {
		return fmt.Errorf("%w: no archetypes configured", ErrInvalidTable)
	}
	if len(t.Occupations) == 0 {
		return fmt.Errorf("%w: no occupations configured", ErrInvalidTable)
	}

	seen := make(map[string]bool, len(t.Archetypes))
	total := 0
	for _, a := range t.Archetypes {
		if a.ID == "" {
			return fmt.Errorf("%w: archetype with empty id", ErrInvalidTable)
		}
		if seen[a.ID] {
			return fmt.Errorf("%w: duplicate archetype %q", ErrInvalidTable, a.ID)
		}
		seen[a.ID] = true
		if a.Share < 0 {
			return fmt.Errorf("%w: archetype %q has negative share", ErrInvalidTable, a.ID)
		}
		if !a.FundingMin.IsPositive() {
			return fmt.Errorf("%w: archetype %q funding_min must be positive", ErrInvalidTable, a.ID)
		}
		if a.FundingMax.LessThan(a.FundingMin) {
			return fmt.Errorf("%w: archetype %q funding_max below funding_min", ErrInvalidTable, a.ID)
		}
		if err := a.Behavior.Validate(); err != nil {
			return fmt.Errorf("%w: archetype %q: %v", ErrInvalidTable, a.ID, err)
		}
		total += a.Share
	}
	if total != 100 {
		return fmt.Errorf("%w: archetype shares sum to %d, want 100", ErrInvalidTable, total)
	}

	seen = make(map[string]bool, len(t.Occupations))
	total = 0
	for _, o := range t.Occupations {
		if o.ID == "" {
			return fmt.Errorf("%w: occupation with empty id", ErrInvalidTable)
		}
		if seen[o.ID] {
			return fmt.Errorf("%w: duplicate occupation %q", ErrInvalidTable, o.ID)
		}
		seen[o.ID] = true
		if o.Share < 0 {
			return fmt.Errorf("%w: occupation %q has negative share", ErrInvalidTable, o.ID)
		}
		total += o.Share
	}
	if total != 100 {
		return fmt.Errorf("%w: occupation shares sum to %d, want 100", ErrInvalidTable, total)
	}
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DefaultTable is used when the config file does not define its own table.
func DefaultTable() Table {
	return Table{
		Archetypes: []Archetype{
			{ID: "hodler", Share: 25, FundingMin: dec("0.002"), FundingMax: dec("0.006"),
				Behavior: Behavior{0.3, 0.4, 0.1, 0.3, 0.2, 0.2, 0.4}},
			{ID: "day_trader", Share: 20, FundingMin: dec("0.003"), FundingMax: dec("0.008"),
				Behavior: Behavior{0.6, 0.6, 0.9, 0.4, 0.5, 0.3, 0.7}},
			{ID: "degen", Share: 15, FundingMin: dec("0.001"), FundingMax: dec("0.005"),
				Behavior: Behavior{0.9, 0.95, 0.8, 0.6, 0.9, 0.1, 0.3}},
			{ID: "panic_seller", Share: 10, FundingMin: dec("0.001"), FundingMax: dec("0.004"),
				Behavior: Behavior{0.5, 0.2, 0.5, 0.2, 0.95, 0.1, 0.2}},
			{ID: "contrarian", Share: 10, FundingMin: dec("0.002"), FundingMax: dec("0.006"),
				Behavior: Behavior{0.4, 0.6, 0.4, 0.5, 0.3, 0.9, 0.6}},
			{ID: "fomo_chaser", Share: 10, FundingMin: dec("0.001"), FundingMax: dec("0.005"),
				Behavior: Behavior{0.8, 0.7, 0.7, 0.3, 0.8, 0.05, 0.2}},
			{ID: "analyst", Share: 5, FundingMin: dec("0.003"), FundingMax: dec("0.007"),
				Behavior: Behavior{0.5, 0.4, 0.3, 0.7, 0.2, 0.4, 0.95}},
			{ID: "whale", Share: 5, FundingMin: dec("0.01"), FundingMax: dec("0.02"),
				Behavior: Behavior{0.2, 0.5, 0.3, 0.95, 0.3, 0.3, 0.5}},
		},
		Occupations: []Occupation{
			{ID: "software_engineer", Share: 15},
			{ID: "student", Share: 15},
			{ID: "retail_worker", Share: 10},
			{ID: "educator", Share: 10},
			{ID: "nurse", Share: 10},
			{ID: "artist", Share: 10},
			{ID: "finance_professional", Share: 10},
			{ID: "retiree", Share: 10},
			{ID: "freelancer", Share: 10},
		},
	}
}
