package archetypes

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributor_DrawFrequencies(t *testing.T) {
	d, err := NewDistributor(DefaultTable(), NewSeededRand(42))
	require.NoError(t, err)

	const draws = 10000
	archetypeCounts := map[string]int{}
	occupationCounts := map[string]int{}
	for i := 0; i < draws; i++ {
		archetypeCounts[d.DrawArchetype().ID]++
		occupationCounts[d.DrawOccupation()]++
	}

	for _, a := range DefaultTable().Archetypes {
		got := float64(archetypeCounts[a.ID]) / draws * 100
		assert.InDeltaf(t, float64(a.Share), got, 2.0, "archetype %s drawn %.2f%%", a.ID, got)
	}
	for _, o := range DefaultTable().Occupations {
		got := float64(occupationCounts[o.ID]) / draws * 100
		assert.InDeltaf(t, float64(o.Share), got, 2.0, "occupation %s drawn %.2f%%", o.ID, got)
	}
}

func TestDistributor_ZeroShareNeverDrawn(t *testing.T) {
	table := DefaultTable()
	table.Archetypes = append(table.Archetypes, Archetype{
		ID: "ghost", Share: 0, FundingMin: dec("0.001"), FundingMax: dec("0.002"),
	})

	d, err := NewDistributor(table, NewSeededRand(7))
	require.NoError(t, err)

	for i := 0; i < 5000; i++ {
		assert.NotEqual(t, "ghost", d.DrawArchetype().ID)
	}
}

func TestDistributor_DrawFundingWithinRange(t *testing.T) {
	d, err := NewDistributor(DefaultTable(), NewSeededRand(1))
	require.NoError(t, err)

	for _, a := range DefaultTable().Archetypes {
		for i := 0; i < 500; i++ {
			amount := d.DrawFunding(a)
			assert.True(t, amount.GreaterThanOrEqual(a.FundingMin), "%s below min: %s", a.ID, amount)
			assert.True(t, amount.LessThanOrEqual(a.FundingMax), "%s above max: %s", a.ID, amount)
			assert.True(t, amount.Equal(amount.Round(6)), "%s not rounded to 6dp: %s", a.ID, amount)
		}
	}
}

func TestDistributor_DrawFundingFixedRange(t *testing.T) {
	a := Archetype{ID: "flat", Share: 100, FundingMin: dec("0.005"), FundingMax: dec("0.005")}
	table := Table{Archetypes: []Archetype{a}, Occupations: []Occupation{{ID: "any", Share: 100}}}

	d, err := NewDistributor(table, NewSeededRand(3))
	require.NoError(t, err)
	assert.True(t, d.DrawFunding(a).Equal(dec("0.005")))
}

func TestDistributor_AverageFunding(t *testing.T) {
	table := Table{
		Archetypes: []Archetype{
			{ID: "a", Share: 50, FundingMin: dec("0.002"), FundingMax: dec("0.004")},
			{ID: "b", Share: 50, FundingMin: dec("0.010"), FundingMax: dec("0.010")},
		},
		Occupations: []Occupation{{ID: "x", Share: 100}},
	}
	d, err := NewDistributor(table, nil)
	require.NoError(t, err)

	// 0.5*0.003 + 0.5*0.010
	assert.True(t, d.AverageFunding().Equal(decimal.RequireFromString("0.0065")), d.AverageFunding().String())
}

func TestTable_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Table)
	}{
		{
			name:   "archetype shares not 100",
			mutate: func(t *Table) { t.Archetypes[0].Share++ },
		},
		{
			name:   "occupation shares not 100",
			mutate: func(t *Table) { t.Occupations[0].Share-- },
		},
		{
			name:   "no archetypes",
			mutate: func(t *Table) { t.Archetypes = nil },
		},
		{
			name:   "no occupations",
			mutate: func(t *Table) { t.Occupations = nil },
		},
		{
			name:   "duplicate archetype id",
			mutate: func(t *Table) { t.Archetypes[1].ID = t.Archetypes[0].ID },
		},
		{
			name:   "negative share",
			mutate: func(t *Table) { t.Archetypes[0].Share = -5; t.Archetypes[1].Share += 30 },
		},
		{
			name:   "min above max",
			mutate: func(t *Table) { t.Archetypes[0].FundingMin = dec("1"); t.Archetypes[0].FundingMax = dec("0.5") },
		},
		{
			name:   "zero min",
			mutate: func(t *Table) { t.Archetypes[0].FundingMin = decimal.Zero },
		},
		{
			name:   "coefficient out of range",
			mutate: func(t *Table) { t.Archetypes[0].Behavior.RiskTolerance = 1.5 },
		},
		{
			name:   "coefficient NaN",
			mutate: func(t *Table) { t.Archetypes[0].Behavior.ContrarianRate = math.NaN() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := DefaultTable()
			tt.mutate(&table)

			_, err := NewDistributor(table, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTable), "got %v", err)
		})
	}
}

func TestTable_Find(t *testing.T) {
	table := DefaultTable()

	got := table.Find("trader")
	require.NotEmpty(t, got)
	assert.Equal(t, "day_trader", got[0].ID)

	assert.Len(t, table.Find(""), len(table.Archetypes))
	assert.Empty(t, table.Find("zzzz"))
}
