package archetypes

import (
	"math/rand/v2"
	"sync"

	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"
)

const slotsPerTable = 100

// Rand is the random source the distributor draws from.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// lockedRand makes a seeded *rand.Rand safe for the batch worker pool.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// NewSeededRand returns a reproducible source, mainly for tests.
func NewSeededRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Distributor draws archetypes and occupations with the configured shares.
// One index slot exists per percentage point, so draws are uniform over 100 slots.
type Distributor struct {
	table           Table
	archetypeSlots  [slotsPerTable]int
	occupationSlots [slotsPerTable]int
	rnd             Rand
}

// NewDistributor validates the table and builds the slot indexes once.
// A nil rnd uses the process-wide generator.
func NewDistributor(table Table, rnd Rand) (*Distributor, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = globalRand{}
	}

	d := &Distributor{table: table, rnd: rnd}

	slot := 0
	for i, a := range table.Archetypes {
		for j := 0; j < a.Share; j++ {
			d.archetypeSlots[slot] = i
			slot++
		}
	}
	slot = 0
	for i, o := range table.Occupations {
		for j := 0; j < o.Share; j++ {
			d.occupationSlots[slot] = i
			slot++
		}
	}
	return d, nil
}

func (d *Distributor) Table() Table {
	return d.table
}

func (d *Distributor) DrawArchetype() Archetype {
	return d.table.Archetypes[d.archetypeSlots[d.rnd.IntN(slotsPerTable)]]
}

func (d *Distributor) DrawOccupation() string {
	return d.table.Occupations[d.occupationSlots[d.rnd.IntN(slotsPerTable)]].ID
}

// DrawFunding returns a uniform amount inside the archetype's funding range,
// rounded to 6 decimal places and clamped to the range.
func (d *Distributor) DrawFunding(a Archetype) decimal.Decimal {
	span := a.FundingMax.Sub(a.FundingMin)
	amount := a.FundingMin.Add(span.Mul(decimal.NewFromFloat(d.rnd.Float64()))).Round(6)
	if amount.LessThan(a.FundingMin) {
		return a.FundingMin
	}
	if amount.GreaterThan(a.FundingMax) {
		return a.FundingMax
	}
	return amount
}

// AverageFunding is the share-weighted mean of the funding range midpoints.
func (d *Distributor) AverageFunding() decimal.Decimal {
	total := decimal.Zero
	for _, a := range d.table.Archetypes {
		mid := a.FundingMin.Add(a.FundingMax).Div(decimal.NewFromInt(2))
		total = total.Add(mid.Mul(decimal.NewFromInt(int64(a.Share))))
	}
	return total.Div(decimal.NewFromInt(slotsPerTable))
}

type archetypeSource []Archetype

func (s archetypeSource) String(i int) string { return s[i].ID }
func (s archetypeSource) Len() int            { return len(s) }

// Find returns archetypes whose id fuzzily matches query, best match first.
func (t Table) Find(query string) []Archetype {
	if query == "" {
		return t.Archetypes
	}
	matches := fuzzy.FindFrom(query, archetypeSource(t.Archetypes))
	out := make([]Archetype, 0, len(matches))
	for _, m := range matches {
		out = append(out, t.Archetypes[m.Index])
	}
	return out
}
