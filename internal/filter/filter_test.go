package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transmission-api/internal/catalog"
	"transmission-api/internal/query"
)

var testCatalog = []catalog.Record{
	{Make: "HONDA", Model: "ACCORD", YearRange: "98-02", TransType: "4 SP FWD", EngineSize: "L4 2.3L", TransModel: "BAXA"},
	{Make: "HONDA", Model: "ACCORD", YearRange: "98-02", TransType: "4 SP FWD", EngineSize: "V6 3.0L", TransModel: "B7XA"},
	{Make: "HONDA", Model: "ACCORD", YearRange: "98-02", TransType: "4 SP FWD", EngineSize: "L4 2.3L", TransModel: "MCTA"},
	{Make: "JEEP", Model: "LIBERTY", YearRange: "2002-2007", TransType: "4 SP 4WD", EngineSize: "V6 3.7L", TransModel: "42RLE"},
	{Make: "VOLKSWAGEN", Model: "GOLF", YearRange: "14-16", TransType: "6 SPEED FWD", EngineSize: "L4 1.8L", TransModel: "09G"},
	{Make: "VOLKSWAGEN", Model: "GOLF", YearRange: "14-16", TransType: "5-SPD FWD", EngineSize: "L4 2.0L", TransModel: "09K"},
	{Make: "MAZDA", Model: "CX-9", YearRange: "07-UP", TransType: "6SP AWD", EngineSize: "V6 3.5L", TransModel: "TF-81SC"},
}

func parse(t *testing.T, raw string) query.ParsedQuery {
	t.Helper()
	q, err := query.NewNormalizer(query.DefaultOptions()).Normalize(raw)
	require.NoError(t, err)
	return q
}

func TestFilter_ExactKeepsEveryMatchInCatalogOrder(t *testing.T) {
	res := New(10, nil).Apply(testCatalog, parse(t, "Accord 2000"))

	assert.Equal(t, TierExact, res.Tier)
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, "BAXA", res.Candidates[0].TransModel)
	assert.Equal(t, "B7XA", res.Candidates[1].TransModel)
	assert.Equal(t, "MCTA", res.Candidates[2].TransModel)
}

func TestFilter_QuestionPhrasing(t *testing.T) {
	for _, raw := range []string{
		"Honda Accord 2000?",
		"Honda Accord 2000.",
		"(Accord 2000)",
		"¿Qué transmisión tiene el Honda Accord 2000?",
		"Que transmision tiene el Honda Accord 98",
	} {
		res := New(10, nil).Apply(testCatalog, parse(t, raw))
		assert.Equal(t, TierExact, res.Tier, raw)
		assert.Len(t, res.Candidates, 3, raw)
	}
}

func TestFilter_RelaxedWhenYearMissing(t *testing.T) {
	res := New(10, nil).Apply(testCatalog, parse(t, "Jeep Liberty 2000"))

	assert.Equal(t, TierRelaxed, res.Tier)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "42RLE", res.Candidates[0].TransModel)
}

func TestFilter_NoneWhenNameUnknown(t *testing.T) {
	res := New(10, nil).Apply(testCatalog, parse(t, "Ferrari Testarossa 1990"))

	assert.Equal(t, TierNone, res.Tier)
	assert.Empty(t, res.Candidates)
}

func TestFilter_NoYearSkipsRelaxed(t *testing.T) {
	f := New(10, nil)
	res := f.Apply(testCatalog, parse(t, "Ferrari"))
	assert.Equal(t, TierNone, res.Tier)

	res = f.Apply(testCatalog, parse(t, "Liberty"))
	assert.Equal(t, TierExact, res.Tier)
}

func TestFilter_SpeedCount(t *testing.T) {
	f := New(10, nil)

	res := f.Apply(testCatalog, parse(t, "Golf 6 cambios 2015"))
	assert.Equal(t, TierExact, res.Tier)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "09G", res.Candidates[0].TransModel)

	res = f.Apply(testCatalog, parse(t, "Golf 5 velocidades 2015"))
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "09K", res.Candidates[0].TransModel)

	// Speed constraint survives the relaxed tier.
	res = f.Apply(testCatalog, parse(t, "Golf 6 cambios 2010"))
	assert.Equal(t, TierRelaxed, res.Tier)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "09G", res.Candidates[0].TransModel)

	res = f.Apply(testCatalog, parse(t, "Golf 8 cambios"))
	assert.Equal(t, TierNone, res.Tier)
}

func TestFilter_HyphenatedModel(t *testing.T) {
	res := New(10, nil).Apply(testCatalog, parse(t, "Mazda cx9 2012"))
	assert.Equal(t, TierExact, res.Tier)
	require.Len(t, res.Candidates, 1)

	res = New(10, nil).Apply(testCatalog, parse(t, "mazda CX-9"))
	require.Len(t, res.Candidates, 1)
}

func TestFilter_Cap(t *testing.T) {
	res := New(2, nil).Apply(testCatalog, parse(t, "Honda Accord"))
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "BAXA", res.Candidates[0].TransModel)

	res = New(0, nil).Apply(testCatalog, parse(t, "Honda"))
	assert.Len(t, res.Candidates, 3)
}

func TestFilter_Grouping(t *testing.T) {
	dup := append([]catalog.Record(nil), testCatalog...)
	dup = append(dup, catalog.Record{Make: "Honda", Model: "Accord", YearRange: "98-02", TransType: "4 SP FWD", TransModel: "baxa"})

	res := New(10, nil).Apply(dup, parse(t, "Accord"))
	assert.Len(t, res.Candidates, 4)

	res = New(10, GroupKeyByName("trans_model")).Apply(dup, parse(t, "Accord"))
	assert.Len(t, res.Candidates, 3)

	res = New(10, GroupKeyByName("make_model_trans_model")).Apply(dup, parse(t, "Accord"))
	assert.Len(t, res.Candidates, 3)

	assert.Nil(t, GroupKeyByName("none"))
}

func TestFilter_EmptyKeywordsMatchByYear(t *testing.T) {
	q := query.ParsedQuery{Raw: "2015", Year: 2015}
	res := New(10, nil).Apply(testCatalog, q)
	assert.Equal(t, TierExact, res.Tier)
	// Golf 14-16 twice and CX-9 07-UP.
	assert.Len(t, res.Candidates, 3)
}

type alwaysStrategy struct{}

func (alwaysStrategy) Tier() Tier { return "ANY" }
func (alwaysStrategy) Applies(query.ParsedQuery) bool { return true }
func (alwaysStrategy) Match(catalog.Record, query.ParsedQuery) bool { return true }

func TestFilter_CustomStrategies(t *testing.T) {
	res := NewWithStrategies([]Strategy{alwaysStrategy{}}, 1, nil).Apply(testCatalog, query.ParsedQuery{})
	assert.Equal(t, Tier("ANY"), res.Tier)
	assert.Len(t, res.Candidates, 1)
}

func TestMatchesSpeedCount(t *testing.T) {
	tests := []struct {
		transType string
		count     int
		want      bool
	}{
		{"4 SP FWD", 4, true},
		{"4SP FWD", 4, true},
		{"4 SPEED", 4, true},
		{"6-SPEED AWD", 6, true},
		{"5 SPD RWD", 5, true},
		{"10 SP RWD", 10, true},
		{"10 SP RWD", 0, false},
		{"4 SP FWD", 5, false},
		{"CVT FWD", 4, false},
		{"", 4, false},
		{"14 SP", 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.transType, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesSpeedCount(tt.transType, tt.count))
		})
	}
}

func TestSearchText(t *testing.T) {
	r := catalog.Record{Make: "Mazda", Model: "CX-9", TransType: "6 SP", EngineSize: "V6", TransModel: "TF-81SC"}
	assert.Equal(t, "mazda cx9 6 sp v6", SearchText(r))
	assert.True(t, MatchesKeywords(r, nil))
	assert.False(t, MatchesKeywords(r, []string{"mazda", "tf81sc"}))
}
