package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestResolve_Weekly_ISOBoundaries(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want Key
	}{
		{"monday of week 1 in previous december", date(2024, time.December, 30), Key{Weekly, 2025, 1}},
		{"sunday belongs to week 53 of previous year", date(2021, time.January, 3), Key{Weekly, 2020, 53}},
		{"thursday january first is week 1", date(2026, time.January, 1), Key{Weekly, 2026, 1}},
		{"friday january first is last week of previous year", date(2027, time.January, 1), Key{Weekly, 2026, 53}},
		{"mid year", date(2025, time.July, 16), Key{Weekly, 2025, 29}},
		{"december 31 in week 1", date(2019, time.December, 31), Key{Weekly, 2020, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.date, Weekly))
		})
	}
}

func TestResolve_MonthlyQuarterlyAnnual(t *testing.T) {
	d := date(2025, time.March, 31)
	assert.Equal(t, Key{Monthly, 2025, 3}, Resolve(d, Monthly))
	assert.Equal(t, Key{Quarterly, 2025, 1}, Resolve(d, Quarterly))
	assert.Equal(t, Key{Annual, 2025, 0}, Resolve(d, Annual))

	quarters := map[time.Month]int{
		time.January: 1, time.March: 1, time.April: 2, time.June: 2,
		time.July: 3, time.September: 3, time.October: 4, time.December: 4,
	}
	for month, q := range quarters {
		assert.Equal(t, q, Resolve(date(2025, month, 15), Quarterly).Index, "month %s", month)
	}
}

func TestResolve_UsesDateLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2024-12-29 20:00 UTC is already Monday the 30th in Tokyo.
	utc := time.Date(2024, time.December, 29, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, Key{Weekly, 2024, 52}, Resolve(utc, Weekly))
	assert.Equal(t, Key{Weekly, 2025, 1}, Resolve(utc.In(tokyo), Weekly))
}

func TestResolve_UnknownCadence(t *testing.T) {
	assert.Equal(t, Key{}, Resolve(date(2025, time.May, 1), Cadence(42)))
}

func TestParseCadence(t *testing.T) {
	for _, c := range Cadences() {
		got, err := ParseCadence(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	got, err := ParseCadence(" Yearly ")
	require.NoError(t, err)
	assert.Equal(t, Annual, got)

	_, err = ParseCadence("daily")
	assert.Error(t, err)
}

func TestKey_StringAndParse(t *testing.T) {
	tests := []struct {
		key   Key
		label string
	}{
		{Key{Weekly, 2026, 1}, "2026-W01"},
		{Key{Weekly, 2020, 53}, "2020-W53"},
		{Key{Monthly, 2025, 3}, "2025-03"},
		{Key{Quarterly, 2025, 2}, "2025-Q2"},
		{Key{Annual, 2025, 0}, "2025"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.label, tt.key.String())

			parsed, err := ParseKey(tt.key.Cadence, tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.key, parsed)
		})
	}
}

func TestParseKey_Rejects(t *testing.T) {
	cases := []struct {
		cadence Cadence
		label   string
	}{
		{Weekly, "2021-W53"},
		{Weekly, "2025-03"},
		{Monthly, "2025-13"},
		{Quarterly, "2025-Q5"},
		{Annual, "twenty"},
		{Annual, "+2025"},
		{Monthly, "2025-3"},
		{Monthly, "2025-+3"},
		{Weekly, "2025-W1"},
		{Weekly, "2025-W001"},
		{Quarterly, "2025-Q01"},
		{Quarterly, "2025-q1"},
		{Cadence(0), "2025"},
	}
	for _, tt := range cases {
		_, err := ParseKey(tt.cadence, tt.label)
		assert.Error(t, err, "%v %q", tt.cadence, tt.label)
	}
}

func TestWeeksInYear(t *testing.T) {
	assert.Equal(t, 53, WeeksInYear(2020))
	assert.Equal(t, 52, WeeksInYear(2021))
	assert.Equal(t, 52, WeeksInYear(2025))
	assert.Equal(t, 53, WeeksInYear(2026))
}

func TestKey_Start(t *testing.T) {
	assert.Equal(t, time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC), Key{Weekly, 2025, 1}.Start())
	assert.Equal(t, time.Date(2026, time.December, 28, 0, 0, 0, 0, time.UTC), Key{Weekly, 2026, 53}.Start())
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), Key{Quarterly, 2025, 2}.Start())
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), Key{Monthly, 2025, 3}.Start())
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), Key{Annual, 2025, 0}.Start())
}

func TestKey_NextPrev(t *testing.T) {
	assert.Equal(t, Key{Weekly, 2027, 1}, Key{Weekly, 2026, 53}.Next())
	assert.Equal(t, Key{Weekly, 2026, 53}, Key{Weekly, 2027, 1}.Prev())
	assert.Equal(t, Key{Monthly, 2026, 1}, Key{Monthly, 2025, 12}.Next())
	assert.Equal(t, Key{Monthly, 2024, 12}, Key{Monthly, 2025, 1}.Prev())
	assert.Equal(t, Key{Quarterly, 2026, 1}, Key{Quarterly, 2025, 4}.Next())
	assert.Equal(t, Key{Quarterly, 2024, 4}, Key{Quarterly, 2025, 1}.Prev())
	assert.Equal(t, Key{Annual, 2026, 0}, Key{Annual, 2025, 0}.Next())
}

func TestKey_Valid(t *testing.T) {
	assert.True(t, Key{Weekly, 2020, 53}.Valid())
	assert.False(t, Key{Weekly, 2021, 53}.Valid())
	assert.False(t, Key{Weekly, 2021, 0}.Valid())
	assert.False(t, Key{Annual, 2025, 1}.Valid())
	assert.False(t, Key{}.Valid())
}

func TestKey_Before(t *testing.T) {
	assert.True(t, Key{Weekly, 2025, 52}.Before(Key{Weekly, 2026, 1}))
	assert.True(t, Key{Monthly, 2025, 2}.Before(Key{Monthly, 2025, 3}))
	assert.False(t, Key{Monthly, 2025, 3}.Before(Key{Monthly, 2025, 3}))
}
