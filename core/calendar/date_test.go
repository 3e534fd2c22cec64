package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := Date{Year: 2025, Month: time.September, Day: 15}

	tests := []struct {
		name    string
		s       string
		want    Date
		wantErr bool
	}{
		{name: "date only", s: "2025-09-15", want: want},
		{name: "UTC midnight", s: "2025-09-15T00:00:00Z", want: want},
		{name: "negative offset", s: "2025-09-15T00:00:00-05:00", want: want},
		{name: "positive offset late in the day", s: "2025-09-15T23:59:59+14:00", want: want},
		{name: "space separated", s: "2025-09-15 08:00:00", want: want},
		{name: "surrounding spaces", s: "  2025-09-15 ", want: want},
		{name: "empty", s: "", wantErr: true},
		{name: "garbage", s: "lol", wantErr: true},
		{name: "invalid day", s: "2025-02-30", wantErr: true},
		{name: "unexpected suffix", s: "2025-09-15X", wantErr: true},
		{name: "malformed time", s: "2025-09-15Tnonsense", wantErr: true},
		{name: "out of range hour", s: "2025-09-15T25:00:00Z", wantErr: true},
		{name: "fractional seconds", s: "2025-09-15T08:00:00.123456Z", want: want},
		{name: "postgres timestamptz", s: "2025-09-15 08:00:00-05", want: want},
		{name: "day first", s: "15-09-2025", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.s)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateOf(t *testing.T) {
	lima := time.FixedZone("PET", -5*60*60)

	assert.Equal(t, MustParseDate("2025-09-15"), DateOf(time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, MustParseDate("2025-09-15"), DateOf(time.Date(2025, 9, 15, 23, 30, 0, 0, lima)))
	// the same instant seen from Lima is still the 14th: DateOf never converts
	assert.Equal(t, MustParseDate("2025-09-14"), DateOf(time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC).In(lima)))
}

func TestDate_arithmetic(t *testing.T) {
	d := MustParseDate("2025-02-27")

	assert.Equal(t, MustParseDate("2025-03-01"), d.AddDays(2))
	assert.Equal(t, MustParseDate("2024-12-31"), MustParseDate("2025-01-01").AddDays(-1))
	assert.Equal(t, MustParseDate("2024-03-01"), NewDate(2024, time.February, 30))

	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-1)))
	assert.Equal(t, 0, d.Compare(MustParseDate("2025-02-27")))
	assert.Equal(t, -1, d.Compare(MustParseDate("2026-01-01")))
	assert.Equal(t, 1, d.Compare(MustParseDate("2025-01-31")))

	assert.True(t, d.Between(d, d))
	assert.False(t, d.Between(d.AddDays(1), d.AddDays(3)))

	assert.Equal(t, time.Saturday, MustParseDate("2025-03-01").Weekday())
	assert.True(t, MustParseDate("2025-03-01").IsWeekend())
	assert.True(t, MustParseDate("2025-03-02").IsWeekend())
	assert.False(t, MustParseDate("2025-03-03").IsWeekend())
}

func TestDate_encoding(t *testing.T) {
	type payload struct {
		Date  Date `json:"date"`
		Other Date `json:"other"`
	}

	data, err := json.Marshal(payload{Date: MustParseDate("2025-03-03")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date": "2025-03-03", "other": ""}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"date": "2025-09-15T00:00:00Z", "other": ""}`), &p))
	assert.Equal(t, MustParseDate("2025-09-15"), p.Date)
	assert.True(t, p.Other.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"date": "15/09/2025"}`), &p))
}

func TestDate_sql(t *testing.T) {
	var d Date

	require.NoError(t, d.Scan(time.Date(2025, 9, 15, 0, 0, 0, 0, time.FixedZone("", -5*60*60))))
	assert.Equal(t, MustParseDate("2025-09-15"), d)

	require.NoError(t, d.Scan([]byte("2025-03-03")))
	assert.Equal(t, MustParseDate("2025-03-03"), d)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))

	v, err := MustParseDate("2025-03-03").Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-03", v)

	v, err = Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
