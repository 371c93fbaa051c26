package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDateKeepsLocalCalendarDate(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 2024-03-01 02:00 in UTC+9 is still 2024-02-29 in UTC.
	d := NewDate(time.Date(2024, 3, 1, 2, 0, 0, 0, loc))
	assert.Equal(t, "2024-03-01", d.String())
}

func TestDateJSON(t *testing.T) {
	d, err := ParseDate("2024-05-17")
	require.NoError(t, err)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-05-17"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, d.Equal(back.Time))

	assert.Error(t, json.Unmarshal([]byte(`"17/05/2024"`), &back))
}

func TestDateScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want string
	}{
		{"time", time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), "2024-05-17"},
		{"string", "2024-05-17", "2024-05-17"},
		{"bytes", []byte("2024-05-17"), "2024-05-17"},
		{"timestamp string", "2024-05-17 00:00:00+00:00", "2024-05-17"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.src))
			assert.Equal(t, tt.want, d.String())
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
	assert.Error(t, d.Scan("2024"))
	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
}

func TestDateValue(t *testing.T) {
	d, err := ParseDate("2024-05-17")
	require.NoError(t, err)
	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-17", v)
}
