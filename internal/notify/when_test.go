package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func TestFormatWhen(t *testing.T) {
	loc := tokyo(t)

	tests := []struct {
		name   string
		raw    string
		tokens bool
		want   string
	}{
		{"date only", "2025-06-01", false, "2025/06/01 (日)"},
		{"monday", "2025-06-02", false, "2025/06/02 (月)"},
		{"saturday", "2025-06-07", false, "2025/06/07 (土)"},
		{"date time with offset", "2025-06-04T14:30:00.000+09:00", false, "2025/06/04 (水) 14:30"},
		{"utc converted to zone", "2025-06-05T23:00:00.000Z", false, "2025/06/06 (金) 08:00"},
		{"naive date time", "2025-06-03T09:05", false, "2025/06/03 (火) 09:05"},
		{"midnight keeps time", "2025-06-05T00:00:00+09:00", false, "2025/06/05 (木) 00:00"},
		{"date token", "2025-06-01", true, "2025/06/01 (日) <t:1748703600:D>"},
		{"date time token", "2025-06-01T14:00:00+09:00", true, "2025/06/01 (日) 14:00 <t:1748754000:F>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatWhen(tt.raw, loc, tt.tokens)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatWhenRejectsGarbage(t *testing.T) {
	_, err := FormatWhen("next tuesday", tokyo(t), false)
	assert.Error(t, err)

	_, err = FormatWhen("2025-13-01", tokyo(t), false)
	assert.Error(t, err)
}
