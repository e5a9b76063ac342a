package repo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatesMarshalAsCivilDates(t *testing.T) {
	date := time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 10, 19, 6, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		v    any
	}{
		{"time slot", TimeSlot{ID: uuid.New(), Date: date, Time: "10:00", CreatedAt: created}},
		{"session", Session{ID: uuid.New(), Date: date, Time: "10:00", Status: SessionConfirmed, CreatedAt: created}},
		{"session pointer", &Session{ID: uuid.New(), Date: date, Time: "10:00", CreatedAt: created}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.v)
			require.NoError(t, err)

			var out map[string]any
			require.NoError(t, json.Unmarshal(data, &out))
			assert.Equal(t, "2026-10-25", out["date"])
			assert.Equal(t, "10:00", out["time"])
			assert.Equal(t, "2026-10-19T06:30:00Z", out["created_at"])
		})
	}
}
