package fine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerDayPolicy_Calculate(t *testing.T) {
	due := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	p := NewPerDayPolicy(5000)

	tests := []struct {
		name string
		now  time.Time
		want int64
	}{
		{"未到期", due.Add(-time.Hour), 0},
		{"恰好到期", due, 0},
		{"逾期1分钟按1天", due.Add(time.Minute), 5000},
		{"逾期整3天", due.Add(72 * time.Hour), 15000},
		{"逾期3天零1小时", due.Add(73 * time.Hour), 20000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Calculate(due, tt.now))
		})
	}
}

func TestPerDayPolicy_ZeroRate(t *testing.T) {
	due := time.Now().Add(-48 * time.Hour)
	assert.Equal(t, int64(0), NewPerDayPolicy(0).Calculate(due, time.Now()))
}
