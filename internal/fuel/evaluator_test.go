package fuel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fuel_tracker/internal/models"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		dispensed float64
		received  float64
		wantDiff  float64
		wantPct   float64
		want      models.TransactionStatus
	}{
		{"exact match", 80, 80, 0, 0, models.TransactionCompleted},
		{"boundary is not a discrepancy", 80, 76, 4, 5, models.TransactionCompleted},
		{"just over", 80, 75.9, 4.1, 5.125, models.TransactionDiscrepancy},
		{"received more than dispensed", 100, 110, -10, -10, models.TransactionDiscrepancy},
		{"nothing dispensed", 0, 12, -12, 0, models.TransactionCompleted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := Evaluate(tc.dispensed, tc.received)
			assert.InDelta(t, tc.wantDiff, v.Discrepancy, 1e-9)
			assert.InDelta(t, tc.wantPct, v.DiscrepancyPct, 1e-9)
			assert.Equal(t, tc.want, v.Status)
		})
	}
}

// Over an integer grid the status must agree with the exact rule
// |d - r| * 100 > 5 * |d|, with d = 0 always completed.
func TestEvaluateAgreesWithExactRule(t *testing.T) {
	for d := 0; d <= 120; d++ {
		for r := 0; r <= 120; r++ {
			v := Evaluate(float64(d), float64(r))
			diff := d - r
			if diff < 0 {
				diff = -diff
			}
			want := models.TransactionCompleted
			if d != 0 && diff*100 > 5*d {
				want = models.TransactionDiscrepancy
			}
			if !assert.Equal(t, want, v.Status, "dispensed=%d received=%d", d, r) {
				return
			}
		}
	}
}

func TestEvaluateWithThreshold(t *testing.T) {
	assert.Equal(t, models.TransactionDiscrepancy, EvaluateWithThreshold(100, 97, 2).Status)
	assert.Equal(t, models.TransactionCompleted, EvaluateWithThreshold(100, 97, 3).Status)
}
