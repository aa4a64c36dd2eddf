// Package fuel turns raw telemetry into reconciled fuel transactions.
package fuel

import (
	"math"

	"fuel_tracker/internal/models"
)

// DefaultDiscrepancyThreshold is the percentage above which a transaction is
// flagged. Exactly 5% is still completed.
const DefaultDiscrepancyThreshold = 5.0

// Verdict is the outcome of pairing a dispensation with a reception.
type Verdict struct {
	Discrepancy    float64
	DiscrepancyPct float64
	Status         models.TransactionStatus
}

// Evaluate applies the default threshold.
func Evaluate(dispensed, received float64) Verdict {
	return EvaluateWithThreshold(dispensed, received, DefaultDiscrepancyThreshold)
}

// EvaluateWithThreshold computes discrepancy = dispensed - received and its
// share of dispensed. The share is 0 when nothing was dispensed.
func EvaluateWithThreshold(dispensed, received, thresholdPct float64) Verdict {
	v := Verdict{Discrepancy: dispensed - received}
	if dispensed != 0 {
		v.DiscrepancyPct = v.Discrepancy / dispensed * 100
	}
	if math.Abs(v.DiscrepancyPct) > thresholdPct {
		v.Status = models.TransactionDiscrepancy
	} else {
		v.Status = models.TransactionCompleted
	}
	return v
}
