package analysis

import (
	"github.com/songzhibin97/trendsignal/internal/models"
)

// Evaluator defines methods for technical signal analysis
type Evaluator interface {
	// Evaluate classifies the most recent sample of a price series
	Evaluate(series models.PriceSeries) models.Verdict
}
