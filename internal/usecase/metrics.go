package usecase

import "context"

// MetricsSummary represents aggregated scan and solve insights.
type MetricsSummary struct {
	TotalScans         int64   `json:"total_scans"`
	LowConfidenceScans int64   `json:"low_confidence_scans"`
	LowConfidenceRate  float64 `json:"low_confidence_rate"`
	TotalSolves        int64   `json:"total_solves"`
	SuccessfulSolves   int64   `json:"successful_solves"`
	SuccessRate        float64 `json:"success_rate"`
	AverageMoves       float64 `json:"average_moves"`
	AverageLatencyMs   float64 `json:"average_latency_ms"`
}

// GetMetricsSummary aggregates metrics from persisted history.
func (uc *CubeUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	if uc.history == nil {
		return nil, ErrHistoryDisabled
	}
	aggregation, err := uc.history.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalScans:         aggregation.TotalScans,
		LowConfidenceScans: aggregation.LowConfidenceScans,
		TotalSolves:        aggregation.TotalSolves,
		SuccessfulSolves:   aggregation.SuccessfulSolves,
		AverageMoves:       aggregation.AverageMoves,
		AverageLatencyMs:   aggregation.AverageLatencyMs,
	}

	if aggregation.TotalScans > 0 {
		summary.LowConfidenceRate = float64(aggregation.LowConfidenceScans) / float64(aggregation.TotalScans)
	}
	if aggregation.TotalSolves > 0 {
		summary.SuccessRate = float64(aggregation.SuccessfulSolves) / float64(aggregation.TotalSolves)
	}

	return summary, nil
}
