package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/cubescan/internal/logging"
	"github.com/example/cubescan/internal/retry"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ScanLog records one classified face.
type ScanLog struct {
	ID            uint      `gorm:"primaryKey"`
	RequestID     string    `gorm:"column:request_id;uniqueIndex;size:64"`
	SessionID     string    `gorm:"column:session_id;index;size:64"`
	FaceIndex     int       `gorm:"column:face_index"`
	Colors        string    `gorm:"column:colors;size:9"`
	Strategy      string    `gorm:"column:strategy;size:16"`
	MinConfidence float64   `gorm:"column:min_confidence"`
	LowConfidence bool      `gorm:"column:low_confidence"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (ScanLog) TableName() string {
	return "scan_logs"
}

// SolveLog records one solve attempt, successful or not.
type SolveLog struct {
	ID        uint      `gorm:"primaryKey"`
	RequestID string    `gorm:"column:request_id;uniqueIndex;size:64"`
	SessionID string    `gorm:"column:session_id;index;size:64"`
	Facelets  string    `gorm:"column:facelets;size:54"`
	Solution  string    `gorm:"column:solution;type:text"`
	MoveCount int       `gorm:"column:move_count"`
	Success   bool      `gorm:"column:success"`
	ErrorKind string    `gorm:"column:error_kind;size:32"`
	LatencyMs int64     `gorm:"column:latency_ms"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (SolveLog) TableName() string {
	return "solve_logs"
}

// MetricsAggregation holds raw counters computed from the history tables.
type MetricsAggregation struct {
	TotalScans         int64
	LowConfidenceScans int64
	TotalSolves        int64
	SuccessfulSolves   int64
	AverageMoves       float64
	AverageLatencyMs   float64
}

// HistoryRepository provides persistence APIs for scan and solve history.
type HistoryRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	policy retry.Policy
}

// NewHistoryRepository creates a new repository instance.
func NewHistoryRepository(db *gorm.DB, logger *zap.Logger) *HistoryRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryRepository{
		db:     db,
		logger: logger.Named("history_repository"),
		policy: retry.DefaultPolicy,
	}
}

// AutoMigrate ensures the schema is available.
func (r *HistoryRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&ScanLog{}, &SolveLog{})
}

// SaveScan persists a scan log entry.
func (r *HistoryRepository) SaveScan(ctx context.Context, log *ScanLog) error {
	return r.executeWithRetry(ctx, "repository.save_scan", log.RequestID, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// SaveSolve persists a solve log entry.
func (r *HistoryRepository) SaveSolve(ctx context.Context, log *SolveLog) error {
	return r.executeWithRetry(ctx, "repository.save_solve", log.RequestID, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// FindSolve retrieves a solve log by request id.
func (r *HistoryRepository) FindSolve(ctx context.Context, requestID string) (*SolveLog, error) {
	var log SolveLog
	err := r.executeWithRetry(ctx, "repository.find_solve", requestID, func() error {
		return r.db.WithContext(ctx).First(&log, "request_id = ?", requestID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// AggregateMetrics computes counters over the whole history.
func (r *HistoryRepository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var scans struct {
		Total int64
		Low   int64
	}
	var solves struct {
		Total      int64
		Successful int64
		AvgMoves   float64
		AvgLatency float64
	}

	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		db := r.db.WithContext(ctx)
		if err := db.Model(&ScanLog{}).
			Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN low_confidence THEN 1 ELSE 0 END), 0) AS low").
			Scan(&scans).Error; err != nil {
			return err
		}
		return db.Model(&SolveLog{}).
			Select("COUNT(*) AS total, " +
				"COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS successful, " +
				"COALESCE(AVG(CASE WHEN success THEN move_count END), 0) AS avg_moves, " +
				"COALESCE(AVG(latency_ms), 0) AS avg_latency").
			Scan(&solves).Error
	})
	if err != nil {
		return nil, err
	}

	return &MetricsAggregation{
		TotalScans:         scans.Total,
		LowConfidenceScans: scans.Low,
		TotalSolves:        solves.Total,
		SuccessfulSolves:   solves.Successful,
		AverageMoves:       solves.AvgMoves,
		AverageLatencyMs:   solves.AvgLatency,
	}, nil
}

func (r *HistoryRepository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	err := retry.Do(ctx, r.policy, r.logger, operation, requestID, fn)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		r.logger.Error("repository operation failed", logging.ErrorFields(err)...)
	}
	return err
}
