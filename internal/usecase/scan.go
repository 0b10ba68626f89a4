package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/cubescan/internal/cube"
	"github.com/example/cubescan/internal/facecolor"
	"github.com/example/cubescan/internal/facestore"
	"github.com/example/cubescan/internal/logging"
	"github.com/example/cubescan/internal/repository"
)

// ScanInput is one face photo submitted for a session.
type ScanInput struct {
	SessionID string
	FaceIndex int
	Image     string // data URL or bare base64
}

// ScanResult is the classified face.
type ScanResult struct {
	RequestID     string
	FaceIndex     int
	Scan          facecolor.Scan
	LowConfidence []int // sticker indices below the configured threshold
	Message       string
}

// NewSessionID returns a fresh session identifier.
func (uc *CubeUseCase) NewSessionID() string {
	return uuid.NewString()
}

// ScanFace decodes and classifies a face image and records it in its slot.
func (uc *CubeUseCase) ScanFace(ctx context.Context, in ScanInput) (*ScanResult, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithSession(logging.WithOperation(uc.logger, "usecase.scan_face", requestID), in.SessionID)

	if strings.TrimSpace(in.SessionID) == "" || in.Image == "" {
		return nil, fmt.Errorf("%w: session_id and image required", ErrInvalidInput)
	}
	if in.FaceIndex < 0 || in.FaceIndex >= facestore.FaceCount {
		return nil, fmt.Errorf("%w: face_index must be in [0, %d], got %d", ErrInvalidInput, facestore.FaceCount-1, in.FaceIndex)
	}

	decoded, err := uc.decoder.DecodeDataURL(in.Image)
	if err != nil {
		opLogger.Info("rejected image", zap.Error(err))
		return nil, err
	}

	scan := uc.classifier.Classify(decoded.Image)
	low := scan.LowConfidence(uc.opts.LowConfidence)
	if len(low) > 0 {
		opLogger.Info("low confidence stickers",
			zap.Ints("stickers", low),
			zap.Float64("min_confidence", scan.MinConfidence()))
	}

	if err := uc.store.Record(ctx, in.SessionID, in.FaceIndex, scan.Grid); err != nil {
		wrapped := logging.NewOperationError("usecase.record_face", requestID, err)
		opLogger.Error("failed to record face", logging.ErrorFields(wrapped)...)
		return nil, wrapped
	}

	if uc.history != nil {
		log := &repository.ScanLog{
			RequestID:     requestID,
			SessionID:     in.SessionID,
			FaceIndex:     in.FaceIndex,
			Colors:        scan.Grid.String(),
			Strategy:      scan.Strategy,
			MinConfidence: scan.MinConfidence(),
			LowConfidence: len(low) > 0,
			CreatedAt:     uc.now().UTC(),
		}
		if err := uc.history.SaveScan(ctx, log); err != nil {
			opLogger.Warn("failed to persist scan log", zap.Error(err))
		}
	}

	opLogger.Debug("face scanned",
		zap.Int("face_index", in.FaceIndex),
		zap.String("colors", scan.Grid.String()),
		zap.String("format", decoded.Format))

	return &ScanResult{
		RequestID:     requestID,
		FaceIndex:     in.FaceIndex,
		Scan:          scan,
		LowConfidence: low,
		Message:       fmt.Sprintf("Face %d recorded", in.FaceIndex),
	}, nil
}

// Faces returns the slots recorded so far for a session.
func (uc *CubeUseCase) Faces(ctx context.Context, sessionID string) (facestore.FaceState, error) {
	return uc.store.Faces(ctx, sessionID)
}

// Facelets assembles the session's six faces into a facelet string.
func (uc *CubeUseCase) Facelets(ctx context.Context, sessionID string) (string, error) {
	faces, err := uc.store.Faces(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return cube.Assemble(faces)
}

// EndSession tears a session down.
func (uc *CubeUseCase) EndSession(ctx context.Context, sessionID string) error {
	if err := uc.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	logging.WithSession(uc.logger, sessionID).Debug("session ended")
	return nil
}
