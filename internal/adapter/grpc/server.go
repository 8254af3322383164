package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	bookvaluev1 "github.com/simaogato/bookvalue-backend/internal/adapter/grpc/bookvalue/v1"
	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/usecase/alert"
	"github.com/simaogato/bookvalue-backend/internal/usecase/batch"
	"github.com/simaogato/bookvalue-backend/internal/usecase/comparison"
	"github.com/simaogato/bookvalue-backend/internal/usecase/notification"
	"github.com/simaogato/bookvalue-backend/internal/usecase/refresh"
	"github.com/simaogato/bookvalue-backend/internal/usecase/snapshot"
)

// Server implements the ValuationService gRPC server
type Server struct {
	bookvaluev1.UnimplementedValuationServiceServer

	AlertService        *alert.AlertService
	SnapshotService     *snapshot.SnapshotService
	ComparisonService   *comparison.ComparisonService
	RefreshService      *refresh.RefreshService
	NotificationService *notification.NotificationService
	BatchService        *batch.BatchService

	log *zap.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(
	alertService *alert.AlertService,
	snapshotService *snapshot.SnapshotService,
	comparisonService *comparison.ComparisonService,
	refreshService *refresh.RefreshService,
	notificationService *notification.NotificationService,
	batchService *batch.BatchService,
	log *zap.Logger,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		AlertService:        alertService,
		SnapshotService:     snapshotService,
		ComparisonService:   comparisonService,
		RefreshService:      refreshService,
		NotificationService: notificationService,
		BatchService:        batchService,
		log:                 log,
	}
}

// CheckAlerts runs one alert evaluation pass.
// Persistence failures do not fail the call: the per-alert results are
// still returned, with success false and the joined error in "error".
func (s *Server) CheckAlerts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	summary, err := s.AlertService.CheckAllAlerts(ctx)
	if summary == nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"success":         summary.Success && err == nil,
		"checked_at":      formatTime(summary.CheckedAt),
		"total_checked":   summary.TotalChecked,
		"triggered_count": summary.TriggeredCount,
		"failed_count":    summary.FailedCount,
		"results":         listOf(summary.Results, alertResultToMap),
		"error":           errString(err),
	})
}

// GenerateSnapshots writes current-period snapshots for one user, or for
// every user when user_id is empty
func (s *Server) GenerateSnapshots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := uuidField(req, "user_id", false)
	if err != nil {
		return nil, err
	}
	asOf, err := timeField(req, "as_of")
	if err != nil {
		return nil, err
	}

	var summary *snapshot.GenerationSummary
	if userID == uuid.Nil {
		summary, err = s.SnapshotService.GenerateForAllUsers(ctx, asOf)
	} else {
		summary, err = s.SnapshotService.GenerateForUser(ctx, userID, asOf)
	}
	if summary == nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"success":   summary.Success && err == nil,
		"as_of":     formatTime(summary.AsOf),
		"generated": summary.Generated,
		"failed":    summary.Failed,
		"results":   listOf(summary.Results, subjectResultToMap),
		"error":     errString(err),
	})
}

// ListSnapshots returns stored snapshots for a subject, newest first
func (s *Server) ListSnapshots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	subjectID, err := uuidField(req, "subject_id", true)
	if err != nil {
		return nil, err
	}
	kind, err := subjectKindField(req, "subject_kind")
	if err != nil {
		return nil, err
	}
	tf, err := timeFrameField(req, "time_frame")
	if err != nil {
		return nil, err
	}
	limit, err := intField(req, "limit")
	if err != nil {
		return nil, err
	}

	snaps, err := s.SnapshotService.GetByTimeFrame(ctx, subjectID, kind, tf, limit)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"snapshots": listOf(snaps, snapshotToMap),
	})
}

// CompareBatches returns one row per requested batch, in request order
func (s *Server) CompareBatches(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := uuidField(req, "owner_id", false)
	if err != nil {
		return nil, err
	}
	batchIDs, err := uuidListField(req, "batch_ids")
	if err != nil {
		return nil, err
	}
	if len(batchIDs) == 0 {
		return nil, status.Error(codes.InvalidArgument, "batch_ids is required")
	}
	tf, err := timeFrameField(req, "time_frame")
	if err != nil {
		return nil, err
	}

	rows, err := s.ComparisonService.Compare(ctx, ownerID, batchIDs, tf)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"time_frame": string(tf),
		"rows":       listOf(rows, comparisonRowToMap),
	})
}

// RefreshBook fetches a live quote for one book and applies it
func (s *Server) RefreshBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	bookID, err := uuidField(req, "book_id", true)
	if err != nil {
		return nil, err
	}

	book, err := s.RefreshService.RefreshBook(ctx, bookID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"book": bookToMap(book),
	})
}

// SetAlertActive enables or disables an alert
func (s *Server) SetAlertActive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	alertID, err := uuidField(req, "alert_id", true)
	if err != nil {
		return nil, err
	}
	active, err := boolField(req, "active")
	if err != nil {
		return nil, err
	}

	a, err := s.AlertService.SetActive(ctx, alertID, active)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"alert": alertToMap(a),
	})
}

// ListNotifications returns a user's notifications, newest first
func (s *Server) ListNotifications(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := uuidField(req, "user_id", true)
	if err != nil {
		return nil, err
	}
	unreadOnly, err := boolField(req, "unread_only")
	if err != nil {
		return nil, err
	}
	limit, err := intField(req, "limit")
	if err != nil {
		return nil, err
	}

	notifications, err := s.NotificationService.List(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"notifications": listOf(notifications, notificationToMap),
	})
}

// MarkNotificationRead acknowledges a notification
func (s *Server) MarkNotificationRead(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "notification_id", true)
	if err != nil {
		return nil, err
	}

	if err := s.NotificationService.MarkRead(ctx, id); err != nil {
		return nil, mapError(err)
	}

	return &structpb.Struct{}, nil
}

// RefreshUser refreshes every book a user owns. Per-book failures are
// reported in results and do not fail the call.
func (s *Server) RefreshUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := uuidField(req, "user_id", true)
	if err != nil {
		return nil, err
	}

	summary, err := s.RefreshService.RefreshUser(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"success":   summary.Success,
		"refreshed": summary.Refreshed,
		"failed":    summary.Failed,
		"results":   listOf(summary.Results, bookResultToMap),
	})
}

// AddBatchBooks adds books to a batch and returns the recomputed batch
func (s *Server) AddBatchBooks(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	batchID, err := uuidField(req, "batch_id", true)
	if err != nil {
		return nil, err
	}
	bookIDs, err := uuidListField(req, "book_ids")
	if err != nil {
		return nil, err
	}
	if len(bookIDs) == 0 {
		return nil, status.Error(codes.InvalidArgument, "book_ids is required")
	}

	b, err := s.BatchService.AddBooks(ctx, batchID, bookIDs)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"batch": batchToMap(b),
	})
}

// RemoveBatchBook removes one book from a batch and returns the recomputed batch
func (s *Server) RemoveBatchBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	batchID, err := uuidField(req, "batch_id", true)
	if err != nil {
		return nil, err
	}
	bookID, err := uuidField(req, "book_id", true)
	if err != nil {
		return nil, err
	}

	b, err := s.BatchService.RemoveBook(ctx, batchID, bookID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"batch": batchToMap(b),
	})
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", errorMsg)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", errorMsg)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnresolvableBatch):
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	case errors.Is(err, domain.ErrBatchOwnership), errors.Is(err, domain.ErrBookOwnership):
		return status.Errorf(codes.PermissionDenied, "%s", errorMsg)
	case errors.Is(err, domain.ErrInvalidTimeFrame), errors.Is(err, domain.ErrNegativePrice):
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	case errors.Is(err, domain.ErrMissingISBN), errors.Is(err, domain.ErrNoPriceData):
		return status.Errorf(codes.FailedPrecondition, "%s", errorMsg)
	case errors.Is(err, domain.ErrQuoteUnavailable), errors.Is(err, domain.ErrQuoteUpstream):
		return status.Errorf(codes.Unavailable, "%s", errorMsg)
	}

	// Validate() failures are plain messages
	if strings.Contains(errorMsg, "must ") ||
		strings.Contains(errorMsg, "cannot ") ||
		strings.Contains(errorMsg, "invalid") ||
		strings.Contains(errorMsg, "required") {
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	}

	return status.Errorf(codes.Internal, "%s", errorMsg)
}
