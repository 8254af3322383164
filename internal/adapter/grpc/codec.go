package grpc

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/usecase/alert"
	"github.com/simaogato/bookvalue-backend/internal/usecase/comparison"
	"github.com/simaogato/bookvalue-backend/internal/usecase/refresh"
	"github.com/simaogato/bookvalue-backend/internal/usecase/snapshot"
)

// Request decoding. Missing optional fields decode to their zero value;
// a present field of the wrong type is InvalidArgument.

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return s.StringValue, nil
}

func uuidField(req *structpb.Struct, name string, required bool) (uuid.UUID, error) {
	s, err := stringField(req, name)
	if err != nil {
		return uuid.Nil, err
	}
	if s == "" {
		if required {
			return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s is required", name)
		}
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return id, nil
}

func uuidListField(req *structpb.Struct, name string) ([]uuid.UUID, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, nil
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list of strings", name)
	}

	ids := make([]uuid.UUID, 0, len(list.ListValue.GetValues()))
	for i, item := range list.ListValue.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d] must be a string", name, i)
		}
		id, err := uuid.Parse(s.StringValue)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid %s[%d] format: %v", name, i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func boolField(req *structpb.Struct, name string) (bool, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return false, nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, status.Errorf(codes.InvalidArgument, "%s must be a boolean", name)
	}
	return b.BoolValue, nil
}

func intField(req *structpb.Struct, name string) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue < 0 || n.NumberValue > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a non-negative integer", name)
	}
	return int(n.NumberValue), nil
}

func timeField(req *structpb.Struct, name string) (time.Time, error) {
	s, err := stringField(req, name)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return t.UTC(), nil
}

func timeFrameField(req *structpb.Struct, name string) (domain.TimeFrame, error) {
	s, err := stringField(req, name)
	if err != nil {
		return "", err
	}
	tf, err := domain.ParseTimeFrame(s)
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "%v", err)
	}
	return tf, nil
}

// Response encoding. Decimals are strings, times RFC 3339.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optionalTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func optionalDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func errString(err error) interface{} {
	if err == nil {
		return nil
	}
	return err.Error()
}

func toStruct(m map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

func bookToMap(b *domain.Book) map[string]interface{} {
	return map[string]interface{}{
		"id":                b.ID.String(),
		"user_id":           b.UserID.String(),
		"isbn":              b.ISBN,
		"title":             b.Title,
		"condition":         string(b.Condition),
		"current_price":     b.CurrentPrice.String(),
		"historical_high":   b.HistoricalHigh.String(),
		"percent_of_high":   b.PercentOfHigh.String(),
		"rank_tier":         string(b.RankTier),
		"best_vendor_name":  b.BestVendorName,
		"purchase_price":    optionalDecimal(b.PurchasePrice),
		"last_price_update": optionalTime(b.LastPriceUpdate),
	}
}

func bookResultToMap(r refresh.BookResult) map[string]interface{} {
	m := map[string]interface{}{
		"book_id": r.BookID.String(),
		"error":   errString(r.Err),
		"book":    nil,
	}
	if r.Book != nil {
		m["book"] = bookToMap(r.Book)
	}
	return m
}

func batchToMap(b *domain.Batch) map[string]interface{} {
	c := b.Counters
	return map[string]interface{}{
		"id":              b.ID.String(),
		"user_id":         b.UserID.String(),
		"name":            b.Name,
		"green_count":     c.GreenCount,
		"yellow_count":    c.YellowCount,
		"red_count":       c.RedCount,
		"total_books":     c.TotalBooks,
		"total_value":     c.TotalValue.String(),
		"average_percent": c.AveragePercent.String(),
		"updated_at":      formatTime(b.UpdatedAt),
	}
}

func alertToMap(a *domain.PriceAlert) map[string]interface{} {
	return map[string]interface{}{
		"id":                a.ID.String(),
		"user_id":           a.UserID.String(),
		"book_id":           a.BookID.String(),
		"target_price":      a.TargetPrice.String(),
		"mode":              string(a.Mode),
		"active":            a.Active,
		"triggered":         a.Triggered,
		"state":             string(a.State()),
		"last_triggered_at": optionalTime(a.LastTriggeredAt),
		"created_at":        formatTime(a.CreatedAt),
	}
}

func alertResultToMap(r alert.Result) map[string]interface{} {
	return map[string]interface{}{
		"alert_id":        r.AlertID.String(),
		"book_id":         r.BookID.String(),
		"mode":            string(r.Mode),
		"triggered":       r.Triggered,
		"rearmed":         r.Rearmed,
		"current_price":   r.CurrentPrice.String(),
		"percent_of_high": r.PercentOfHigh.String(),
		"target_price":    r.TargetPrice.String(),
		"reason":          r.Reason,
		"error":           errString(r.Err),
	}
}

func snapshotToMap(s *domain.AnalyticsSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"id":                   s.ID.String(),
		"subject_id":           s.SubjectID.String(),
		"subject_kind":         string(s.SubjectKind),
		"time_frame":           string(s.TimeFrame),
		"period_start":         formatTime(s.PeriodStart),
		"total_books":          s.TotalBooks,
		"green_count":          s.GreenCount,
		"yellow_count":         s.YellowCount,
		"red_count":            s.RedCount,
		"total_value":          s.TotalValue.String(),
		"avg_book_value":       s.AvgBookValue.String(),
		"avg_percent_of_high":  s.AvgPercentOfHigh.String(),
		"highest_value":        s.HighestValue.String(),
		"total_purchase_value": optionalDecimal(s.TotalPurchaseValue),
		"potential_profit":     optionalDecimal(s.PotentialProfit),
		"generated_at":         formatTime(s.GeneratedAt),
	}
}

func subjectResultToMap(r snapshot.SubjectResult) map[string]interface{} {
	m := map[string]interface{}{
		"subject_id":   r.SubjectID.String(),
		"subject_kind": string(r.SubjectKind),
		"time_frame":   string(r.TimeFrame),
		"period_start": formatTime(r.PeriodStart),
		"error":        errString(r.Err),
		"snapshot_id":  nil,
	}
	if r.Snapshot != nil {
		m["snapshot_id"] = r.Snapshot.ID.String()
	}
	return m
}

func comparisonRowToMap(r comparison.Row) map[string]interface{} {
	return map[string]interface{}{
		"batch_id":            r.BatchID.String(),
		"batch_name":          r.BatchName,
		"has_snapshot":        r.HasSnapshot,
		"period_start":        optionalTime(r.PeriodStart),
		"total_books":         r.TotalBooks,
		"total_value":         r.TotalValue.String(),
		"avg_book_value":      r.AvgBookValue.String(),
		"avg_percent_of_high": r.AvgPercentOfHigh.String(),
		"green_count":         r.GreenCount,
		"yellow_count":        r.YellowCount,
		"red_count":           r.RedCount,
		"green_percent":       r.GreenPercent.String(),
		"yellow_percent":      r.YellowPercent.String(),
		"red_percent":         r.RedPercent.String(),
	}
}

func notificationToMap(n *domain.Notification) map[string]interface{} {
	return map[string]interface{}{
		"id":            n.ID.String(),
		"user_id":       n.UserID.String(),
		"alert_id":      n.AlertID.String(),
		"book_id":       n.BookID.String(),
		"title":         n.Title,
		"message":       n.Message,
		"current_price": n.CurrentPrice.String(),
		"target_price":  n.TargetPrice.String(),
		"read":          n.Read,
		"read_at":       optionalTime(n.ReadAt),
		"created_at":    formatTime(n.CreatedAt),
	}
}

func listOf[T any](items []T, convert func(T) map[string]interface{}) []interface{} {
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		out = append(out, convert(item))
	}
	return out
}

func subjectKindField(req *structpb.Struct, name string) (domain.SubjectKind, error) {
	s, err := stringField(req, name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return domain.SubjectKindUser, nil
	}
	kind, err := domain.ParseSubjectKind(s)
	if err != nil {
		return "", status.Error(codes.InvalidArgument, fmt.Sprint(err))
	}
	return kind, nil
}
