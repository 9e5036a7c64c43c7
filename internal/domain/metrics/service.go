package metrics

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/validate"
)

const maxNoteLen = 1000

type Service struct {
	repo   MetricRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo MetricRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "metrics").Logger(),
		now:    time.Now,
	}
}

// Record validates and appends a measurement stamped with the server clock.
// An empty unit means the type's canonical unit.
func (s *Service) Record(ctx context.Context, userID uuid.UUID, metricType MetricType, value float64, unit, note string) (*HealthMetric, error) {
	if !metricType.Valid() {
		return nil, validate.Errorf("metric_type", "unknown metric type %q", metricType)
	}
	unit, err := metricType.checkValue(value, unit)
	if err != nil {
		return nil, err
	}
	note, err = validate.OptionalText("note", note, maxNoteLen)
	if err != nil {
		return nil, err
	}

	m := &HealthMetric{
		UserID:     userID,
		MetricType: metricType,
		Value:      value,
		Unit:       unit,
		RecordedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if note != "" {
		m.Note = &note
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("user_id", userID.String()).Str("metric_type", string(metricType)).Msg("metric recorded")
	return m, nil
}

// Query returns the user's measurements in range, oldest first. An empty
// metricType selects every type.
func (s *Service) Query(ctx context.Context, userID uuid.UUID, metricType MetricType, r TimeRange) ([]*HealthMetric, error) {
	if metricType != "" && !metricType.Valid() {
		return nil, validate.Errorf("metric_type", "unknown metric type %q", metricType)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	items, err := s.repo.Query(ctx, userID, metricType, r)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*HealthMetric{}
	}
	slices.SortStableFunc(items, func(a, b *HealthMetric) int {
		if a.MetricType != b.MetricType {
			if a.MetricType < b.MetricType {
				return -1
			}
			return 1
		}
		return a.RecordedAt.Compare(b.RecordedAt)
	})
	return items, nil
}

// Summarize aggregates exactly the rows Query returns. Mixed units are
// converted to the canonical unit first.
func (s *Service) Summarize(ctx context.Context, userID uuid.UUID, metricType MetricType, r TimeRange) (*Summary, error) {
	if !metricType.Valid() {
		return nil, validate.Errorf("metric_type", "unknown metric type %q", metricType)
	}
	items, err := s.Query(ctx, userID, metricType, r)
	if err != nil {
		return nil, err
	}
	return summarize(metricType, items, r), nil
}

func summarize(metricType MetricType, items []*HealthMetric, r TimeRange) *Summary {
	sum := &Summary{MetricType: metricType, Count: len(items), Unit: metricType.CanonicalUnit(), From: r.From, To: r.To}
	if len(items) == 0 {
		return sum
	}

	mixed := false
	for _, m := range items[1:] {
		if m.Unit != items[0].Unit {
			mixed = true
			break
		}
	}
	value := func(m *HealthMetric) float64 { return m.Value }
	if mixed {
		value = func(m *HealthMetric) float64 { return metricType.canonicalValue(m.Value, m.Unit) }
	} else {
		sum.Unit = items[0].Unit
	}

	latest := value(items[len(items)-1])
	lo, hi, total := value(items[0]), value(items[0]), 0.0
	for _, m := range items {
		v := value(m)
		total += v
		lo = min(lo, v)
		hi = max(hi, v)
	}
	avg := total / float64(len(items))

	sum.Latest, sum.Average, sum.Min, sum.Max = &latest, &avg, &lo, &hi
	return sum
}

// Types lists the distinct metric types the user has recorded.
func (s *Service) Types(ctx context.Context, userID uuid.UUID) ([]MetricType, error) {
	types, err := s.repo.Types(ctx, userID)
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []MetricType{}
	}
	return types, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID.String()).Str("metric_id", id.String()).Msg("metric deleted")
	return nil
}

// byType splits rows from an all-types query, preserving order.
func byType(items []*HealthMetric) (map[MetricType][]*HealthMetric, []MetricType) {
	groups := make(map[MetricType][]*HealthMetric)
	var order []MetricType
	for _, t := range AllTypes {
		for _, m := range items {
			if m.MetricType == t {
				groups[t] = append(groups[t], m)
			}
		}
		if len(groups[t]) > 0 {
			order = append(order, t)
		}
	}
	return groups, order
}

func formatRange(r TimeRange) string {
	from, to := "beginning", "now"
	if r.From != nil {
		from = r.From.UTC().Format(time.RFC3339)
	}
	if r.To != nil {
		to = r.To.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s to %s", from, to)
}
