// Package stats derives public order statistics. Only orders whose payment
// reached a money received status are ever counted.
package stats

import (
	"context"
	"sort"
	"time"

	"github.com/appetiteclub/kiosk/pkg/enums/paymentstatus"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
)

// Query selects orders by payment status and creation time. From is
// inclusive, To exclusive; zero values leave the range open.
type Query struct {
	Statuses []string
	From     time.Time
	To       time.Time
}

func (q Query) Contains(t time.Time) bool {
	if !q.From.IsZero() && t.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !t.Before(q.To) {
		return false
	}
	return true
}

type ActivityCount struct {
	ActivityName string `json:"activityName"`
	Count        int64  `json:"count"`
}

// DayCount buckets by UTC calendar day, formatted 2006-01-02.
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// Counter runs the queries against persisted orders. Statuses are already
// restricted when a Counter is called.
type Counter interface {
	Count(ctx context.Context, q Query) (int64, error)
	CountByActivity(ctx context.Context, q Query) ([]ActivityCount, error)
	CountByDay(ctx context.Context, q Query) ([]DayCount, error)
}

type Service struct {
	counter Counter
	logger  core.Logger
}

func NewService(counter Counter, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Service{counter: counter, logger: logger.With("component", "StatsService")}
}

// CountByStatus counts orders paid with one of statuses in the range.
func (s *Service) CountByStatus(ctx context.Context, q Query) (int64, error) {
	q, ok := restrict(q)
	if !ok {
		return 0, nil
	}
	return s.counter.Count(ctx, q)
}

// CountByActivity is sorted by count descending, then activity name.
func (s *Service) CountByActivity(ctx context.Context, q Query) ([]ActivityCount, error) {
	q, ok := restrict(q)
	if !ok {
		return []ActivityCount{}, nil
	}
	list, err := s.counter.CountByActivity(ctx, q)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].ActivityName < list[j].ActivityName
	})
	return list, nil
}

// CountByDay is sorted by day ascending.
func (s *Service) CountByDay(ctx context.Context, q Query) ([]DayCount, error) {
	q, ok := restrict(q)
	if !ok {
		return []DayCount{}, nil
	}
	list, err := s.counter.CountByDay(ctx, q)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Day < list[j].Day })
	return list, nil
}

// restrict intersects the requested statuses with the money received set.
// No requested statuses means all of them. ok is false when nothing is left.
func restrict(q Query) (Query, bool) {
	allowed := make([]string, 0, len(paymentstatus.MoneyReceived))
	if len(q.Statuses) == 0 {
		for _, s := range paymentstatus.MoneyReceived {
			allowed = append(allowed, s.Code())
		}
	} else {
		seen := make(map[string]bool)
		for _, s := range q.Statuses {
			if paymentstatus.IsMoneyReceived(s) && !seen[s] {
				seen[s] = true
				allowed = append(allowed, s)
			}
		}
	}
	q.Statuses = allowed
	return q, len(allowed) > 0
}
