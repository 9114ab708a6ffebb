package stats

import (
	"context"

	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/order"
)

// StoreCounter counts by scanning the order store. It serves the in-memory
// mode; the Mongo counter aggregates server side.
type StoreCounter struct {
	orders *entity.Store[order.Order]
}

func NewStoreCounter(orders *entity.Store[order.Order]) *StoreCounter {
	return &StoreCounter{orders: orders}
}

func (c *StoreCounter) Count(ctx context.Context, q Query) (int64, error) {
	list, err := c.scan(ctx, q)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (c *StoreCounter) CountByActivity(ctx context.Context, q Query) ([]ActivityCount, error) {
	list, err := c.scan(ctx, q)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for _, o := range list {
		counts[o.ActivityName]++
	}
	out := make([]ActivityCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, ActivityCount{ActivityName: name, Count: n})
	}
	return out, nil
}

func (c *StoreCounter) CountByDay(ctx context.Context, q Query) ([]DayCount, error) {
	list, err := c.scan(ctx, q)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for _, o := range list {
		counts[o.CreatedAt.UTC().Format("2006-01-02")]++
	}
	out := make([]DayCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, DayCount{Day: day, Count: n})
	}
	return out, nil
}

func (c *StoreCounter) scan(ctx context.Context, q Query) ([]*order.Order, error) {
	list, err := c.orders.List(ctx, entity.Fields{"payment.status": entity.In(q.Statuses...)})
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, o := range list {
		if q.Contains(o.CreatedAt) {
			out = append(out, o)
		}
	}
	return out, nil
}
