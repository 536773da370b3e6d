package gameroom

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warp/gameroom-engine/schedule"
)

// Notifier delivers operator alerts. The transport is outside this module.
type Notifier interface {
	Notify(ctx context.Context, r schedule.Reservation) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct {
	Logger   *zap.Logger
	Location *time.Location
}

func (n LogNotifier) Notify(_ context.Context, r schedule.Reservation) error {
	n.Logger.Info("new reservation",
		zap.String("summary", Summary(r, n.Location)),
		zap.String("id", string(r.ID)),
		zap.String("status", string(r.Status)),
		zap.Time("start", r.Interval.Start),
		zap.Time("end", r.Interval.End),
		zap.String("addons", r.Addons.Encode()),
		zap.Int64("price", r.Price),
		zap.String("customer", r.Customer.Name),
		zap.String("phone", r.Customer.Phone),
	)
	return nil
}

// Summary renders a reservation as a one-line operator note.
func Summary(r schedule.Reservation, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	iv := r.Interval.In(loc)
	line := fmt.Sprintf("#%s %s-%s %s %d",
		r.ID, iv.Start.Format("02.01 15:04"), iv.End.Format("15:04"), r.Status, r.Price)
	if r.Customer.Name != "" || r.Customer.Phone != "" {
		line += fmt.Sprintf(" %s / %s", r.Customer.Name, r.Customer.Phone)
	}
	if r.Note != "" {
		line += " (" + r.Note + ")"
	}
	return line
}
