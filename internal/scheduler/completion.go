// Package scheduler drives the time-based reservation lifecycle: once a
// session's scheduled end has passed, its confirmed reservations are
// marked completed.  The engine does the transitions; this package only
// supplies the clock signal.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/bookably/session-reservation/internal/booking"
)

// StartCompletionJob schedules a periodic sweep that completes confirmed
// reservations on ended sessions.  The returned scheduler should be shut
// down on server exit.
func StartCompletionJob(engine *booking.Engine, every time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() { runSweep(engine) }),
	)
	if err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}

func runSweep(engine *booking.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := engine.CompleteDueReservations(ctx)
	if err != nil {
		log.Printf("completion-sweep: %v", err)
		return
	}
	if n > 0 {
		log.Printf("completion-sweep: completed %d reservations", n)
	}
}
