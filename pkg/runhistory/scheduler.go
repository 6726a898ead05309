package runhistory

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Polling cadences. The fast interval applies while the execution queue
// has waiting or active jobs for the scope.
const (
	FastPollInterval = 3 * time.Second
	SlowPollInterval = 5 * time.Second
)

// PollInterval chooses the refetch cadence from the queue occupancy.
func PollInterval(q QueueStatus) time.Duration {
	if q.Busy() {
		return FastPollInterval
	}

	return SlowPollInterval
}

// ShouldPoll reports whether live polling is still appropriate. Once
// more than one page has been accumulated the user is paging through
// history manually, and a live refresh would visually reorder or
// duplicate content, so polling suspends for that view.
func ShouldPoll(pageCount int) bool {
	return pageCount <= 1
}

// Poller drives a controller's refresh cycle at the scheduler-chosen
// cadence. The timer is re-armed after each pass so a queue going busy
// or idle takes effect on the next tick.
type Poller struct {
	log        logrus.FieldLogger
	controller *Controller
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewPoller creates a poller for the given controller.
func NewPoller(log logrus.FieldLogger, controller *Controller) *Poller {
	return &Poller{
		log:        log.WithField("component", "poller"),
		controller: controller,
		done:       make(chan struct{}),
	}
}

// Start launches the polling goroutine. The first refresh runs
// immediately so the view is populated without waiting a full interval.
func (p *Poller) Start(ctx context.Context) error {
	p.log.WithFields(logrus.Fields{
		"fast": FastPollInterval.String(),
		"slow": SlowPollInterval.String(),
	}).Info("Starting run-history poller")

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-timer.C:
				timer.Reset(p.pass(ctx))
			case <-p.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop signals the polling goroutine to stop and waits for it.
func (p *Poller) Stop() error {
	close(p.done)
	p.wg.Wait()

	p.log.Info("Run-history poller stopped")

	return nil
}

// pass runs one refresh cycle and returns the delay until the next one.
// When polling is suspended (manual paging in progress) the pass skips
// the refresh but keeps checking at the slow cadence so polling resumes
// once the view returns to a single page.
func (p *Poller) pass(ctx context.Context) time.Duration {
	if !ShouldPoll(p.controller.PageCount()) {
		return SlowPollInterval
	}

	if err := p.controller.Refresh(ctx); err != nil {
		p.log.WithError(err).Warn("Run-history refresh failed")

		return SlowPollInterval
	}

	return PollInterval(p.controller.Queue())
}
