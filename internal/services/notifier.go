package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/warden/pkg/logger"
)

// Notifier delivers best-effort emails in the background. Failures are
// logged and never reach the caller.
type Notifier struct {
	mailer  Mailer
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewNotifier(mailer Mailer, log *slog.Logger, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Notifier{mailer: mailer, logger: log, timeout: timeout}
}

// Notify queues msg for delivery and returns immediately.
func (n *Notifier) Notify(msg Message) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.mailer.Send(ctx, msg); err != nil {
			n.logger.Warn("notification email failed",
				slog.String("email", logger.SanitizedEmail(msg.To)),
				slog.String("subject", msg.Subject),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until queued notifications finish or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
