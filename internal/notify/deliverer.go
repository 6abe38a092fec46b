package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Handler processes one submission.
type Handler interface {
	Handle(ctx context.Context, s Submission) error
}

// Deliverer renders and sends both lead emails. Each send gets its own
// timeout and a failure of one does not skip the other.
type Deliverer struct {
	Sender            Sender
	InternalRecipient string
	SendTimeout       time.Duration
	Log               zerolog.Logger
}

// Handle implements Handler. The returned error joins every send failure;
// each one has already been logged and counted.
func (d *Deliverer) Handle(ctx context.Context, s Submission) error {
	var errs []error
	for _, m := range []Message{ProspectMessage(s), InternalMessage(s, d.InternalRecipient)} {
		if err := d.send(ctx, m); err != nil {
			d.Log.Error().Err(err).
				Uint("lead_id", s.LeadID).
				Str("kind", string(m.Kind)).
				Msg("notification failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Deliverer) send(ctx context.Context, m Message) error {
	if d.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.SendTimeout)
		defer cancel()
	}
	err := d.Sender.Send(ctx, m)
	outcome := outcomeSent
	if err != nil {
		outcome = outcomeFailed
	}
	notifications.WithLabelValues(string(m.Kind), outcome).Inc()
	return err
}
