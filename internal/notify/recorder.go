package notify

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Recorder is a Mailer that keeps messages in memory instead of sending them.
// With Log set every message is also written to the log, which makes it
// usable as a development mail driver.
type Recorder struct {
	Log logrus.FieldLogger
	// Fail, when set, is consulted before recording; a non-nil result is
	// returned as the send error and the message is dropped.
	Fail func(Message) error

	mu   sync.Mutex
	sent []Message
}

func (r *Recorder) Send(ctx context.Context, msg Message) error {
	if r.Fail != nil {
		if err := r.Fail(msg); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.sent = append(r.sent, msg)
	r.mu.Unlock()

	if r.Log != nil {
		names := make([]string, 0, len(msg.Attachments))
		for _, a := range msg.Attachments {
			names = append(names, a.Filename)
		}
		r.Log.WithFields(logrus.Fields{
			"to":          msg.To,
			"subject":     msg.Subject,
			"attachments": names,
		}).Info("email recorded")
	}
	return nil
}

// Sent returns the recorded messages in send order.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}

// SentTo returns the recorded messages addressed to addr.
func (r *Recorder) SentTo(addr string) []Message {
	var out []Message
	for _, m := range r.Sent() {
		for _, to := range m.To {
			if to == addr {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
