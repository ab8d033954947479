package notify

import (
	"context"
	"log"
	"time"
)

// sendTimeout is the max time allowed for a single async send, so a slow
// provider cannot hold a dispatch goroutine open indefinitely.
const sendTimeout = 15 * time.Second

// Sender sends one OTP email.
type Sender interface {
	SendOTP(ctx context.Context, email, name, code string) error
}

// Dispatcher sends OTP emails fire-and-forget. Delivery failure is logged and
// never surfaced to the workflow that issued the OTP: the code is already
// persisted and valid regardless of delivery outcome.
type Dispatcher struct {
	sender Sender
}

// NewDispatcher returns a Dispatcher wrapping the given sender.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// SendOTPAsync sends in a goroutine with a bounded timeout so the caller is
// not blocked. Uses context.Background() so request cancellation does not
// abort an in-flight send. No retry.
func (d *Dispatcher) SendOTPAsync(email, name, code string) {
	if d == nil || d.sender == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := d.sender.SendOTP(ctx, email, name, code); err != nil {
			log.Printf("notify: OTP email to %s failed: %v", email, err)
			return
		}
		log.Printf("notify: OTP email sent to %s", email)
	}()
}
