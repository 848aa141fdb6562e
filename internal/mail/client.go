// Package mail defines the interface for transactional email delivery and
// provides an SMTP-backed implementation plus the receipt and admin-alert
// HTML templates.
package mail

import "context"

// Message is one outbound email. Body is always HTML.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender is the interface the HTTP layer uses to deliver email and to probe
// the transport for the health endpoint. Tests inject a stub that records
// calls without touching the network.
type Sender interface {
	// Send delivers one message. Callers decide whether a failure is fatal:
	// the customer receipt tolerates it, the admin alert is best-effort.
	Send(ctx context.Context, m Message) error

	// Verify performs a lightweight connectivity check against the transport
	// without sending anything. Used only by the health endpoint.
	Verify(ctx context.Context) error
}
