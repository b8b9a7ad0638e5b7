// Package email delivers transactional mail for the lending platform:
// account verification links and loan lifecycle notices.
package email

import "context"

// Sender delivers a plain-text email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
