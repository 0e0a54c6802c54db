// Package mail contains the mail-dispatch side of the signalering engine:
// the message model, the template catalogue, the source resolver and the
// transport implementations.
package mail

import (
	"context"

	"github.com/casewatch/casewatch/internal/subject"
)

// Address is a mail endpoint with an optional display name.
type Address struct {
	Name  string
	Email string
}

// Message is a fully resolved mail ready for transport. Subject and Body come
// from the template catalogue; rendering the merge sources into the body is
// the transport collaborator's concern, not ours.
type Message struct {
	From    Address
	To      Address
	Subject string
	Body    string
}

// Mailer dispatches a message with its ordered merge sources.
type Mailer interface {
	Send(ctx context.Context, msg Message, sources []subject.MergeSource) error
}
