// Package notify delivers the two emails sent for every new lead: an
// acknowledgement to the prospect and a heads-up to the practice inbox.
//
// Delivery is best effort. Submissions are queued without blocking the
// request path, failures are logged and counted, and nothing is retried.
package notify

import (
	"context"
	"fmt"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// Kind identifies which of the two lead emails a Message is.
type Kind string

const (
	KindProspect Kind = "prospect"
	KindInternal Kind = "internal"
)

// Message is a plain-text email.
type Message struct {
	Kind    Kind
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Submission is the part of a lead needed to render its notifications.
type Submission struct {
	LeadID    uint   `json:"lead_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// SubmissionFromLead copies the notification fields out of l.
func SubmissionFromLead(l *domain.Lead) Submission {
	return Submission{
		LeadID:    l.ID,
		FirstName: l.FirstName,
		LastName:  l.LastName,
		Email:     l.Email,
	}
}

const (
	prospectSubject = "Thank you for your submission"
	internalSubject = "New Lead Submitted"
)

// ProspectMessage renders the acknowledgement sent to the prospect.
func ProspectMessage(s Submission) Message {
	return Message{
		Kind:    KindProspect,
		To:      s.Email,
		Subject: prospectSubject,
		Body:    fmt.Sprintf("Dear %s,\n\nThank you for submitting your details. We will be in touch soon.", s.FirstName),
	}
}

// InternalMessage renders the notice sent to the practice inbox.
func InternalMessage(s Submission, recipient string) Message {
	return Message{
		Kind:    KindInternal,
		To:      recipient,
		Subject: internalSubject,
		Body:    fmt.Sprintf("A new lead has been submitted by %s %s.", s.FirstName, s.LastName),
	}
}
