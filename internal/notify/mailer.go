package notify

import "context"

// Attachment is a file carried by a Message.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Message is one outbound HTML email.
type Message struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers a single message. Implementations do not retry.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
