package models

import (
	"time"

	"github.com/google/uuid"
)

// PendingComment is a comment waiting for the next digest.
type PendingComment struct {
	ID          uuid.UUID
	AuthorName  string
	AuthorEmail string
	Text        string
	StepID      string
	SectionID   string
	DetailLevel string
	CreatedAt   time.Time
}

// Section groups the pending comments of one dashboard section.
type Section struct {
	ID       string
	Comments []PendingComment
}

// Recipient is a user subscribed to comment notifications.
type Recipient struct {
	Email string
	Name  string
}

// Message is one rendered digest mail.
type Message struct {
	From    string
	Bcc     []string
	Subject string
	HTML    string
	Text    string
}
