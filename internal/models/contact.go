package models

import "time"

// ContactStatus tracks the inbox lifecycle of a submission.
type ContactStatus string

const (
	ContactUnread  ContactStatus = "unread"
	ContactRead    ContactStatus = "read"
	ContactReplied ContactStatus = "replied"
)

// ValidContactStatus reports whether the raw value is a known status.
func ValidContactStatus(raw string) bool {
	switch ContactStatus(raw) {
	case ContactUnread, ContactRead, ContactReplied:
		return true
	}
	return false
}

// Contact is a contact-form submission stored in the contacts table.
type Contact struct {
	ID           string        `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	Email        string        `db:"email" json:"email"`
	Subject      string        `db:"subject" json:"subject"`
	Message      string        `db:"message" json:"message"`
	Status       ContactStatus `db:"status" json:"status"`
	IPAddress    string        `db:"ip_address" json:"-"`
	UserAgent    string        `db:"user_agent" json:"-"`
	Referrer     string        `db:"referrer" json:"-"`
	ReplyMessage string        `db:"reply_message" json:"reply_message,omitempty"`
	RepliedAt    *time.Time    `db:"replied_at" json:"replied_at,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// CreateContactRequest is the public contact-form payload.
type CreateContactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required"`

	IP        string `json:"-"`
	UserAgent string `json:"-"`
	Referrer  string `json:"-"`
}

// UpdateContactRequest updates inbox status and optional reply text.
type UpdateContactRequest struct {
	Status       string `json:"status" validate:"required"`
	ReplyMessage string `json:"reply_message"`
}

// ContactFilter captures list criteria for the admin inbox.
type ContactFilter struct {
	Status  string
	Search  string
	Page    int
	PerPage int
}

// ContactList is the admin inbox page plus aggregate counters.
type ContactList struct {
	Contacts    []Contact `json:"contacts"`
	Total       int       `json:"total"`
	Page        int       `json:"page"`
	PerPage     int       `json:"per_page"`
	TotalPages  int       `json:"total_pages"`
	UnreadCount int       `json:"unread_count"`
}
