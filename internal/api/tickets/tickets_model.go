package tickets

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen    Status = "open"
	StatusStalled Status = "stalled"
	StatusClosed  Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusStalled, StatusClosed:
		return true
	}
	return false
}

type Ticket struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title" example:"Fibre outage"`
	Description string    `json:"description" example:"No signal since 9am"`
	Status      Status    `json:"status" example:"open"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateTicketRequest defaults Status to open.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status,omitempty"`
}

// UpdateTicketRequest holds the fields to change. Nil fields are left as is.
type UpdateTicketRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

func (u UpdateTicketRequest) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type ListParams struct {
	// Title is a case-insensitive substring filter.
	Title  string
	Status Status
	Limit  int
}
