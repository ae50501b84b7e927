package tekio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrLeadNotFound = errors.New("lead not found")
	ErrInvalidLead  = errors.New("lead rejected by store constraints")
)

// Language is the language a lead asked to be contacted in.
type Language string

const (
	LanguageFR Language = "FR"
	LanguageNL Language = "NL"
	LanguageEN Language = "EN"
)

// Status is the position of a lead in the sales pipeline. Any status may follow any other.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusProposal  Status = "proposal"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
)

// Statuses lists every known status in pipeline order.
var Statuses = []Status{StatusNew, StatusContacted, StatusProposal, StatusWon, StatusLost}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

type Lead struct {
	ID              string    `json:"id" db:"id"`
	CompanyName     *string   `json:"company_name" db:"company_name"`
	ContactName     *string   `json:"contact_name" db:"contact_name"`
	Email           string    `json:"email" db:"email"`
	Phone           *string   `json:"phone" db:"phone"`
	Language        Language  `json:"language" db:"language"`
	Source          string    `json:"source" db:"source"`
	NbUsersEstimate *string   `json:"nb_users_estimate" db:"nb_users_estimate"`
	Message         *string   `json:"message" db:"message"`
	Notes           *string   `json:"notes" db:"notes"`
	Status          Status    `json:"status" db:"status"`
	AISuggestion    *string   `json:"ai_suggestion" db:"ai_suggestion"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// NewLead is what a marketing form submits. It deliberately carries no status.
type NewLead struct {
	CompanyName     *string  `json:"company_name,omitempty"`
	ContactName     *string  `json:"contact_name,omitempty"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           *string  `json:"phone,omitempty"`
	Language        Language `json:"language" validate:"required,oneof=FR NL EN"`
	Source          string   `json:"source" validate:"required"`
	NbUsersEstimate *string  `json:"nb_users_estimate,omitempty"`
	Message         *string  `json:"message,omitempty"`
}

// LeadUpdate holds the operator-editable fields. Nil fields are left untouched.
type LeadUpdate struct {
	Status       *Status
	Notes        *string
	AISuggestion *string
}

// Empty reports whether the update would change nothing.
func (u LeadUpdate) Empty() bool {
	return u.Status == nil && u.Notes == nil && u.AISuggestion == nil
}

type LeadFilter struct {
	Status *Status
}

// StoreError wraps every failure returned by a LeadStore.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

type LeadStore interface {
	Create(ctx context.Context, newLead NewLead) (Lead, error)
	QueryByID(ctx context.Context, id string) (Lead, error)
	Query(ctx context.Context, filter LeadFilter) ([]Lead, error)
	Update(ctx context.Context, id string, update LeadUpdate) (Lead, error)
}
