package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type LeadStatus string

const (
	LeadStatusPending   LeadStatus = "pending"
	LeadStatusCompleted LeadStatus = "completed"
)

// LeadDraft is a purchase inquiry collected step by step in the chat flow.
// It terminates either submitted to the CRM or parked in the retry queue
// with status pending.
type LeadDraft struct {
	ID          string     `json:"id"`
	ChatID      int64      `json:"chat_id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	BudgetRub   int64      `json:"budget"`
	ListingURL  string     `json:"car_link,omitempty"`
	Status      LeadStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

var phoneDigitsRe = regexp.MustCompile(`^\+?\d{10,15}$`)

// NormalizePhone strips common separators and checks international-format
// plausibility. It does not verify the number exists.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if !phoneDigitsRe.MatchString(cleaned) {
		return "", fmt.Errorf("%w: phone %q is not a plausible number", ErrValidation, raw)
	}
	return cleaned, nil
}
