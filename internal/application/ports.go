package application

import (
	"context"
	"time"

	"carcost-bot/internal/domain"
)

// RateSource produces one exchange rate. Implementations live under
// infrastructure/rates; each one talks to a single upstream quote source.
type RateSource interface {
	Rate(ctx context.Context) (float64, error)
}

type ListingFetcher interface {
	Fetch(ctx context.Context, id string) (domain.VehicleListing, error)
}

type CustomsCalculator interface {
	Calculate(ctx context.Context, engineCc int, priceKrw int64, age domain.AgeBucket, engine domain.EngineType) (domain.CustomsFees, error)
}

// LeadSender delivers a lead to the CRM.
type LeadSender interface {
	SendLead(ctx context.Context, lead domain.LeadDraft) error
}

// LeadQueue is the at-least-once buffer for leads that could not be
// delivered. Implementations: JSON file queue, Postgres repository.
type LeadQueue interface {
	Append(ctx context.Context, lead domain.LeadDraft) error
	ListPending(ctx context.Context) ([]domain.LeadDraft, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) error
}

// SessionStore keeps per-chat conversation state. Implementations must not
// leak state across chats.
type SessionStore interface {
	Get(ctx context.Context, chatID int64) (Session, bool, error)
	Put(ctx context.Context, chatID int64, s Session) error
	Delete(ctx context.Context, chatID int64) error
}

// Worker is a background processor that runs until the context is canceled.
type Worker interface {
	Start(ctx context.Context)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock used outside tests.
func SystemClock() Clock { return realClock{} }
