package application

import (
	"context"
	"time"

	"carcost-bot/internal/domain"
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeRateSource struct {
	v     float64
	err   error
	calls int
}

func (f *fakeRateSource) Rate(context.Context) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.v, nil
}

type fakeCustoms struct {
	fees    domain.CustomsFees
	err     error
	calls   int
	lastAge domain.AgeBucket
	lastCc  int
}

func (f *fakeCustoms) Calculate(_ context.Context, engineCc int, _ int64, age domain.AgeBucket, _ domain.EngineType) (domain.CustomsFees, error) {
	f.calls++
	f.lastAge, f.lastCc = age, engineCc
	if f.err != nil {
		return domain.CustomsFees{}, f.err
	}
	return f.fees, nil
}

type fakeCRM struct {
	err  error
	sent []domain.LeadDraft
}

func (f *fakeCRM) SendLead(_ context.Context, lead domain.LeadDraft) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, lead)
	return nil
}

type fakeQueue struct {
	leads     []domain.LeadDraft
	appendErr error
}

func (f *fakeQueue) Append(_ context.Context, lead domain.LeadDraft) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.leads = append(f.leads, lead)
	return nil
}

func (f *fakeQueue) ListPending(context.Context) ([]domain.LeadDraft, error) {
	var out []domain.LeadDraft
	for _, l := range f.leads {
		if l.Status == domain.LeadStatusPending {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeQueue) MarkCompleted(_ context.Context, id string, at time.Time) error {
	for i := range f.leads {
		if f.leads[i].ID == id {
			f.leads[i].Status = domain.LeadStatusCompleted
			f.leads[i].CompletedAt = &at
		}
	}
	return nil
}

type fakeSessions struct {
	store map[int64]Session
}

func newFakeSessions() *fakeSessions { return &fakeSessions{store: map[int64]Session{}} }

func (f *fakeSessions) Get(_ context.Context, chatID int64) (Session, bool, error) {
	s, ok := f.store[chatID]
	return s, ok, nil
}

func (f *fakeSessions) Put(_ context.Context, chatID int64, s Session) error {
	f.store[chatID] = s
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, chatID int64) error {
	delete(f.store, chatID)
	return nil
}
