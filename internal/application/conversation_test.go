package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carcost-bot/internal/domain"
)

func testController(crm *fakeCRM, queue *fakeQueue) (*Controller, *fakeSessions, *RateKeeper) {
	sessions := newFakeSessions()
	keeper := NewRateKeeper(&fakeRateSource{v: 1350}, &fakeRateSource{v: 80}, &fakeRateSource{v: 16.2}, zap.NewNop())
	quoter := NewQuoter(&fakeCustoms{fees: domain.CustomsFees{ClearanceRub: 20000, DutyRub: 150000, RecyclingRub: 5200}},
		PricingConfig{FreightRub: 100000, BrokerRub: 100000})
	ctrl := NewController(sessions, crm, queue, quoter, keeper, zap.NewNop()).
		WithClock(fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)})
	return ctrl, sessions, keeper
}

func TestLeadFlow_HappyPath(t *testing.T) {
	t.Parallel()
	crm := &fakeCRM{}
	queue := &fakeQueue{}
	ctrl, sessions, _ := testController(crm, queue)
	ctx := context.Background()
	const chatID = int64(42)

	_, err := ctrl.StartLead(ctx, chatID)
	require.NoError(t, err)

	reply, handled, err := ctrl.Handle(ctx, chatID, "Иван Петров")
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, msgAskPhone, reply.Text)

	reply, _, err = ctrl.Handle(ctx, chatID, "+7 912 345-67-89")
	require.NoError(t, err)
	require.Equal(t, msgAskBudget, reply.Text)

	reply, _, err = ctrl.Handle(ctx, chatID, "2 500 000")
	require.NoError(t, err)
	require.Equal(t, msgAskLink, reply.Text)

	reply, _, err = ctrl.Handle(ctx, chatID, "https://fem.encar.com/cars/detail/39027097")
	require.NoError(t, err)
	require.True(t, reply.Done)
	require.Equal(t, msgLeadOK, reply.Text)

	require.Len(t, crm.sent, 1)
	lead := crm.sent[0]
	require.Equal(t, "Иван Петров", lead.Name)
	require.Equal(t, "+79123456789", lead.Phone)
	require.Equal(t, int64(2_500_000), lead.BudgetRub)
	require.Equal(t, "https://fem.encar.com/cars/detail/39027097", lead.ListingURL)
	require.NotEmpty(t, lead.ID)
	require.Empty(t, queue.leads, "successful submission must not hit the queue")

	_, ok, err := sessions.Get(ctx, chatID)
	require.NoError(t, err)
	require.False(t, ok, "session removed after submission")
}

func TestLeadFlow_InvalidPhoneDoesNotAdvance(t *testing.T) {
	t.Parallel()
	ctrl, sessions, _ := testController(&fakeCRM{}, &fakeQueue{})
	ctx := context.Background()
	const chatID = int64(7)

	_, err := ctrl.StartLead(ctx, chatID)
	require.NoError(t, err)
	_, _, err = ctrl.Handle(ctx, chatID, "Анна")
	require.NoError(t, err)

	for _, bad := range []string{"abc", "12345"} {
		reply, handled, err := ctrl.Handle(ctx, chatID, bad)
		require.NoError(t, err)
		require.True(t, handled)
		require.Equal(t, msgBadPhone, reply.Text)
		s, ok, _ := sessions.Get(ctx, chatID)
		require.True(t, ok)
		require.Equal(t, StepPhone, s.Step, "input %q must not advance the flow", bad)
	}

	reply, _, err := ctrl.Handle(ctx, chatID, "+79261234567")
	require.NoError(t, err)
	require.Equal(t, msgAskBudget, reply.Text)
}

func TestLeadFlow_CrmFailureQueuesLead(t *testing.T) {
	t.Parallel()
	crm := &fakeCRM{err: errors.New("502 from crm")}
	queue := &fakeQueue{}
	ctrl, _, _ := testController(crm, queue)
	ctx := context.Background()
	const chatID = int64(9)

	_, err := ctrl.StartLead(ctx, chatID)
	require.NoError(t, err)
	_, _, _ = ctrl.Handle(ctx, chatID, "Пётр")
	_, _, _ = ctrl.Handle(ctx, chatID, "+79991112233")
	_, _, _ = ctrl.Handle(ctx, chatID, "1800000")

	reply, _, err := ctrl.Handle(ctx, chatID, SkipLinkText)
	require.NoError(t, err)
	require.True(t, reply.Done)
	require.Equal(t, msgLeadQueue, reply.Text)

	require.Len(t, queue.leads, 1)
	require.Equal(t, domain.LeadStatusPending, queue.leads[0].Status)
	require.Empty(t, queue.leads[0].ListingURL)
}

func TestLeadFlow_Cancel(t *testing.T) {
	t.Parallel()
	ctrl, sessions, _ := testController(&fakeCRM{}, &fakeQueue{})
	ctx := context.Background()
	const chatID = int64(11)

	_, err := ctrl.StartLead(ctx, chatID)
	require.NoError(t, err)
	reply, err := ctrl.Cancel(ctx, chatID)
	require.NoError(t, err)
	require.True(t, reply.Done)

	_, ok, _ := sessions.Get(ctx, chatID)
	require.False(t, ok)
	_, handled, err := ctrl.Handle(ctx, chatID, "anything")
	require.NoError(t, err)
	require.False(t, handled)
}

func TestManualFlow_ProducesBreakdown(t *testing.T) {
	t.Parallel()
	ctrl, _, keeper := testController(&fakeCRM{}, &fakeQueue{})
	ctx := context.Background()
	require.NoError(t, keeper.Refresh(ctx))
	const chatID = int64(21)

	reply, err := ctrl.StartManual(ctx, chatID)
	require.NoError(t, err)
	require.Equal(t, ageOptions, reply.Options)

	reply, _, err = ctrl.Handle(ctx, chatID, domain.Age3To5.Label())
	require.NoError(t, err)
	require.Equal(t, msgAskVolume, reply.Text)

	// Out-of-range volume re-prompts.
	reply, _, err = ctrl.Handle(ctx, chatID, "20")
	require.NoError(t, err)
	require.Equal(t, msgBadVolume, reply.Text)

	reply, _, err = ctrl.Handle(ctx, chatID, "1998")
	require.NoError(t, err)
	require.Equal(t, msgAskPrice, reply.Text)

	reply, _, err = ctrl.Handle(ctx, chatID, "30000000")
	require.NoError(t, err)
	require.True(t, reply.Done)
	require.NotNil(t, reply.Breakdown)
	require.Equal(t, float64(2_152_960), reply.Breakdown.TotalRub)
	require.Equal(t, domain.Age3To5, reply.Breakdown.Age)
}

func TestManualFlow_RefetchesRatesPerQuote(t *testing.T) {
	t.Parallel()
	krw := &fakeRateSource{v: 1350}
	rub := &fakeRateSource{v: 80}
	keeper := NewRateKeeper(krw, rub, nil, zap.NewNop())
	quoter := NewQuoter(&fakeCustoms{fees: domain.CustomsFees{ClearanceRub: 20000, DutyRub: 150000, RecyclingRub: 5200}},
		PricingConfig{FreightRub: 100000, BrokerRub: 100000})
	ctrl := NewController(newFakeSessions(), &fakeCRM{}, &fakeQueue{}, quoter, keeper, zap.NewNop())
	ctx := context.Background()
	const chatID = int64(23)

	for want := 1; want <= 2; want++ {
		_, err := ctrl.StartManual(ctx, chatID)
		require.NoError(t, err)
		_, _, err = ctrl.Handle(ctx, chatID, domain.Age3To5.Label())
		require.NoError(t, err)
		_, _, err = ctrl.Handle(ctx, chatID, "2359")
		require.NoError(t, err)

		reply, _, err := ctrl.Handle(ctx, chatID, "30000000")
		require.NoError(t, err)
		require.NotNil(t, reply.Breakdown)
		require.Equal(t, want, krw.calls, "sources fetched once per quotation")
		require.Equal(t, want, rub.calls)
	}
}

func TestManualFlow_NoRates(t *testing.T) {
	t.Parallel()
	// Every source down and no previous snapshot: the quote is refused.
	down := errors.New("source down")
	keeper := NewRateKeeper(&fakeRateSource{err: down}, &fakeRateSource{err: down}, nil, zap.NewNop())
	ctrl := NewController(newFakeSessions(), &fakeCRM{}, &fakeQueue{},
		NewQuoter(&fakeCustoms{}, PricingConfig{}), keeper, zap.NewNop())
	ctx := context.Background()
	const chatID = int64(22)

	_, err := ctrl.StartManual(ctx, chatID)
	require.NoError(t, err)
	_, _, _ = ctrl.Handle(ctx, chatID, domain.AgeUnder3.Label())
	_, _, _ = ctrl.Handle(ctx, chatID, "1600")

	reply, _, err := ctrl.Handle(ctx, chatID, "20000000")
	require.NoError(t, err)
	require.True(t, reply.Done)
	require.Equal(t, msgNoRates, reply.Text)
}

func TestLeadRetrier_Run(t *testing.T) {
	t.Parallel()
	crm := &fakeCRM{}
	queue := &fakeQueue{leads: []domain.LeadDraft{
		{ID: "a", Name: "A", Phone: "+79990000001", Status: domain.LeadStatusPending},
		{ID: "b", Name: "B", Phone: "+79990000002", Status: domain.LeadStatusCompleted},
		{ID: "c", Name: "C", Phone: "+79990000003", Status: domain.LeadStatusPending},
	}}
	r := NewLeadRetrier(queue, crm, zap.NewNop())

	submitted, failed, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, submitted)
	require.Zero(t, failed)
	for _, l := range queue.leads {
		require.Equal(t, domain.LeadStatusCompleted, l.Status)
	}
}
