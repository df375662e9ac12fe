package application

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carcost-bot/internal/domain"
)

// Step is a conversation state. Sessions are keyed per chat; the store
// guarantees no state crosses between chats.
type Step string

const (
	StepIdle   Step = "idle"
	StepName   Step = "name"
	StepPhone  Step = "phone"
	StepBudget Step = "budget"
	StepLink   Step = "link"

	StepManualAge    Step = "manual_age"
	StepManualVolume Step = "manual_volume"
	StepManualPrice  Step = "manual_price"
)

// Session is the per-chat conversation state persisted in the SessionStore.
type Session struct {
	Step   Step             `json:"step"`
	Lead   domain.LeadDraft `json:"lead"`
	Manual ManualEntry      `json:"manual"`
}

type ManualEntry struct {
	Age      domain.AgeBucket `json:"age,omitempty"`
	EngineCc int              `json:"engine_cc,omitempty"`
}

// Reply is what the transport should show the user after one dispatch.
type Reply struct {
	Text      string
	Options   []string // suggested keyboard buttons, empty for free text
	Breakdown *domain.CostBreakdown
	Done      bool // the flow finished, session removed
}

const (
	SkipLinkText = "Нет"

	msgAskName   = "Как вас зовут? Напишите ФИО."
	msgAskPhone  = "Оставьте, пожалуйста, номер телефона в международном формате."
	msgBadPhone  = "Не похоже на номер телефона. Отправьте его в формате +79991234567."
	msgAskBudget = "Какой у вас бюджет в рублях?"
	msgBadBudget = "Пожалуйста, укажите бюджет числом, например 2500000."
	msgAskLink   = "Если у вас уже есть ссылка на автомобиль с encar.com — отправьте её. Если нет, нажмите «Нет»."
	msgBadLink   = "Это не похоже на ссылку с encar.com. Отправьте ссылку или нажмите «Нет»."
	msgLeadOK    = "Спасибо! Заявка принята, менеджер свяжется с вами в ближайшее время."
	msgLeadQueue = "Спасибо! Заявка сохранена. CRM сейчас недоступна, поэтому менеджер получит её чуть позже."
	msgCancelled = "Хорошо, отменил. Возвращаю в главное меню."

	msgAskAge    = "Выберите возраст автомобиля."
	msgAskVolume = "Укажите объём двигателя в куб. см, например 1998."
	msgBadVolume = "Объём двигателя должен быть числом от 50 до 10000 куб. см."
	msgAskPrice  = "Укажите стоимость автомобиля в вонах (KRW), например 30000000."
	msgBadPrice  = "Стоимость должна быть положительным числом в вонах."
	msgNoRates   = "Не удалось получить актуальные курсы валют. Попробуйте позже."
	msgNoTariff  = "Сервис расчёта таможенных платежей недоступен. Попробуйте позже или напишите менеджеру."
)

var ageOptions = []string{
	domain.AgeUnder3.Label(),
	domain.Age3To5.Label(),
	domain.Age5To7.Label(),
	domain.AgeOver7.Label(),
}

// Controller drives the two multi-step flows: lead collection and the
// manual quotation. It owns no transport concerns; the Telegram adapter
// renders Reply values.
type Controller struct {
	sessions SessionStore
	crm      LeadSender
	queue    LeadQueue
	quoter   *Quoter
	rates    *RateKeeper
	clock    Clock
	log      *zap.Logger
}

func NewController(sessions SessionStore, crm LeadSender, queue LeadQueue, quoter *Quoter, rates *RateKeeper, log *zap.Logger) *Controller {
	return &Controller{
		sessions: sessions,
		crm:      crm,
		queue:    queue,
		quoter:   quoter,
		rates:    rates,
		clock:    realClock{},
		log:      log,
	}
}

// WithClock overrides the controller clock, for tests.
func (c *Controller) WithClock(clock Clock) *Controller {
	c.clock = clock
	return c
}

func (c *Controller) StartLead(ctx context.Context, chatID int64) (Reply, error) {
	s := Session{
		Step: StepName,
		Lead: domain.LeadDraft{
			ID:        uuid.NewString(),
			ChatID:    chatID,
			Status:    domain.LeadStatusPending,
			CreatedAt: c.clock.Now(),
		},
	}
	if err := c.sessions.Put(ctx, chatID, s); err != nil {
		return Reply{}, err
	}
	return Reply{Text: msgAskName}, nil
}

func (c *Controller) StartManual(ctx context.Context, chatID int64) (Reply, error) {
	if err := c.sessions.Put(ctx, chatID, Session{Step: StepManualAge}); err != nil {
		return Reply{}, err
	}
	return Reply{Text: msgAskAge, Options: ageOptions}, nil
}

func (c *Controller) Cancel(ctx context.Context, chatID int64) (Reply, error) {
	if err := c.sessions.Delete(ctx, chatID); err != nil {
		return Reply{}, err
	}
	return Reply{Text: msgCancelled, Done: true}, nil
}

// Handle dispatches one user message against the chat's session. The second
// return value reports whether a flow consumed the message; the transport
// falls back to its menu handling otherwise.
func (c *Controller) Handle(ctx context.Context, chatID int64, text string) (Reply, bool, error) {
	s, ok, err := c.sessions.Get(ctx, chatID)
	if err != nil {
		return Reply{}, false, err
	}
	if !ok || s.Step == StepIdle {
		return Reply{}, false, nil
	}

	text = strings.TrimSpace(text)
	var reply Reply
	switch s.Step {
	case StepName:
		reply, err = c.collectName(ctx, chatID, s, text)
	case StepPhone:
		reply, err = c.collectPhone(ctx, chatID, s, text)
	case StepBudget:
		reply, err = c.collectBudget(ctx, chatID, s, text)
	case StepLink:
		reply, err = c.collectLink(ctx, chatID, s, text)
	case StepManualAge:
		reply, err = c.collectAge(ctx, chatID, s, text)
	case StepManualVolume:
		reply, err = c.collectVolume(ctx, chatID, s, text)
	case StepManualPrice:
		reply, err = c.collectPrice(ctx, chatID, s, text)
	default:
		return Reply{}, false, nil
	}
	return reply, true, err
}

func (c *Controller) advance(ctx context.Context, chatID int64, s Session, next Step, reply Reply) (Reply, error) {
	s.Step = next
	if err := c.sessions.Put(ctx, chatID, s); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

func (c *Controller) collectName(ctx context.Context, chatID int64, s Session, text string) (Reply, error) {
	if text == "" {
		return Reply{Text: msgAskName}, nil
	}
	s.Lead.Name = text
	return c.advance(ctx, chatID, s, StepPhone, Reply{Text: msgAskPhone})
}

func (c *Controller) collectPhone(ctx context.Context, chatID int64, s Session, text string) (Reply, error) {
	phone, err := domain.NormalizePhone(text)
	if err != nil {
		// Invalid input re-prompts the same step without advancing.
		return Reply{Text: msgBadPhone}, nil
	}
	s.Lead.Phone = phone
	return c.advance(ctx, chatID, s, StepBudget, Reply{Text: msgAskBudget})
}

func (c *Controller) collectBudget(ctx context.Context, chatID int64, s Session, text string) (Reply, error) {
	budget, err := parseAmount(text)
	if err != nil || budget <= 0 {
		return Reply{Text: msgBadBudget}, nil
	}
	s.Lead.BudgetRub = budget
	return c.advance(ctx, chatID, s, StepLink, Reply{Text: msgAskLink, Options: []string{SkipLinkText}})
}

func (c *Controller) collectLink(ctx context.Context, chatID int64, s Session, text string) (Reply, error) {
	switch {
	case strings.EqualFold(text, SkipLinkText) || strings.EqualFold(text, "нет"):
		s.Lead.ListingURL = ""
	case domain.IsListingLink(text):
		s.Lead.ListingURL = text
	default:
		return Reply{Text: msgBadLink, Options: []string{SkipLinkText}}, nil
	}
	return c.submit(ctx, chatID, s.Lead)
}

func (c *Controller) submit(ctx context.Context, chatID int64, lead domain.LeadDraft) (Reply, error) {
	defer func() {
		if err := c.sessions.Delete(ctx, chatID); err != nil {
			c.log.Warn("session delete failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}()

	if err := c.crm.SendLead(ctx, lead); err != nil {
		c.log.Error("crm submission failed, queueing lead",
			zap.String("lead_id", lead.ID), zap.Error(err))
		lead.Status = domain.LeadStatusPending
		if qErr := c.queue.Append(ctx, lead); qErr != nil {
			// Both the CRM and the queue failed; nothing held the data.
			return Reply{}, errors.Join(err, qErr)
		}
		return Reply{Text: msgLeadQueue, Done: true}, nil
	}
	c.log.Info("lead submitted", zap.String("lead_id", lead.ID))
	return Reply{Text: msgLeadOK, Done: true}, nil
}

func (c *Controller) collectAge(ctx context.Context, chatID int64, s Session, text string) (Reply, error) {
	age, ok := ageFromText(text)
	if !ok {
		return Reply{Text: msgAskAge, Options: ageOptions}, nil
	}
	s.Manual.Age = age
	return c.advance(ctx, chatID, s, StepManualVolume, Reply{Text: msgAskVolume})
}

func (c *Controller) collectVolume(ctx context.Context, chatID int64, s Session, text string) (Reply, error) {
	cc, err := parseAmount(text)
	if err != nil || cc < 50 || cc > 10000 {
		return Reply{Text: msgBadVolume}, nil
	}
	s.Manual.EngineCc = int(cc)
	return c.advance(ctx, chatID, s, StepManualPrice, Reply{Text: msgAskPrice})
}

func (c *Controller) collectPrice(ctx context.Context, chatID int64, s Session, text string) (Reply, error) {
	price, err := parseAmount(text)
	if err != nil || price <= 0 {
		return Reply{Text: msgBadPrice}, nil
	}

	in := QuoteInput{
		PriceKrw: price,
		EngineCc: s.Manual.EngineCc,
		Age:      s.Manual.Age,
		Engine:   domain.EngineGasoline,
	}
	breakdown, err := c.quoter.Quote(ctx, in, c.rates.Fresh(ctx))
	switch {
	case errors.Is(err, domain.ErrRateUnavailable):
		_ = c.sessions.Delete(ctx, chatID)
		return Reply{Text: msgNoRates, Done: true}, nil
	case errors.Is(err, domain.ErrTariffUnavailable):
		_ = c.sessions.Delete(ctx, chatID)
		return Reply{Text: msgNoTariff, Done: true}, nil
	case err != nil:
		return Reply{}, err
	}

	if err := c.sessions.Delete(ctx, chatID); err != nil {
		c.log.Warn("session delete failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return Reply{Breakdown: &breakdown, Done: true}, nil
}

func ageFromText(text string) (domain.AgeBucket, bool) {
	for _, a := range []domain.AgeBucket{domain.AgeUnder3, domain.Age3To5, domain.Age5To7, domain.AgeOver7} {
		if strings.EqualFold(text, a.Label()) || text == string(a) {
			return a, true
		}
	}
	return "", false
}

// parseAmount reads a positive integer, tolerating the thousand separators
// people paste from listings.
func parseAmount(text string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', ',', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(text))
	return strconv.ParseInt(cleaned, 10, 64)
}
