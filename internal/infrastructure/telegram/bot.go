package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"carcost-bot/internal/application"
	"carcost-bot/internal/domain"
	"carcost-bot/internal/infrastructure/encar"
)

const (
	btnCalculate = "Расчёт Автомобиля"
	btnManual    = "Расчёт по параметрам"
	btnLead      = "Оставить заявку"
	btnManager   = "Написать менеджеру"
	btnAbout     = "О нас"
	btnChannel   = "Telegram-канал"
	btnCancel    = "Отмена"

	cbCheckSubscription = "check_subscription"
	cbTechnicalReport   = "technical_report"
	cbCalculateAnother  = "calculate_another"

	msgAskListingLink = "Пожалуйста, введите ссылку на автомобиль с сайта www.encar.com:"
	msgProcessing     = "Обрабатываю данные. Пожалуйста подождите ⏳"
	msgListingFailed  = "🚫 Произошла ошибка при получении данных. Проверьте ссылку и попробуйте снова."
	msgRatesDown      = "Не удалось получить актуальные курсы валют. Попробуйте позже."
	msgTariffDown     = "Сервис расчёта таможенных платежей недоступен. Попробуйте позже или напишите менеджеру."
	msgUnknownInput   = "Пожалуйста, введите корректную ссылку на автомобиль с сайта www.encar.com или выберите действие из меню."
	msgAboutCompany   = "Мы экспортная компания из Южной Кореи.\nСпециализируемся на поставках автомобилей в страны СНГ.\n\n• Надежность и скорость доставки.\n• Индивидуальный подход к каждому клиенту.\n• Полное сопровождение сделки."
)

// lastListing remembers per chat which vehicle the insurance callback
// should report on.
type lastListing struct {
	ID        string
	VehicleID int64
	VehicleNo string
}

// Bot is the long-polling Telegram transport. All conversation state lives
// in the controller's session store; the bot keeps only the last quoted
// listing per chat for the insurance report button.
type Bot struct {
	api     *tgbotapi.BotAPI
	ctrl    *application.Controller
	fetcher application.ListingFetcher
	quoter  *application.Quoter
	rates   *application.RateKeeper
	insurer *encar.Client
	channel string
	manager string
	httpc   *http.Client
	log     *zap.Logger

	mu     sync.Mutex
	quoted map[int64]lastListing
}

func New(api *tgbotapi.BotAPI, ctrl *application.Controller, fetcher application.ListingFetcher,
	quoter *application.Quoter, rates *application.RateKeeper, insurer *encar.Client,
	channel, manager string, log *zap.Logger) *Bot {
	return &Bot{
		api:     api,
		ctrl:    ctrl,
		fetcher: fetcher,
		quoter:  quoter,
		rates:   rates,
		insurer: insurer,
		channel: channel,
		manager: manager,
		httpc:   http.DefaultClient,
		log:     log,
		quoted:  make(map[int64]lastListing),
	}
}

// Run consumes the update channel until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.setCommands()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) setCommands() {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Запустить бота"},
		tgbotapi.BotCommand{Command: "cbr", Description: "Курсы валют"},
	)
	if _, err := b.api.Request(cmds); err != nil {
		b.log.Warn("set commands failed", zap.Error(err))
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID

	switch m.Command() {
	case "start":
		b.handleStart(ctx, m)
		return
	case "cbr":
		b.handleRates(ctx, m)
		return
	}

	text := m.Text

	if text == btnCancel {
		reply, err := b.ctrl.Cancel(ctx, chatID)
		if err != nil {
			b.log.Error("cancel failed", zap.Int64("chat_id", chatID), zap.Error(err))
			return
		}
		b.renderReply(ctx, chatID, reply)
		return
	}

	// Active flows consume the message first.
	reply, handled, err := b.ctrl.Handle(ctx, chatID, text)
	if err != nil {
		b.log.Error("dialog step failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendText(chatID, msgListingFailed)
		return
	}
	if handled {
		b.renderReply(ctx, chatID, reply)
		return
	}

	switch {
	case text == btnCalculate:
		b.sendText(chatID, msgAskListingLink)
	case text == btnManual:
		reply, err := b.ctrl.StartManual(ctx, chatID)
		if err != nil {
			b.log.Error("manual start failed", zap.Int64("chat_id", chatID), zap.Error(err))
			return
		}
		b.renderReply(ctx, chatID, reply)
	case text == btnLead:
		reply, err := b.ctrl.StartLead(ctx, chatID)
		if err != nil {
			b.log.Error("lead start failed", zap.Int64("chat_id", chatID), zap.Error(err))
			return
		}
		b.renderReply(ctx, chatID, reply)
	case text == btnManager:
		b.sendText(chatID, "Вы можете связаться с нашим менеджером: "+b.manager)
	case text == btnAbout:
		b.sendText(chatID, msgAboutCompany)
	case text == btnChannel:
		b.sendText(chatID, "Подписывайтесь на наш Telegram-канал: https://t.me/"+trimAt(b.channel))
	case domain.IsListingLink(text):
		b.quoteListing(ctx, m)
	default:
		b.sendText(chatID, msgUnknownInput)
	}
}

func (b *Bot) handleStart(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	if !b.isSubscribed(m.From.ID) {
		b.sendSubscriptionGate(chatID, "🚫 Доступ ограничен! Подпишитесь на наш канал "+b.channel+", чтобы пользоваться ботом.")
		return
	}
	welcome := "Здравствуйте, " + m.From.FirstName + "!\n\n" +
		"Я помогу вам рассчитать стоимость понравившегося вам автомобиля из Южной Кореи до Владивостока.\n\n" +
		"Выберите действие из меню ниже."
	msg := tgbotapi.NewMessage(chatID, welcome)
	msg.ReplyMarkup = mainMenu()
	b.send(msg)
}

func (b *Bot) handleRates(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	if !b.isSubscribed(m.From.ID) {
		b.sendSubscriptionGate(chatID, "🚫 Доступ ограничен! Подпишитесь на наш канал "+b.channel+", чтобы пользоваться ботом.")
		return
	}
	snapshot := b.rates.Current()
	msg := tgbotapi.NewMessage(chatID, FormatRates(snapshot))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Рассчитать стоимость автомобиля", cbCalculateAnother),
		),
	)
	b.send(msg)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	switch cb.Data {
	case cbCheckSubscription:
		if b.isSubscribed(cb.From.ID) {
			b.answerCallback(cb.ID, "✅ Вы подписаны!")
			msg := tgbotapi.NewMessage(chatID, "✅ Спасибо за подписку! Теперь вы можете пользоваться ботом.")
			msg.ReplyMarkup = mainMenu()
			b.send(msg)
		} else {
			b.answerCallback(cb.ID, "")
			b.sendSubscriptionGate(chatID, "🚫 Вы ещё не подписались! Подпишитесь и нажмите кнопку 🔄 Проверить подписку.")
		}
	case cbTechnicalReport:
		b.answerCallback(cb.ID, "")
		b.sendInsuranceReport(ctx, chatID)
	case cbCalculateAnother:
		b.answerCallback(cb.ID, "")
		b.sendText(chatID, msgAskListingLink)
	}
}

func (b *Bot) quoteListing(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	processing := b.sendText(chatID, msgProcessing)

	id, err := encar.ParseListingURL(m.Text)
	if err != nil {
		b.deleteMessage(chatID, processing)
		b.sendText(chatID, msgListingFailed)
		return
	}

	listing, err := b.fetcher.Fetch(ctx, id)
	if err != nil {
		b.deleteMessage(chatID, processing)
		b.log.Warn("listing fetch failed", zap.String("listing_id", id), zap.Error(err))
		b.sendText(chatID, msgListingFailed)
		return
	}

	snapshot := b.rates.Fresh(ctx)
	breakdown, err := b.quoter.Quote(ctx, application.InputFromListing(listing, application.SystemClock()), snapshot)
	if err != nil {
		b.deleteMessage(chatID, processing)
		b.sendQuoteError(chatID, err)
		return
	}

	b.rememberListing(chatID, listing)
	b.sendPhotoAlbum(chatID, listing.PhotoURLs)

	msg := tgbotapi.NewMessage(chatID, FormatQuote(&listing, breakdown, encar.PreviewURL(id)))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = b.quoteKeyboard()
	b.send(msg)
	b.deleteMessage(chatID, processing)
}

func (b *Bot) sendQuoteError(chatID int64, err error) {
	switch {
	case errors.Is(err, domain.ErrRateUnavailable):
		b.sendText(chatID, msgRatesDown)
	case errors.Is(err, domain.ErrTariffUnavailable):
		b.sendText(chatID, msgTariffDown)
	default:
		b.sendText(chatID, msgListingFailed)
	}
}

func (b *Bot) quoteKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Выплаты по ДТП", cbTechnicalReport),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Написать менеджеру", b.manager),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Расчёт другого автомобиля", cbCalculateAnother),
		),
	)
}

func (b *Bot) rememberListing(chatID int64, l domain.VehicleListing) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quoted[chatID] = lastListing{ID: l.ID, VehicleID: l.VehicleID, VehicleNo: l.VehicleNo}
}

func (b *Bot) sendInsuranceReport(ctx context.Context, chatID int64) {
	b.mu.Lock()
	last, ok := b.quoted[chatID]
	b.mu.Unlock()
	if !ok {
		b.sendText(chatID, msgAskListingLink)
		return
	}

	b.sendText(chatID, "Запрашиваю отчёт по ДТП. Пожалуйста подождите ⏳")
	summary, err := b.insurer.InsuranceReport(ctx, last.VehicleID, last.VehicleNo)
	if err != nil {
		b.log.Warn("insurance report failed", zap.String("listing_id", last.ID), zap.Error(err))
		msg := tgbotapi.NewMessage(chatID,
			"Не удалось получить данные о страховых выплатах. \n\n"+
				"<a href=\"https://fem.encar.com/cars/report/accident/"+last.ID+"\">🔗 Посмотреть страховую историю вручную 🔗</a>")
		msg.ParseMode = tgbotapi.ModeHTML
		b.send(msg)
		return
	}
	msg := tgbotapi.NewMessage(chatID, FormatInsurance(summary.OwnAccidentKrw, summary.OtherAccidentKrw, last.ID))
	msg.ParseMode = tgbotapi.ModeHTML
	b.send(msg)
}

// sendPhotoAlbum downloads up to ten listing photos and sends them as one
// media group. Failures are logged and skipped; the quote itself never
// depends on photos.
func (b *Bot) sendPhotoAlbum(chatID int64, urls []string) {
	var media []interface{}
	for _, u := range urls {
		data, err := b.downloadPhoto(u)
		if err != nil {
			b.log.Debug("photo download failed", zap.String("url", u), zap.Error(err))
			continue
		}
		media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileBytes{Name: "photo.jpg", Bytes: data}))
		if len(media) == 10 {
			break
		}
	}
	if len(media) == 0 {
		return
	}
	group := tgbotapi.NewMediaGroup(chatID, media)
	if _, err := b.api.SendMediaGroup(group); err != nil {
		b.log.Warn("media group send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) downloadPhoto(url string) ([]byte, error) {
	resp, err := b.httpc.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

func (b *Bot) renderReply(ctx context.Context, chatID int64, r application.Reply) {
	if r.Breakdown != nil {
		msg := tgbotapi.NewMessage(chatID, FormatQuote(nil, *r.Breakdown, ""))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = mainMenu()
		b.send(msg)
		if r.Text != "" {
			b.sendText(chatID, r.Text)
		}
		return
	}

	msg := tgbotapi.NewMessage(chatID, r.Text)
	switch {
	case r.Done:
		msg.ReplyMarkup = mainMenu()
	case len(r.Options) > 0:
		msg.ReplyMarkup = optionsKeyboard(r.Options)
	default:
		msg.ReplyMarkup = cancelKeyboard()
	}
	b.send(msg)
}

func (b *Bot) isSubscribed(userID int64) bool {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: b.channel,
			UserID:             userID,
		},
	})
	if err != nil {
		b.log.Warn("subscription check failed", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	switch member.Status {
	case "member", "administrator", "creator":
		return true
	}
	return false
}

func (b *Bot) sendSubscriptionGate(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 Подписаться", "https://t.me/"+trimAt(b.channel)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Проверить подписку", cbCheckSubscription),
		),
	)
	b.send(msg)
}

func (b *Bot) sendText(chatID int64, text string) int {
	sent, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		b.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return 0
	}
	return sent.MessageID
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("send failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.log.Debug("callback answer failed", zap.Error(err))
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Debug("delete message failed", zap.Error(err))
	}
}

func mainMenu() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCalculate)),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnManual),
			tgbotapi.NewKeyboardButton(btnLead),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnManager),
			tgbotapi.NewKeyboardButton(btnAbout),
			tgbotapi.NewKeyboardButton(btnChannel),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func optionsKeyboard(opts []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(opts)+1)
	for _, o := range opts {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(o)))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func trimAt(handle string) string {
	if len(handle) > 0 && handle[0] == '@' {
		return handle[1:]
	}
	return handle
}
