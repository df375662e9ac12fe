package telegram

import (
	"fmt"
	"strings"

	"github.com/leekchan/accounting"

	"carcost-bot/internal/domain"
)

func money(v float64) string {
	return accounting.FormatNumber(v, 0, ",", ".")
}

func moneyInt(v int64) string {
	return accounting.FormatNumberInt(int(v), 0, ",", ".")
}

func rate(v float64) string {
	return accounting.FormatNumber(v, 2, ",", ".")
}

// FormatRates renders the /cbr reply from the current snapshot.
func FormatRates(r domain.ExchangeRates) string {
	var b strings.Builder
	if r.HasUsdtKrw() {
		fmt.Fprintf(&b, "USDT/KRW: <b>%s ₩</b>\n", rate(r.UsdtKrw))
	} else {
		b.WriteString("Не удалось получить курс USDT/KRW\n")
	}
	if r.HasUsdtRub() {
		fmt.Fprintf(&b, "USDT/RUB: <b>%s ₽</b>", rate(r.UsdtRub))
	} else {
		b.WriteString("Не удалось получить курс USDT/RUB")
	}
	return b.String()
}

// FormatQuote renders the landed-cost message for a fetched listing.
// The manual flow passes a nil listing and gets the cost block only.
func FormatQuote(l *domain.VehicleListing, b domain.CostBreakdown, previewURL string) string {
	usdtRub := b.Rates.UsdtRub
	var sb strings.Builder

	if l != nil {
		title := strings.TrimSpace(strings.Join([]string{l.Make, l.Model, l.Trim}, " "))
		fmt.Fprintf(&sb, "🚗 <b>%s</b>\n\n", title)
		fmt.Fprintf(&sb, "📅 Возраст: %s", b.Age.Label())
		if l.Registered.Year != 0 {
			fmt.Fprintf(&sb, " (дата регистрации: %02d/%d)", l.Registered.Month, l.Registered.Year)
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "🛣️ Пробег: %s км\n", moneyInt(int64(l.MileageKm)))
		fmt.Fprintf(&sb, "🔧 Объём двигателя: %s cc\n", moneyInt(int64(l.EngineCc)))
		fmt.Fprintf(&sb, "⚙️ КПП: %s\n\n", transmissionLabel(l.Transmission))
	}

	fmt.Fprintf(&sb, "💱 Актуальные курсы валют:\nUSDT/KRW: <b>₩%s</b>\nUSDT/RUB: <b>%s ₽</b>\n\n",
		rate(b.Rates.UsdtKrw), rate(usdtRub))

	sb.WriteString("💰 <b>Стоимость:</b>\n")
	fmt.Fprintf(&sb, "• Цена в Корее: ₩%s\n", moneyInt(b.PriceKrw))
	fmt.Fprintf(&sb, "• Цена авто: $%s | %s ₽\n", money(b.PriceUsdt), money(b.PriceRub))
	fmt.Fprintf(&sb, "• ФРАХТ: $%s | %s ₽\n", money(float64(b.FreightRub)/usdtRub), moneyInt(b.FreightRub))
	fmt.Fprintf(&sb, "• Брокерские услуги: $%s | %s ₽\n\n", money(float64(b.BrokerRub)/usdtRub), moneyInt(b.BrokerRub))

	sb.WriteString("📝 <b>Таможенные платежи:</b>\n")
	fmt.Fprintf(&sb, "• Таможенный сбор: $%s | %s ₽\n", money(float64(b.Customs.ClearanceRub)/usdtRub), moneyInt(b.Customs.ClearanceRub))
	fmt.Fprintf(&sb, "• Таможенная пошлина: $%s | %s ₽\n", money(float64(b.Customs.DutyRub)/usdtRub), moneyInt(b.Customs.DutyRub))
	fmt.Fprintf(&sb, "• Утилизационный сбор: $%s | %s ₽\n\n", money(float64(b.Customs.RecyclingRub)/usdtRub), moneyInt(b.Customs.RecyclingRub))

	sb.WriteString("💵 <b>Итоговая стоимость под ключ до Владивостока:</b>\n")
	fmt.Fprintf(&sb, "<b>$%s</b> | <b>%s ₽</b>\n", money(b.TotalUsdt), money(b.TotalRub))
	if b.HasBankPrice {
		fmt.Fprintf(&sb, "По банковскому курсу: <b>%s ₽</b>\n", money(b.TotalRubBank))
	}
	if b.DeliveryRub > 0 {
		fmt.Fprintf(&sb, "С доставкой до вашего города: <b>%s ₽</b>\n", money(b.TotalWithDeliveryRub))
	}

	if previewURL != "" {
		fmt.Fprintf(&sb, "\n🔗 <a href='%s'>Ссылка на автомобиль</a>\n", previewURL)
	}
	sb.WriteString("\n⚠️ <i>Если данное авто попадает под санкции, пожалуйста уточните возможность отправки в вашу страну у менеджера.</i>")
	return sb.String()
}

// FormatInsurance renders the accident payout summary.
func FormatInsurance(ownKrw, otherKrw int64, listingID string) string {
	return fmt.Sprintf(
		"Страховые выплаты по представленному автомобилю: \n<b>%s ₩</b>\n\n"+
			"Страховые выплаты другим участникам ДТП: \n<b>%s ₩</b>\n\n"+
			"<a href=\"https://fem.encar.com/cars/report/inspect/%s\">🔗 Ссылка на схему повреждений кузовных элементов 🔗</a>",
		moneyInt(ownKrw), moneyInt(otherKrw), listingID)
}

func transmissionLabel(t domain.Transmission) string {
	if t == domain.TransmissionManual {
		return "Механика"
	}
	return "Автомат"
}
