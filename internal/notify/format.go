package notify

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var rusPrinter = message.NewPrinter(language.Russian)

// FormatPrice renders a price the way the storefront shows it: grouped
// digits, no kopecks, "По запросу" when the price is not listed.
func FormatPrice(price *float64) string {
	if price == nil || *price <= 0 {
		return "По запросу"
	}
	return rusPrinter.Sprintf("%v руб.", number.Decimal(*price, number.MaxFractionDigits(0)))
}

// renderInquiry builds the plain-text notification sent to the artist.
func renderInquiry(artistName string, inq Inquiry) string {
	var b strings.Builder
	b.WriteString("🖼 НОВАЯ ЗАЯВКА НА КАРТИНУ!\n\n")
	b.WriteString("Работа: " + inq.WorkTitle + "\n")
	b.WriteString("Художник: " + artistName + "\n")
	b.WriteString("Цена: " + FormatPrice(inq.Price) + "\n\n")
	b.WriteString("ДАННЫЕ ПОКУПАТЕЛЯ:\n")
	b.WriteString("👤 ФИО: " + inq.Customer.FullName + "\n")
	b.WriteString("📞 Телефон: " + inq.Customer.Phone + "\n")

	if inq.Customer.Telegram != "" {
		b.WriteString("✈️ Telegram: " + inq.Customer.Telegram + "\n")
	}
	if inq.Customer.Comment != "" {
		b.WriteString("\n💬 Комментарий:\n" + inq.Customer.Comment + "\n")
	}
	return b.String()
}
