package bot

import (
	"fmt"
	"strings"
	"time"

	"limbobot/internal/audit"
	"limbobot/internal/registry"
)

// User-facing texts. Kept in one place so the handler code stays readable.

const msgNoUsername = "❌ У вас не установлен username в Telegram.\n\n" +
	"Пожалуйста, установите username в настройках Telegram и попробуйте снова:\n" +
	"Настройки -> Имя пользователя"

const msgProbe = "🔔 Тестовое уведомление\n\n" +
	"Система работает корректно. Вы будете получать уведомления о новых заявках."

const msgNotRegistered = "❌ Вы не зарегистрированы в системе как художник.\n\n" +
	"Если вы художник, убедитесь что ваш username совпадает с указанным в системе."

func msgNotArtist(username string) string {
	return "👋 Здравствуйте! Этот бот предназначен только для художников галереи LIMBO.\n\n" +
		"Если вы художник и хотите получать уведомления, свяжитесь с администрацией галереи.\n\n" +
		"Ваш username: " + username
}

func msgWelcome(a registry.Artist) string {
	regAt := "—"
	if a.RegisteredAt != nil {
		regAt = a.RegisteredAt.Local().Format("02.01.2006 15:04:05")
	}
	return fmt.Sprintf("🎨 Добро пожаловать, %s!\n\n"+
		"✅ Вы успешно зарегистрированы в системе уведомлений галереи LIMBO.\n\n"+
		"Теперь вы будете получать уведомления о новых заявках на приобретение ваших работ.\n\n"+
		"Ваш статус: активен\n"+
		"Username: %s\n"+
		"Дата регистрации: %s",
		a.Name, a.Username, regAt)
}

func msgStatus(a registry.Artist) string {
	status := "❌ не активен"
	if a.Registered() {
		status = "✅ активен"
	}
	id := a.RecipientID
	if id == "" {
		id = "не указан"
	}
	regAt := "не зарегистрирован"
	if a.RegisteredAt != nil {
		regAt = a.RegisteredAt.Local().Format("02.01.2006 15:04:05")
	}
	return fmt.Sprintf("📊 СТАТУС РЕГИСТРАЦИИ\n\n"+
		"Имя: %s\nUsername: %s\nСтатус: %s\nID: %s\nSlug: %s\nЗарегистрирован: %s",
		a.Name, a.Username, status, id, a.Slug, regAt)
}

func msgRoster(artists []registry.Artist, registered int, recent []audit.Entry) string {
	var b strings.Builder
	b.WriteString("📋 СПИСОК ХУДОЖНИКОВ:\n\n")

	for i, a := range artists {
		mark := "❌"
		if a.Registered() {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, mark, a.Name)
		fmt.Fprintf(&b, "   └─ %s\n", a.Username)
		if a.Registered() {
			fmt.Fprintf(&b, "   └─ ID: %s\n", a.RecipientID)
			if a.RegisteredAt != nil {
				fmt.Fprintf(&b, "   └─ Регистрация: %s\n", a.RegisteredAt.Local().Format("02.01.2006"))
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n📊 Итого: %d/%d зарегистрировано", registered, len(artists))

	if len(recent) > 0 {
		b.WriteString("\n\n🕘 Последние доставки:\n")
		for _, e := range recent {
			detail := ""
			if e.Detail != "" {
				detail = " (" + e.Detail + ")"
			}
			fmt.Fprintf(&b, "- %s %s → %s%s\n",
				e.At.Local().Format("02.01 15:04"), e.Username, statusMark(e.Status), detail)
		}
	}
	return b.String()
}

func statusMark(status string) string {
	switch status {
	case "delivered":
		return "✅"
	default:
		return "❌ " + status
	}
}

// Pause between the welcome message and the test notification.
const defaultProbeDelay = time.Second
