package telegram

import (
	"fmt"
	"strings"

	"github.com/baraholka/marketbot/internal/domain"
	"github.com/baraholka/marketbot/internal/priority"
)

// maxMessageRunes is the longest text one chat message may carry. Views
// that would exceed it are cut and marked, never split across messages.
const maxMessageRunes = 4000

const truncationMarker = "..."

// Truncate cuts text to the message size limit, replacing the tail with a
// marker when anything was dropped.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxMessageRunes {
		return text
	}
	return string(runes[:maxMessageRunes-len(truncationMarker)]) + truncationMarker
}

const (
	adminPrefix = "🛠 Администратор:"
	userPrefix  = "👤 Пользователь:"
)

// RelayPrefix labels a forwarded chat line with the sender's role.
func RelayPrefix(isAdmin bool) string {
	if isAdmin {
		return adminPrefix
	}
	return userPrefix
}

// RenderRelay formats a live-chat line for the receiving side.
func RenderRelay(isAdmin bool, text string) string {
	return Truncate(RelayPrefix(isAdmin) + "\n" + text)
}

func statusLabel(status domain.TicketStatus) string {
	switch status {
	case domain.TicketStatusNew:
		return "🆕 Новое"
	case domain.TicketStatusInProgress:
		return "⏳ В работе"
	case domain.TicketStatusClosed:
		return "✅ Закрыто"
	default:
		return string(status)
	}
}

// RenderTicketView builds the full ticket card with its message history,
// newest last. The result never exceeds one message.
func RenderTicketView(ticket domain.Ticket, messages []domain.TicketMessage) string {
	var b strings.Builder
	icon := priority.Icon(priority.Classify(ticket.Theme))
	fmt.Fprintf(&b, "%s Обращение #%d\n", icon, ticket.ID)
	fmt.Fprintf(&b, "Тема: %s\n", ticket.Theme)
	fmt.Fprintf(&b, "Статус: %s\n", statusLabel(ticket.Status))
	fmt.Fprintf(&b, "Создано: %s\n", ticket.CreatedAt.Format("02.01.2006 15:04"))
	if len(messages) > 0 {
		b.WriteString("\n📨 История:\n")
		for _, m := range messages {
			fmt.Fprintf(&b, "%s %s\n", RelayPrefix(m.IsAdmin), m.Text)
		}
	}
	return Truncate(b.String())
}

// RenderAdminTicketView adds ownership details for the admin card.
func RenderAdminTicketView(ticket domain.Ticket, owner domain.User, messages []domain.TicketMessage) string {
	var b strings.Builder
	icon := priority.Icon(priority.Classify(ticket.Theme))
	fmt.Fprintf(&b, "%s Обращение #%d\n", icon, ticket.ID)
	fmt.Fprintf(&b, "Тема: %s\n", ticket.Theme)
	fmt.Fprintf(&b, "Статус: %s\n", statusLabel(ticket.Status))
	fmt.Fprintf(&b, "От: %s (id %d)\n", owner.DisplayName(), owner.ID)
	if ticket.AdminID != nil {
		fmt.Fprintf(&b, "Назначен: %d\n", *ticket.AdminID)
	}
	fmt.Fprintf(&b, "Создано: %s\n", ticket.CreatedAt.Format("02.01.2006 15:04"))
	if len(messages) > 0 {
		b.WriteString("\n📨 История:\n")
		for _, m := range messages {
			fmt.Fprintf(&b, "%s %s\n", RelayPrefix(m.IsAdmin), m.Text)
		}
	}
	return Truncate(b.String())
}

// RenderUserCard is the admin's view of a marketplace account.
func RenderUserCard(user domain.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s\n", user.DisplayName())
	fmt.Fprintf(&b, "ID: %d\n", user.ID)
	fmt.Fprintf(&b, "Привилегия: %s\n", user.Privilege)
	fmt.Fprintf(&b, "Объявлений: %d\n", user.PostsCount)
	fmt.Fprintf(&b, "Рефералов: %d\n", user.ReferralsCount)
	if user.Banned {
		b.WriteString("⛔️ Заблокирован\n")
	}
	return b.String()
}

// RenderPostPreview is the listing card shown at the confirm step and in
// the channel.
func RenderPostPreview(title, price, description, sellerName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 %s\n\n", title)
	fmt.Fprintf(&b, "💵 Цена: %s\n", price)
	if description != "" {
		fmt.Fprintf(&b, "\n%s\n", description)
	}
	fmt.Fprintf(&b, "\nПродавец: %s", sellerName)
	return Truncate(b.String())
}
