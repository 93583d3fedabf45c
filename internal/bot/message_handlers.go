package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/baraholka/marketbot/internal/parse"
	"github.com/baraholka/marketbot/internal/session"
	"github.com/baraholka/marketbot/internal/telegram"
	"github.com/baraholka/marketbot/pkg/util"
)

const (
	formTheme       = "theme"
	formPhoto       = "photo"
	formTitle       = "title"
	formPrice       = "price"
	formDescription = "description"
)

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}
	user, err := r.users.EnsureUser(ctx, chatID, username)
	if err != nil {
		return err
	}
	if user.Banned && !r.isAdmin(chatID) {
		return r.transport.SendText(ctx, chatID, "⛔️ Ваш аккаунт заблокирован.")
	}

	if msg.IsCommand() {
		return r.handleCommand(ctx, msg)
	}

	state, err := r.sessions.Get(ctx, chatID)
	if err != nil {
		return err
	}
	switch state.Mode {
	case session.ModeAdminChatActive:
		if !r.isAdmin(chatID) {
			_ = r.sessions.Clear(ctx, chatID)
			return r.sendMainMenu(ctx, chatID)
		}
		return r.chats.Relay(ctx, chatID, true, msg.Text)
	case session.ModeUserChatActive:
		return r.chats.Relay(ctx, chatID, false, msg.Text)
	case session.ModeAwaitingTicketText:
		return r.finishTicketForm(ctx, chatID, state, msg.Text)
	case session.ModeAwaitingIDSearch, session.ModeAwaitingNameSearch:
		if !r.isAdmin(chatID) {
			_ = r.sessions.Clear(ctx, chatID)
			return r.sendMainMenu(ctx, chatID)
		}
		return r.finishUserSearch(ctx, chatID, msg.Text)
	case session.ModeSellPhoto, session.ModeSellTitle, session.ModeSellPrice, session.ModeSellDescription:
		return r.advanceSellForm(ctx, chatID, state, msg)
	default:
		// An admin with a wiped context may still hold a ticket in work;
		// their text belongs to that chat, not to the menu.
		if r.isAdmin(chatID) && state.Mode == session.ModeIdle && strings.TrimSpace(msg.Text) != "" {
			err := r.chats.Relay(ctx, chatID, true, msg.Text)
			if err == nil || !util.IsCode(err, util.CodeSessionDesync) {
				return err
			}
		}
		return r.sendMainMenu(ctx, chatID)
	}
}

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		if payload := msg.CommandArguments(); payload != "" {
			if err := r.users.HandleStartPayload(ctx, chatID, payload); err != nil {
				return err
			}
		}
		if r.isAdmin(chatID) {
			if err := r.recoverAdminChat(ctx, chatID); err != nil {
				return err
			}
		}
		return r.sendMainMenu(ctx, chatID)
	case "admin":
		if !r.isAdmin(chatID) {
			return r.sendMainMenu(ctx, chatID)
		}
		return r.transport.SendWithKeyboard(ctx, chatID, "🛠 Панель администратора", telegram.AdminPanelKeyboard())
	case "menu":
		if err := r.sessions.Clear(ctx, chatID); err != nil {
			return err
		}
		return r.sendMainMenu(ctx, chatID)
	default:
		return r.sendMainMenu(ctx, chatID)
	}
}

// recoverAdminChat rehydrates the admin's live chat after a restart wiped
// the conversation context.
func (r *Router) recoverAdminChat(ctx context.Context, adminID int64) error {
	state, err := r.sessions.Get(ctx, adminID)
	if err != nil {
		return err
	}
	if state.Mode == session.ModeAdminChatActive {
		return nil
	}
	ticket, err := r.chats.Recover(ctx, adminID)
	if err != nil {
		return err
	}
	if ticket == nil {
		return nil
	}
	return r.transport.SendWithKeyboard(ctx, adminID,
		fmt.Sprintf("♻️ Восстановлен чат по обращению #%d. Сообщения снова пересылаются пользователю.", ticket.ID),
		telegram.ActiveChatKeyboard(ticket.ID))
}

func (r *Router) sendMainMenu(ctx context.Context, chatID int64) error {
	text := "👋 Добро пожаловать в барахолку!\nВыберите действие:"
	if err := r.transport.SendWithKeyboard(ctx, chatID, text, telegram.MainMenuKeyboard()); err != nil {
		return err
	}
	if r.isAdmin(chatID) {
		return r.transport.SendWithKeyboard(ctx, chatID, "🛠 Панель администратора", telegram.AdminPanelKeyboard())
	}
	return nil
}

func (r *Router) finishTicketForm(ctx context.Context, chatID int64, state *session.State, text string) error {
	theme := state.FormValue(formTheme)
	ticket, err := r.tickets.CreateTicket(ctx, chatID, theme, text)
	if err != nil {
		return err
	}
	if err := r.sessions.Clear(ctx, chatID); err != nil {
		return err
	}
	return r.transport.SendText(ctx, chatID,
		fmt.Sprintf("✅ Обращение #%d создано. Администратор ответит в ближайшее время.", ticket.ID))
}

func (r *Router) finishUserSearch(ctx context.Context, adminID int64, query string) error {
	found, err := r.users.Find(ctx, query)
	if err != nil {
		return err
	}
	state := &session.State{Mode: session.ModeAdminUserSelected, TargetID: found.ID}
	if err := r.sessions.Put(ctx, adminID, state); err != nil {
		return err
	}
	return r.transport.SendWithKeyboard(ctx, adminID,
		telegram.RenderUserCard(*found), telegram.SelectedUserKeyboard(found.Banned))
}

func (r *Router) advanceSellForm(ctx context.Context, chatID int64, state *session.State, msg *tgbotapi.Message) error {
	switch state.Mode {
	case session.ModeSellPhoto:
		if len(msg.Photo) > 0 {
			// The last size is the largest one Telegram offers.
			state.SetForm(formPhoto, msg.Photo[len(msg.Photo)-1].FileID)
		} else if !strings.EqualFold(strings.TrimSpace(msg.Text), "пропустить") {
			return r.transport.SendText(ctx, chatID, "Отправьте фото товара или напишите «пропустить».")
		}
		state.Mode = session.ModeSellTitle
		if err := r.sessions.Put(ctx, chatID, state); err != nil {
			return err
		}
		return r.transport.SendText(ctx, chatID, "Введите название товара:")
	case session.ModeSellTitle:
		title := strings.TrimSpace(msg.Text)
		if title == "" {
			return r.transport.SendText(ctx, chatID, "Название не может быть пустым. Введите название товара:")
		}
		state.SetForm(formTitle, title)
		state.Mode = session.ModeSellPrice
		if err := r.sessions.Put(ctx, chatID, state); err != nil {
			return err
		}
		return r.transport.SendText(ctx, chatID, "Введите цену: число, «торг» или «бесплатно».")
	case session.ModeSellPrice:
		if parse.ParsePrice(msg.Text).Kind == parse.PriceInvalid {
			return r.transport.SendText(ctx, chatID, "Не понял цену. Введите число, «торг» или «бесплатно».")
		}
		state.SetForm(formPrice, msg.Text)
		state.Mode = session.ModeSellDescription
		if err := r.sessions.Put(ctx, chatID, state); err != nil {
			return err
		}
		return r.transport.SendText(ctx, chatID, "Добавьте описание (или напишите «нет»):")
	case session.ModeSellDescription:
		description := strings.TrimSpace(msg.Text)
		if strings.EqualFold(description, "нет") {
			description = ""
		}
		state.SetForm(formDescription, description)
		state.Mode = session.ModeSellConfirm
		if err := r.sessions.Put(ctx, chatID, state); err != nil {
			return err
		}
		preview := telegram.RenderPostPreview(
			state.FormValue(formTitle),
			parse.ParsePrice(state.FormValue(formPrice)).Display(),
			description,
			r.sellerName(ctx, chatID),
		)
		return r.transport.SendWithKeyboard(ctx, chatID,
			"Проверьте объявление:\n\n"+preview, telegram.SellConfirmKeyboard())
	}
	return nil
}

func (r *Router) sellerName(ctx context.Context, chatID int64) string {
	user, err := r.users.Find(ctx, strconv.FormatInt(chatID, 10))
	if err != nil {
		return "ID: " + strconv.FormatInt(chatID, 10)
	}
	return user.DisplayName()
}
