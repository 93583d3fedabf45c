package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/baraholka/marketbot/internal/service"
	"github.com/baraholka/marketbot/internal/session"
	"github.com/baraholka/marketbot/internal/telegram"
	"github.com/baraholka/marketbot/pkg/util"
)

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	chatID := cb.From.ID
	if err := r.transport.AnswerCallback(ctx, cb.ID, ""); err != nil {
		r.logger.Debug("callback ack failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	data := cb.Data
	if handled, err := r.handleStaticCallback(ctx, chatID, data); handled {
		return err
	}
	if idx, ok := telegram.ThemeCallback(data); ok {
		return r.startTicketForm(ctx, chatID, telegram.TicketThemes[idx])
	}
	if name, ok := telegram.GrantPrivilegeCallback(data); ok {
		return r.grantPrivilege(ctx, chatID, name)
	}

	decoded, err := telegram.ParseCallback(data)
	if err != nil {
		r.logger.Debug("unparsed callback", zap.Int64("chat_id", chatID), zap.String("data", data))
		return err
	}
	messageID := 0
	if cb.Message != nil {
		messageID = cb.Message.MessageID
	}
	return r.handleAction(ctx, chatID, messageID, decoded)
}

// handleStaticCallback covers buttons whose payload carries no id.
func (r *Router) handleStaticCallback(ctx context.Context, chatID int64, data string) (bool, error) {
	switch data {
	case telegram.DataBackToMenu:
		if err := r.sessions.Clear(ctx, chatID); err != nil {
			return true, err
		}
		return true, r.sendMainMenu(ctx, chatID)
	case telegram.DataMenuSupport:
		return true, r.transport.SendWithKeyboard(ctx, chatID, "Выберите тему обращения:", telegram.ThemeKeyboard())
	case telegram.DataMenuTickets:
		return true, r.listOwnTickets(ctx, chatID)
	case telegram.DataMenuReferral:
		return true, r.showReferralInfo(ctx, chatID)
	case telegram.DataMenuSell:
		return true, r.startSellForm(ctx, chatID)
	case telegram.DataSellConfirm:
		return true, r.confirmSellForm(ctx, chatID)
	case telegram.DataSellCancel:
		if err := r.sessions.Clear(ctx, chatID); err != nil {
			return true, err
		}
		return true, r.transport.SendText(ctx, chatID, "Объявление отменено.")
	case telegram.DataAdminTickets:
		return true, r.requireAdmin(chatID, func() error { return r.listAdminQueue(ctx, chatID) })
	case telegram.DataAdminStats:
		return true, r.requireAdmin(chatID, func() error { return r.showStats(ctx, chatID) })
	case telegram.DataAdminSearchID:
		return true, r.requireAdmin(chatID, func() error {
			return r.startUserSearch(ctx, chatID, session.ModeAwaitingIDSearch, "Введите ID пользователя:")
		})
	case telegram.DataAdminSearchTag:
		return true, r.requireAdmin(chatID, func() error {
			return r.startUserSearch(ctx, chatID, session.ModeAwaitingNameSearch, "Введите ник пользователя:")
		})
	case telegram.DataUserBan:
		return true, r.moderateSelected(ctx, chatID, func(targetID int64) error {
			return r.users.SetBanned(ctx, chatID, targetID, true)
		})
	case telegram.DataUserUnban:
		return true, r.moderateSelected(ctx, chatID, func(targetID int64) error {
			return r.users.SetBanned(ctx, chatID, targetID, false)
		})
	case telegram.DataUserReset:
		return true, r.moderateSelected(ctx, chatID, func(targetID int64) error {
			return r.users.ResetAccount(ctx, targetID)
		})
	case telegram.DataUserCooldown:
		return true, r.moderateSelected(ctx, chatID, func(targetID int64) error {
			return r.users.ResetCooldown(ctx, targetID)
		})
	case telegram.DataUserPrivileges:
		return true, r.requireAdmin(chatID, func() error {
			return r.transport.SendWithKeyboard(ctx, chatID, "Выберите привилегию:",
				telegram.PrivilegeKeyboard(r.users.PrivilegeNames()))
		})
	}
	return false, nil
}

func (r *Router) handleAction(ctx context.Context, chatID int64, messageID int, cb telegram.Callback) error {
	switch cb.Action {
	case telegram.ActionViewTicket:
		ticket, msgs, err := r.tickets.GetTicketForUser(ctx, chatID, cb.ID)
		if err != nil {
			return err
		}
		return r.transport.SendWithKeyboard(ctx, chatID,
			telegram.RenderTicketView(*ticket, msgs), telegram.UserTicketKeyboard(ticket.ID))
	case telegram.ActionCloseTicket:
		if err := r.tickets.DeleteByOwner(ctx, chatID, cb.ID); err != nil {
			return err
		}
		return r.transport.SendText(ctx, chatID, "Обращение закрыто и удалено.")
	case telegram.ActionAdminViewTicket:
		return r.requireAdmin(chatID, func() error {
			ticket, owner, msgs, err := r.tickets.GetTicketForAdmin(ctx, cb.ID)
			if err != nil {
				return err
			}
			return r.transport.SendWithKeyboard(ctx, chatID,
				telegram.RenderAdminTicketView(*ticket, *owner, msgs),
				telegram.AdminTicketKeyboard(*ticket, chatID))
		})
	case telegram.ActionAdminTake:
		return r.requireAdmin(chatID, func() error {
			ticket, err := r.tickets.Claim(ctx, chatID, cb.ID)
			if err != nil {
				return err
			}
			return r.transport.SendText(ctx, chatID,
				fmt.Sprintf("✋ Обращение #%d взято в работу.", ticket.ID))
		})
	case telegram.ActionAdminClose:
		return r.requireAdmin(chatID, func() error {
			if err := r.tickets.DeleteByAdmin(ctx, chatID, cb.ID); err != nil {
				return err
			}
			return r.transport.SendText(ctx, chatID,
				fmt.Sprintf("🗑 Обращение #%d закрыто и удалено.", cb.ID))
		})
	case telegram.ActionReplyTicket:
		return r.requireAdmin(chatID, func() error {
			if _, err := r.tickets.Claim(ctx, chatID, cb.ID); err != nil {
				return err
			}
			return r.chats.Invite(ctx, chatID, cb.ID)
		})
	case telegram.ActionStartChat:
		if err := r.chats.Accept(ctx, chatID, cb.ID); err != nil {
			return err
		}
		r.retireInvite(ctx, chatID, messageID, fmt.Sprintf("✅ Чат по обращению #%d начат.", cb.ID))
		return nil
	case telegram.ActionDeclineChat:
		if err := r.chats.Decline(ctx, chatID, cb.ID); err != nil {
			return err
		}
		r.retireInvite(ctx, chatID, messageID, fmt.Sprintf("Приглашение в чат по обращению #%d отклонено.", cb.ID))
		return nil
	case telegram.ActionEndChat, telegram.ActionCancelChat:
		return r.chats.End(ctx, chatID, cb.ID)
	case telegram.ActionAdminCancelChat:
		return r.requireAdmin(chatID, func() error {
			return r.chats.CancelInvite(ctx, chatID, cb.ID)
		})
	case telegram.ActionSelectUser:
		return r.requireAdmin(chatID, func() error {
			return r.finishUserSearch(ctx, chatID, strconv.FormatInt(cb.ID, 10))
		})
	default:
		return nil
	}
}

// retireInvite rewrites the invitation message so its buttons disappear
// once the user has answered. Edit failures only get logged.
func (r *Router) retireInvite(ctx context.Context, chatID int64, messageID int, text string) {
	if messageID == 0 {
		return
	}
	if err := r.transport.EditMessageText(ctx, chatID, messageID, text); err != nil {
		r.logger.Debug("invite edit failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) requireAdmin(chatID int64, fn func() error) error {
	if !r.isAdmin(chatID) {
		return util.NewForbidden("admin only")
	}
	return fn()
}

// moderateSelected runs an action against the admin's currently selected
// account and reshows the card.
func (r *Router) moderateSelected(ctx context.Context, adminID int64, action func(targetID int64) error) error {
	return r.requireAdmin(adminID, func() error {
		state, err := r.sessions.Get(ctx, adminID)
		if err != nil {
			return err
		}
		if state.Mode != session.ModeAdminUserSelected || state.TargetID == 0 {
			return util.NewSessionDesync("no user selected")
		}
		if err := action(state.TargetID); err != nil {
			return err
		}
		return r.finishUserSearch(ctx, adminID, strconv.FormatInt(state.TargetID, 10))
	})
}

func (r *Router) grantPrivilege(ctx context.Context, adminID int64, name string) error {
	return r.moderateSelected(ctx, adminID, func(targetID int64) error {
		return r.users.GrantPrivilege(ctx, targetID, name)
	})
}

func (r *Router) startTicketForm(ctx context.Context, chatID int64, theme string) error {
	state := &session.State{Mode: session.ModeAwaitingTicketText}
	state.SetForm(formTheme, theme)
	if err := r.sessions.Put(ctx, chatID, state); err != nil {
		return err
	}
	return r.transport.SendText(ctx, chatID, "Опишите ваш вопрос одним сообщением:")
}

func (r *Router) startSellForm(ctx context.Context, chatID int64) error {
	state := &session.State{Mode: session.ModeSellPhoto}
	if err := r.sessions.Put(ctx, chatID, state); err != nil {
		return err
	}
	return r.transport.SendText(ctx, chatID, "Отправьте фото товара или напишите «пропустить».")
}

func (r *Router) confirmSellForm(ctx context.Context, chatID int64) error {
	state, err := r.sessions.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if state.Mode != session.ModeSellConfirm {
		return util.NewSessionDesync("no listing to confirm")
	}
	user, err := r.users.Find(ctx, strconv.FormatInt(chatID, 10))
	if err != nil {
		return err
	}
	if ok, remaining := r.users.CanPost(user); !ok {
		return r.transport.SendText(ctx, chatID,
			fmt.Sprintf("⏳ Подождите ещё %d мин. перед следующим объявлением.", int(remaining.Minutes())+1))
	}
	post, err := r.posts.PublishListing(ctx, user, service.ListingInput{
		PhotoID:     state.FormValue(formPhoto),
		Title:       state.FormValue(formTitle),
		RawPrice:    state.FormValue(formPrice),
		Description: state.FormValue(formDescription),
	})
	if err != nil {
		return err
	}
	if err := r.sessions.Clear(ctx, chatID); err != nil {
		return err
	}
	return r.transport.SendText(ctx, chatID,
		fmt.Sprintf("✅ Объявление #%d опубликовано.", post.ID))
}

func (r *Router) startUserSearch(ctx context.Context, adminID int64, mode session.Mode, prompt string) error {
	if err := r.sessions.Put(ctx, adminID, &session.State{Mode: mode}); err != nil {
		return err
	}
	return r.transport.SendText(ctx, adminID, prompt)
}

func (r *Router) listOwnTickets(ctx context.Context, chatID int64) error {
	tickets, err := r.tickets.ListUserTickets(ctx, chatID)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		return r.transport.SendText(ctx, chatID, "У вас нет обращений.")
	}
	return r.transport.SendWithKeyboard(ctx, chatID, "📋 Ваши обращения:",
		telegram.UserTicketListKeyboard(tickets))
}

func (r *Router) listAdminQueue(ctx context.Context, adminID int64) error {
	queue, err := r.tickets.ListOpenTickets(ctx)
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		return r.transport.SendText(ctx, adminID, "Открытых обращений нет.")
	}
	return r.transport.SendWithKeyboard(ctx, adminID, "📬 Открытые обращения:",
		telegram.AdminTicketListKeyboard(queue))
}

func (r *Router) showReferralInfo(ctx context.Context, chatID int64) error {
	user, err := r.users.Find(ctx, strconv.FormatInt(chatID, 10))
	if err != nil {
		return err
	}
	text := fmt.Sprintf("👥 Ваша реферальная ссылка:\n%s\n\nПриглашено: %d",
		service.ReferralLink(r.botUsername, chatID), user.ReferralsCount)
	return r.transport.SendText(ctx, chatID, text)
}

func (r *Router) showStats(ctx context.Context, adminID int64) error {
	stats, err := r.users.Stats(ctx)
	if err != nil {
		return err
	}
	fresh, inProgress, err := r.tickets.CountOpen(ctx)
	if err != nil {
		return err
	}
	updates, errCounts := r.metrics.Snapshot()
	var handled, failed int64
	for _, n := range updates {
		handled += n
	}
	for _, n := range errCounts {
		failed += n
	}
	text := fmt.Sprintf(
		"📊 Статистика\n\nПользователей: %d\nЗаблокировано: %d\nОбъявлений: %d\nОбращений новых: %d\nОбращений в работе: %d\n\nОбновлений за сессию: %d\nОшибок за сессию: %d",
		stats.UsersTotal, stats.UsersBanned, stats.PostsTotal, fresh, inProgress, handled, failed)
	return r.transport.SendText(ctx, adminID, text)
}
