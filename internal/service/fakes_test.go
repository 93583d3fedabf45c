package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5"

	"github.com/baraholka/marketbot/internal/domain"
	"github.com/baraholka/marketbot/internal/repository"
	"github.com/baraholka/marketbot/pkg/util"
)

func errDelivery(chatID int64) error {
	return util.NewDeliveryError(fmt.Errorf("chat %d unreachable", chatID))
}

type fakeTicketRepo struct {
	tickets map[int64]domain.Ticket
	nextID  int64
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[int64]domain.Ticket{}, nextID: 1}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = f.nextID
	f.nextID++
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusNew
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (f *fakeTicketRepo) ListByStatus(_ context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, t := range f.tickets {
		if t.Status == status {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeTicketRepo) ListByOwner(_ context.Context, userID int64) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, t := range f.tickets {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeTicketRepo) ListByAdmin(_ context.Context, adminID int64, status domain.TicketStatus) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, t := range f.tickets {
		if t.Status == status && t.AdminID != nil && *t.AdminID == adminID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (f *fakeTicketRepo) UpdateStatus(_ context.Context, id int64, status domain.TicketStatus, adminID *int64) error {
	ticket, ok := f.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Status = status
	if adminID != nil {
		ticket.AdminID = adminID
	}
	f.tickets[id] = ticket
	return nil
}

func (f *fakeTicketRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.tickets, id)
	return nil
}

func (f *fakeTicketRepo) CountByStatus(_ context.Context, status domain.TicketStatus) (int, error) {
	count := 0
	for _, t := range f.tickets {
		if t.Status == status {
			count++
		}
	}
	return count, nil
}

type fakeMessageRepo struct {
	msgs   []domain.TicketMessage
	nextID int64
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{nextID: 1}
}

func (f *fakeMessageRepo) Append(_ context.Context, msg *domain.TicketMessage) error {
	msg.ID = f.nextID
	f.nextID++
	msg.CreatedAt = time.Now()
	f.msgs = append(f.msgs, *msg)
	return nil
}

func (f *fakeMessageRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketMessage, error) {
	var result []domain.TicketMessage
	for _, m := range f.msgs {
		if m.TicketID == ticketID {
			result = append(result, m)
		}
	}
	return result, nil
}

type fakeUserRepo struct {
	users map[int64]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]domain.User{}}
}

func (f *fakeUserRepo) seed(user domain.User) {
	if user.Privilege == "" {
		user.Privilege = domain.PrivilegeUser
	}
	f.users[user.ID] = user
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *domain.User) error {
	existing, ok := f.users[user.ID]
	if ok {
		existing.Username = user.Username
		f.users[user.ID] = existing
		*user = existing
		return nil
	}
	user.CreatedAt = time.Now()
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) SetBanned(_ context.Context, id int64, banned bool) error {
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Banned = banned
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) SetPrivilege(_ context.Context, id int64, privilege domain.Privilege) error {
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Privilege = privilege
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) ResetAccount(_ context.Context, id int64) error {
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Privilege = domain.PrivilegeUser
	user.PostsCount = 0
	user.ReferralsCount = 0
	user.LastPostTime = nil
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) ResetCooldown(_ context.Context, id int64) error {
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.LastPostTime = nil
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) RecordPost(_ context.Context, id int64, at time.Time) error {
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PostsCount++
	user.LastPostTime = &at
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) IncrementReferrals(_ context.Context, id int64) error {
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.ReferralsCount++
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) Counts(_ context.Context) (int, int, error) {
	banned := 0
	for _, user := range f.users {
		if user.Banned {
			banned++
		}
	}
	return len(f.users), banned, nil
}

type fakeReferralRepo struct {
	referred map[int64]int64
}

func newFakeReferralRepo() *fakeReferralRepo {
	return &fakeReferralRepo{referred: map[int64]int64{}}
}

func (f *fakeReferralRepo) Add(_ context.Context, referral *domain.Referral) error {
	if _, ok := f.referred[referral.ReferredID]; ok {
		return repository.ErrAlreadyReferred
	}
	f.referred[referral.ReferredID] = referral.ReferrerID
	return nil
}

func (f *fakeReferralRepo) CountByReferrer(_ context.Context, referrerID int64) (int, error) {
	count := 0
	for _, id := range f.referred {
		if id == referrerID {
			count++
		}
	}
	return count, nil
}

type fakePostRepo struct {
	posts  []domain.Post
	nextID int64
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{nextID: 1}
}

func (f *fakePostRepo) Create(_ context.Context, post *domain.Post) error {
	post.ID = f.nextID
	f.nextID++
	post.CreatedAt = time.Now()
	f.posts = append(f.posts, *post)
	return nil
}

func (f *fakePostRepo) CountAll(_ context.Context) (int, error) {
	return len(f.posts), nil
}

type sentMessage struct {
	ChatID int64
	Text   string
	Temp   bool
	Photo  bool
}

// fakeTransport records outbound traffic and can refuse delivery to
// selected chats to model blocked recipients.
type fakeTransport struct {
	sent    []sentMessage
	blocked map[int64]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{blocked: map[int64]bool{}}
}

func (f *fakeTransport) deliveryError(chatID int64) error {
	if f.blocked[chatID] {
		return errDelivery(chatID)
	}
	return nil
}

func (f *fakeTransport) SendText(_ context.Context, chatID int64, text string) error {
	if err := f.deliveryError(chatID); err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (f *fakeTransport) SendWithKeyboard(_ context.Context, chatID int64, text string, _ tgbotapi.InlineKeyboardMarkup) error {
	if err := f.deliveryError(chatID); err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (f *fakeTransport) SendTemp(_ context.Context, chatID int64, text string, _ time.Duration) error {
	if err := f.deliveryError(chatID); err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Temp: true})
	return nil
}

func (f *fakeTransport) SendPhoto(_ context.Context, chatID int64, _, caption string) error {
	if err := f.deliveryError(chatID); err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: caption, Photo: true})
	return nil
}

func (f *fakeTransport) EditMessageText(_ context.Context, chatID int64, _ int, text string) error {
	if err := f.deliveryError(chatID); err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (f *fakeTransport) AnswerCallback(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeTransport) textsFor(chatID int64) []string {
	var texts []string
	for _, m := range f.sent {
		if m.ChatID == chatID {
			texts = append(texts, m.Text)
		}
	}
	return texts
}
