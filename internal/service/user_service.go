package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baraholka/marketbot/internal/config"
	"github.com/baraholka/marketbot/internal/domain"
	"github.com/baraholka/marketbot/internal/events"
	"github.com/baraholka/marketbot/internal/repository"
	"github.com/baraholka/marketbot/pkg/util"
)

// Activity levels at which an account is promoted to VIP automatically.
const (
	vipPostsThreshold    = 50
	vipReferralThreshold = 20
)

const referralPayloadPrefix = "ref_"

// UserService manages marketplace accounts, referral rewards and the
// admin moderation actions on them.
type UserService struct {
	users      repository.UserRepository
	referrals  repository.ReferralRepository
	posts      repository.PostRepository
	dispatcher events.Dispatcher
	privileges map[string]config.PrivilegeConfig
}

// UserDependencies bundles collaborators for user service.
type UserDependencies struct {
	UserRepo     repository.UserRepository
	ReferralRepo repository.ReferralRepository
	PostRepo     repository.PostRepository
	Dispatcher   events.Dispatcher
	Privileges   map[string]config.PrivilegeConfig
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		referrals:  deps.ReferralRepo,
		posts:      deps.PostRepo,
		dispatcher: deps.Dispatcher,
		privileges: deps.Privileges,
	}
}

// EnsureUser registers the account on first contact and refreshes the
// username on every later one.
func (s *UserService) EnsureUser(ctx context.Context, id int64, username string) (*domain.User, error) {
	user := &domain.User{
		ID:        id,
		Username:  strings.TrimPrefix(username, "@"),
		Privilege: domain.PrivilegeUser,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, util.ToDomainError(err)
	}
	return user, nil
}

// HandleStartPayload processes the deep-link argument of /start. Only
// referral payloads are recognized; anything else is ignored.
func (s *UserService) HandleStartPayload(ctx context.Context, userID int64, payload string) error {
	if !strings.HasPrefix(payload, referralPayloadPrefix) {
		return nil
	}
	referrerID, err := strconv.ParseInt(strings.TrimPrefix(payload, referralPayloadPrefix), 10, 64)
	if err != nil {
		return nil
	}
	return s.RegisterReferral(ctx, referrerID, userID)
}

// RegisterReferral credits referrerID for bringing referredID in. Each
// account can be referred at most once; repeats and self-referrals are
// silently ignored.
func (s *UserService) RegisterReferral(ctx context.Context, referrerID, referredID int64) error {
	if referrerID == referredID {
		return nil
	}
	referrer, err := s.users.GetByID(ctx, referrerID)
	if err != nil {
		return nil
	}

	err = s.referrals.Add(ctx, &domain.Referral{ReferrerID: referrerID, ReferredID: referredID})
	if errors.Is(err, repository.ErrAlreadyReferred) {
		return nil
	}
	if err != nil {
		return util.ToDomainError(err)
	}
	if err := s.users.IncrementReferrals(ctx, referrerID); err != nil {
		return util.ToDomainError(err)
	}

	total, err := s.referrals.CountByReferrer(ctx, referrerID)
	if err != nil {
		return util.ToDomainError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventReferralAdded,
		ActorID: referredID,
		Payload: events.ReferralAddedPayload{ReferrerID: referrerID, ReferredID: referredID, Total: total},
	})

	if total >= vipReferralThreshold && referrer.Privilege == domain.PrivilegeUser {
		if err := s.users.SetPrivilege(ctx, referrerID, domain.PrivilegeVIP); err != nil {
			return util.ToDomainError(err)
		}
	}
	return nil
}

// CanPost reports whether the account's posting cooldown has elapsed and,
// when it has not, how long is left.
func (s *UserService) CanPost(user *domain.User) (bool, time.Duration) {
	if user.LastPostTime == nil {
		return true, 0
	}
	cooldown := s.CooldownFor(user.Privilege)
	elapsed := time.Since(*user.LastPostTime)
	if elapsed >= cooldown {
		return true, 0
	}
	return false, cooldown - elapsed
}

// CooldownFor returns the posting interval of a tier. Unknown tiers fall
// back to the base tier's interval.
func (s *UserService) CooldownFor(privilege domain.Privilege) time.Duration {
	tier, ok := s.privileges[string(privilege)]
	if !ok {
		tier = s.privileges[string(domain.PrivilegeUser)]
	}
	return time.Duration(tier.CooldownMinutes) * time.Minute
}

// RecordPost stamps a publication and promotes prolific sellers to VIP.
func (s *UserService) RecordPost(ctx context.Context, user *domain.User) error {
	if err := s.users.RecordPost(ctx, user.ID, time.Now()); err != nil {
		return util.ToDomainError(err)
	}
	user.PostsCount++
	if user.PostsCount >= vipPostsThreshold && user.Privilege == domain.PrivilegeUser {
		if err := s.users.SetPrivilege(ctx, user.ID, domain.PrivilegeVIP); err != nil {
			return util.ToDomainError(err)
		}
		user.Privilege = domain.PrivilegeVIP
	}
	return nil
}

// Find resolves an admin search query: a numeric query is a chat id,
// anything else a username with or without the @.
func (s *UserService) Find(ctx context.Context, query string) (*domain.User, error) {
	query = strings.TrimSpace(query)
	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, util.ToDomainError(err)
		}
		return user, nil
	}
	user, err := s.users.GetByUsername(ctx, strings.TrimPrefix(query, "@"))
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	return user, nil
}

// SetBanned blocks or unblocks an account.
func (s *UserService) SetBanned(ctx context.Context, adminID, userID int64, banned bool) error {
	if err := s.users.SetBanned(ctx, userID, banned); err != nil {
		return util.ToDomainError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventUserBanned,
		ActorID: adminID,
		Payload: events.UserBannedPayload{UserID: userID, Banned: banned},
	})
	return nil
}

// ResetAccount wipes an account's counters, privilege and cooldown.
func (s *UserService) ResetAccount(ctx context.Context, userID int64) error {
	if err := s.users.ResetAccount(ctx, userID); err != nil {
		return util.ToDomainError(err)
	}
	return nil
}

// ResetCooldown lets an account post again immediately.
func (s *UserService) ResetCooldown(ctx context.Context, userID int64) error {
	if err := s.users.ResetCooldown(ctx, userID); err != nil {
		return util.ToDomainError(err)
	}
	return nil
}

// GrantPrivilege assigns a tier by its configured name.
func (s *UserService) GrantPrivilege(ctx context.Context, userID int64, name string) error {
	if _, ok := s.privileges[name]; !ok {
		return util.NewValidationError("unknown privilege", map[string]any{"name": name})
	}
	if err := s.users.SetPrivilege(ctx, userID, domain.Privilege(name)); err != nil {
		return util.ToDomainError(err)
	}
	return nil
}

// PrivilegeNames lists grantable tiers in a stable order.
func (s *UserService) PrivilegeNames() []string {
	names := make([]string, 0, len(s.privileges))
	for _, name := range []string{"user", "vip", "premium", "god", "ultra_seller"} {
		if _, ok := s.privileges[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// MarketStats is the account side of the admin dashboard.
type MarketStats struct {
	UsersTotal  int
	UsersBanned int
	PostsTotal  int
}

// Stats aggregates account and listing counters.
func (s *UserService) Stats(ctx context.Context) (*MarketStats, error) {
	total, banned, err := s.users.Counts(ctx)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	posts, err := s.posts.CountAll(ctx)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	return &MarketStats{UsersTotal: total, UsersBanned: banned, PostsTotal: posts}, nil
}

// ReferralLink builds the deep link an account shares to earn referrals.
func ReferralLink(botUsername string, userID int64) string {
	return "https://t.me/" + botUsername + "?start=" + referralPayloadPrefix + strconv.FormatInt(userID, 10)
}

func (s *UserService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
