package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	repo "github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/pkg/apperror"
	"github.com/eduviet/eduviet-server/pkg/helpers"
)

// InvitationService owns the invitation-code ledger: issuance, redemption,
// deactivation and the append-only redemption history.
type InvitationService struct {
	Store  repo.Store
	Redis  *redis.Client
	Logger *logrus.Logger
}

func NewInvitationService(store repo.Store, rdb *redis.Client, logger *logrus.Logger) *InvitationService {
	return &InvitationService{Store: store, Redis: rdb, Logger: logger}
}

const (
	inviteCacheTTL    = 5 * time.Minute
	followOnUses      = 100
	issueRetryOnClash = 3
)

func inviteCacheKey(id string) string { return "invite:id:" + id }

type IssueInput struct {
	Event       string
	Description string
	Type        entity.InvitationCodeType
	TotalUses   int
	StartedAt   time.Time
	ExpiredAt   *time.Time
	IsSystem    bool
}

// Issue creates a new invitation code owned by creatorID. The random middle
// segment makes clashes rare; when the unique index still fires the insert is
// retried with fresh digits before the conflict is surfaced.
func (s *InvitationService) Issue(ctx context.Context, creatorID string, in IssueInput) (*entity.InvitationCode, error) {
	creator, err := s.Store.Users().GetByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !creator.Role.CanInvite() {
		return nil, apperror.Forbidden("role %s cannot issue invitation codes", creator.Role)
	}
	return issueWithin(ctx, s.Store, creator, in)
}

// issueWithin performs the actual insert against the given store so the
// registration workflow can run it inside its own transaction.
func issueWithin(ctx context.Context, st repo.Store, creator *entity.User, in IssueInput) (*entity.InvitationCode, error) {
	if in.TotalUses <= 0 {
		return nil, apperror.InvalidInput("total_uses must be positive")
	}
	if in.StartedAt.IsZero() {
		in.StartedAt = time.Now().UTC()
	}
	if in.ExpiredAt != nil && !in.ExpiredAt.After(in.StartedAt) {
		return nil, apperror.InvalidInput("expired_at must be after started_at")
	}

	var lastErr error
	for attempt := 0; attempt < issueRetryOnClash; attempt++ {
		code, err := helpers.GenInvitationCode(in.Event, creator.ID)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		now := time.Now().UTC()
		c := &entity.InvitationCode{
			ID:          uuid.NewString(),
			Code:        code,
			Event:       in.Event,
			Description: in.Description,
			Type:        in.Type,
			TotalUses:   in.TotalUses,
			UsesLeft:    in.TotalUses,
			StartedAt:   in.StartedAt,
			ExpiredAt:   in.ExpiredAt,
			IsSystem:    in.IsSystem,
			IsActive:    true,
			CreatedBy:   creator.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err = st.Invitations().Create(ctx, c)
		if err == nil {
			return c, nil
		}
		if !apperror.Is(err, apperror.KindConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Redeem consumes one use of the code for redeemerID and appends an accepted
// history row. Decrement and history land in one transaction.
func (s *InvitationService) Redeem(ctx context.Context, code, redeemerID string) (*entity.HistoryInvitation, error) {
	var hist *entity.HistoryInvitation
	err := s.Store.InTx(ctx, func(st repo.Store) error {
		h, err := redeemWithin(ctx, st, code, redeemerID, time.Now().UTC())
		if err != nil {
			return err
		}
		hist = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hist, nil
}

// redeemWithin checks every redemption precondition against the given store
// and applies the decrement plus history append. Callers own the transaction.
func redeemWithin(ctx context.Context, st repo.Store, code, redeemerID string, now time.Time) (*entity.HistoryInvitation, error) {
	c, err := st.Invitations().GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !c.Redeemable(now) {
		return nil, apperror.InvalidState("invitation code %s is not redeemable", code)
	}
	issuer, err := st.Users().GetByID(ctx, c.CreatedBy)
	if err != nil {
		return nil, err
	}
	if issuer.Role == entity.RoleStudent {
		return nil, apperror.Forbidden("codes issued by students cannot be redeemed")
	}
	ok, err := st.Invitations().ConsumeUse(ctx, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.InvalidState("invitation code %s has no uses left", code)
	}
	h := &entity.HistoryInvitation{
		ID:        uuid.NewString(),
		UserID:    redeemerID,
		Code:      code,
		InvitedAt: now,
		Status:    entity.InvitationAccepted,
	}
	if err := st.Invitations().AppendHistory(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Get returns a code by id, served from a short-lived redis cache when warm.
func (s *InvitationService) Get(ctx context.Context, id string) (*entity.InvitationCode, error) {
	if s.Redis != nil {
		var cached entity.InvitationCode
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, inviteCacheKey(id), &cached); err == nil && ok {
			return &cached, nil
		}
	}
	c, err := s.Store.Invitations().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, inviteCacheKey(c.ID), c, inviteCacheTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("invite cache set failed")
		}
	}
	return c, nil
}

func (s *InvitationService) List(ctx context.Context, page repo.Page) ([]*entity.InvitationCode, int, error) {
	return s.Store.Invitations().List(ctx, page)
}

// Deactivate turns the code off. Only the creator or an admin may do it;
// codes are never physically deleted.
func (s *InvitationService) Deactivate(ctx context.Context, id, actorID string) error {
	c, err := s.Store.Invitations().GetByID(ctx, id)
	if err != nil {
		return err
	}
	actor, err := s.Store.Users().GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.Role != entity.RoleAdmin && c.CreatedBy != actor.ID {
		return apperror.Forbidden("only the creator or an admin can deactivate a code")
	}
	if err := s.Store.Invitations().Deactivate(ctx, id); err != nil {
		return err
	}
	if s.Redis != nil {
		if err := helpers.RedisDel(ctx, s.Redis, inviteCacheKey(id)); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("id", id).Warn("invite cache invalidation failed")
		}
	}
	return nil
}

func (s *InvitationService) GetHistory(ctx context.Context, id string) (*entity.HistoryInvitation, error) {
	return s.Store.Invitations().GetHistory(ctx, id)
}

func (s *InvitationService) ListHistory(ctx context.Context, page repo.Page) ([]*entity.HistoryInvitation, int, error) {
	return s.Store.Invitations().ListHistory(ctx, page)
}

func (s *InvitationService) ListHistoryByCode(ctx context.Context, code string) ([]*entity.HistoryInvitation, error) {
	return s.Store.Invitations().ListHistoryByCode(ctx, code)
}
