package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	repo "github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/pkg/apperror"
	"github.com/eduviet/eduviet-server/pkg/helpers"
	"github.com/eduviet/eduviet-server/pkg/mailer"
)

// Outbox event types consumed by the dispatcher.
const (
	EventEmailVerification   = "email.verification"
	EventEmailWelcome        = "email.welcome"
	EventEmailPaymentReceipt = "email.payment_receipt"
	EventEmailPackageActive  = "email.package_activated"
)

const sessionTTL = 24 * time.Hour

// AuthService owns registration, login and session lifecycle.
type AuthService struct {
	Store          repo.Store
	JWT            *helpers.JWTManager
	Redis          *redis.Client
	Logger         *logrus.Logger
	CompanyName    string
	VerifyEmailURL string
}

func NewAuthService(store repo.Store, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger, company, verifyURL string) *AuthService {
	return &AuthService{
		Store:          store,
		JWT:            jwt,
		Redis:          rdb,
		Logger:         logger,
		CompanyName:    company,
		VerifyEmailURL: verifyURL,
	}
}

type RegisterInput struct {
	Fullname   string
	Username   string
	Email      string
	Password   string
	Role       entity.Role
	InviteCode string

	School    string
	ClassName string
	TeacherID string
	ParentID  string
}

// Register runs the registration workflow. All database steps share one
// transaction: if the invitation redemption or the follow-on issuance fails,
// no user row survives. The verification email goes through the outbox, so
// mail delivery never holds the transaction open.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	if err := validateRoleFields(in); err != nil {
		return nil, err
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	verifyCode, err := helpers.GenVerifyCode()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	var created *entity.User
	err = s.Store.InTx(ctx, func(st repo.Store) error {
		exists, err := st.Users().ExistsByEmailOrUsername(ctx, in.Email, in.Username)
		if err != nil {
			return err
		}
		if exists {
			return apperror.Conflict("email or username already exists")
		}

		now := time.Now().UTC()
		invitedBy := ""
		if in.Role == entity.RoleStudent && in.InviteCode != "" {
			c, err := st.Invitations().GetByCode(ctx, in.InviteCode)
			if err != nil {
				return err
			}
			issuer, err := st.Users().GetByID(ctx, c.CreatedBy)
			if err != nil {
				return err
			}
			if issuer.Role == entity.RoleStudent {
				return apperror.Forbidden("codes issued by students cannot be redeemed")
			}
			invitedBy = issuer.ID
		}

		slug, err := uniqueSlug(ctx, st, in.Fullname)
		if err != nil {
			return err
		}

		u := &entity.User{
			ID:             uuid.NewString(),
			Fullname:       in.Fullname,
			Username:       in.Username,
			Email:          in.Email,
			Password:       hash,
			Slug:           slug,
			Role:           in.Role,
			Status:         entity.StatusActive,
			AccountPackage: entity.PackageFree,
			School:         in.School,
			ClassName:      in.ClassName,
			TeacherID:      in.TeacherID,
			ParentID:       in.ParentID,
			InvitedBy:      invitedBy,
			IsVerified:     false,
			VerifyCode:     verifyCode,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := st.Users().Create(ctx, u); err != nil {
			return err
		}

		if in.Role == entity.RoleStudent && in.InviteCode != "" {
			if _, err := redeemWithin(ctx, st, in.InviteCode, u.ID, now); err != nil {
				return err
			}
		}

		if u.Role.CanInvite() {
			_, err := issueWithin(ctx, st, u, IssueInput{
				Event:     "welcome",
				Type:      entity.InviteGroupJoin,
				TotalUses: followOnUses,
				StartedAt: now,
			})
			if err != nil {
				return err
			}
		}

		if err := enqueueEmail(ctx, st, EventEmailVerification, mailer.EmailJob{
			To:       u.Email,
			Template: mailer.TemplateVerifyEmail,
			Data: map[string]any{
				"Fullname":  u.Fullname,
				"Code":      verifyCode,
				"VerifyURL": fmt.Sprintf("%s?email=%s&code=%s", s.VerifyEmailURL, u.Email, verifyCode),
				"Company":   s.CompanyName,
			},
		}); err != nil {
			return err
		}

		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func validateRoleFields(in RegisterInput) error {
	var missing []string
	switch in.Role {
	case entity.RoleStudent:
		if in.InviteCode == "" {
			if in.School == "" {
				missing = append(missing, "school")
			}
			if in.ClassName == "" {
				missing = append(missing, "class_name")
			}
			if in.TeacherID == "" {
				missing = append(missing, "teacher_id")
			}
			if in.ParentID == "" {
				missing = append(missing, "parent_id")
			}
		}
	case entity.RoleTeacher:
		if in.School == "" {
			missing = append(missing, "school")
		}
	case entity.RoleAdmin, entity.RoleParent:
	default:
		return apperror.InvalidInput("unknown role %q", in.Role)
	}
	if len(missing) > 0 {
		return apperror.InvalidInput("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// uniqueSlug derives a slug from the full name and de-duplicates it with a
// numeric suffix. Runs inside the registration transaction; the unique index
// on users.slug backstops races.
func uniqueSlug(ctx context.Context, st repo.Store, fullname string) (string, error) {
	base := helpers.Slugify(fullname)
	if base == "" {
		base = "user"
	}
	n, err := st.Users().CountSlugVariants(ctx, base)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return base, nil
	}
	return fmt.Sprintf("%s-%d", base, n+1), nil
}

// enqueueEmail writes an email job into the outbox as part of the ambient
// transaction.
func enqueueEmail(ctx context.Context, st repo.Store, eventType string, job mailer.EmailJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return apperror.Internal(err)
	}
	now := time.Now().UTC()
	return st.Outbox().Enqueue(ctx, &entity.OutboxEvent{
		ID:            uuid.NewString(),
		EventType:     eventType,
		Payload:       payload,
		Status:        entity.OutboxPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	})
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

type LoginResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
	Role     string `json:"role"`
	Slug     string `json:"slug"`
}

func sessionKey(userID string) string { return "user:session:" + userID }

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// Login validates credentials and issues a token pair plus a redis session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResponse, TokenPair, error) {
	u, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, TokenPair{}, apperror.Forbidden("invalid credentials")
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, TokenPair{}, apperror.Forbidden("invalid credentials")
	}
	if u.Status == entity.StatusBlocked || u.Status == entity.StatusDeleted {
		return nil, TokenPair{}, apperror.Forbidden("account is disabled")
	}
	pair, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	resp := &LoginResponse{UserID: u.ID, Email: u.Email, Fullname: u.Fullname, Role: string(u.Role), Slug: u.Slug}
	return resp, pair, nil
}

// issueTokens generates access/refresh tokens and records a session in Redis.
func (s *AuthService) issueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, string(u.Role), sid)
	if err != nil {
		return TokenPair{}, apperror.Internal(err)
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, string(u.Role), sid)
	if err != nil {
		return TokenPair{}, apperror.Internal(err)
	}

	if s.Redis != nil {
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"fullname":   u.Fullname,
			"role":       string(u.Role),
			"sid":        sid,
			"created_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, sessionTTL)
		if _, rErr := pipe.Exec(ctx); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// Refresh rotates the session id and both tokens. The refresh token's sid
// must match the current session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", apperror.Forbidden("invalid credentials")
	}
	u, err := s.Store.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, "", apperror.Forbidden("invalid credentials")
	}
	if s.Redis != nil {
		data, rErr := s.Redis.HGetAll(ctx, sessionKey(u.ID)).Result()
		if rErr != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return TokenPair{}, "", apperror.Forbidden("invalid credentials")
		}
	}
	pair, err := s.issueTokens(ctx, u)
	if err != nil {
		return TokenPair{}, "", err
	}
	return pair, u.ID, nil
}

// Logout drops the redis session.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if s.Redis == nil {
		return nil
	}
	return helpers.RedisDel(ctx, s.Redis, sessionKey(userID))
}

// VerifyEmail checks the 6-digit code dispatched at registration and flips
// the account to verified.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	u, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return nil
	}
	if code == "" || u.VerifyCode != code {
		return apperror.InvalidInput("verification code does not match")
	}
	return s.Store.Users().SetVerified(ctx, u.ID)
}

// ResendVerification rotates the verification code and enqueues a fresh email.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	code, err := helpers.GenVerifyCode()
	if err != nil {
		return apperror.Internal(err)
	}
	return s.Store.InTx(ctx, func(st repo.Store) error {
		u, err := st.Users().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if u.IsVerified {
			return apperror.InvalidState("account is already verified")
		}
		u.VerifyCode = code
		if err := st.Users().Update(ctx, u); err != nil {
			return err
		}
		return enqueueEmail(ctx, st, EventEmailVerification, mailer.EmailJob{
			To:       u.Email,
			Template: mailer.TemplateVerifyEmail,
			Data: map[string]any{
				"Fullname":  u.Fullname,
				"Code":      code,
				"VerifyURL": fmt.Sprintf("%s?email=%s&code=%s", s.VerifyEmailURL, u.Email, code),
				"Company":   s.CompanyName,
			},
		})
	})
}
