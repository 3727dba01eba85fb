package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	repo "github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/pkg/apperror"
)

func newTestInvitations(store *memStore) *InvitationService {
	return NewInvitationService(store, nil, quietLogger())
}

// clashingStore makes Invitations().Create report a duplicate code a fixed
// number of times before delegating to the real fake, recording every code
// the service attempted to insert.
type clashingStore struct {
	repo.Store
	clashes   *int
	attempted *[]string
}

func (s clashingStore) Invitations() repo.InvitationRepository {
	return clashingInvites{InvitationRepository: s.Store.Invitations(), clashes: s.clashes, attempted: s.attempted}
}

type clashingInvites struct {
	repo.InvitationRepository
	clashes   *int
	attempted *[]string
}

func (r clashingInvites) Create(ctx context.Context, c *entity.InvitationCode) error {
	*r.attempted = append(*r.attempted, c.Code)
	if *r.clashes > 0 {
		*r.clashes--
		return apperror.Conflict("invitation code already exists")
	}
	return r.InvitationRepository.Create(ctx, c)
}

func TestIssueRetriesWithFreshCodeOnClash(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	teacher := seedUser(t, store, "teacher1", entity.RoleTeacher, "teacher@eduviet.vn")

	clashes := 2
	var attempted []string
	svc := NewInvitationService(clashingStore{Store: store, clashes: &clashes, attempted: &attempted}, nil, quietLogger())

	c, err := svc.Issue(ctx, teacher.ID, IssueInput{Event: "summer", Type: entity.InviteTrial, TotalUses: 10})
	require.NoError(t, err)

	// Two clashes, then the third insert lands with regenerated digits.
	require.Len(t, attempted, 3)
	seen := map[string]bool{}
	for _, code := range attempted {
		seen[code] = true
	}
	assert.Len(t, seen, 3)
	assert.Equal(t, attempted[2], c.Code)

	got, err := store.Invitations().GetByCode(ctx, c.Code)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

func TestIssueSurfacesConflictAfterRepeatedClashes(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	teacher := seedUser(t, store, "teacher1", entity.RoleTeacher, "teacher@eduviet.vn")

	clashes := issueRetryOnClash
	var attempted []string
	svc := NewInvitationService(clashingStore{Store: store, clashes: &clashes, attempted: &attempted}, nil, quietLogger())

	_, err := svc.Issue(ctx, teacher.ID, IssueInput{Event: "summer", Type: entity.InviteTrial, TotalUses: 10})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Len(t, attempted, issueRetryOnClash)

	codes, _, err := store.Invitations().List(ctx, pageAll())
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestIssueAndGet(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestInvitations(store)
	teacher := seedUser(t, store, "teacher1", entity.RoleTeacher, "teacher@eduviet.vn")

	c, err := svc.Issue(ctx, teacher.ID, IssueInput{
		Event:     "summer trial",
		Type:      entity.InviteTrial,
		TotalUses: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, c.TotalUses)
	assert.Equal(t, 10, c.UsesLeft)
	assert.True(t, c.IsActive)
	assert.Equal(t, teacher.ID, c.CreatedBy)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Code, got.Code)
}

func TestIssueByStudentForbidden(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestInvitations(store)
	student := seedUser(t, store, "student1", entity.RoleStudent, "student@eduviet.vn")

	_, err := svc.Issue(ctx, student.ID, IssueInput{Event: "peer", Type: entity.InviteTrial, TotalUses: 5})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestIssueValidation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestInvitations(store)
	teacher := seedUser(t, store, "teacher1", entity.RoleTeacher, "teacher@eduviet.vn")

	_, err := svc.Issue(ctx, teacher.ID, IssueInput{Event: "x", Type: entity.InviteTrial, TotalUses: 0})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInvalidInput))

	started := time.Now().UTC()
	before := started.Add(-time.Hour)
	_, err = svc.Issue(ctx, teacher.ID, IssueInput{
		Event: "x", Type: entity.InviteTrial, TotalUses: 5,
		StartedAt: started, ExpiredAt: &before,
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInvalidInput))
}

func TestRedeemConsumesExactlyTotalUses(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestInvitations(store)
	teacher := seedUser(t, store, "teacher1", entity.RoleTeacher, "teacher@eduviet.vn")
	code := seedCode(t, store, "LIMITED_22222222_ABCD", teacher.ID, 3)

	for i := 0; i < 3; i++ {
		h, err := svc.Redeem(ctx, code.Code, fmt.Sprintf("redeemer-%d", i))
		require.NoError(t, err)
		assert.Equal(t, entity.InvitationAccepted, h.Status)
	}

	// The fourth redemption finds an exhausted code and changes nothing.
	_, err := svc.Redeem(ctx, code.Code, "redeemer-late")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	c, err := store.Invitations().GetByCode(ctx, code.Code)
	require.NoError(t, err)
	assert.Equal(t, 0, c.UsesLeft)
	hist, err := svc.ListHistoryByCode(ctx, code.Code)
	require.NoError(t, err)
	assert.Len(t, hist, 3)
}

func TestRedeemOutsideWindow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestInvitations(store)
	teacher := seedUser(t, store, "teacher1", entity.RoleTeacher, "teacher@eduviet.vn")

	now := time.Now().UTC()
	expired := now.Add(-time.Minute)
	c := &entity.InvitationCode{
		ID:        "code-old",
		Code:      "OLD_33333333_ABCD",
		Event:     "old",
		Type:      entity.InviteTrial,
		TotalUses: 5,
		UsesLeft:  5,
		StartedAt: now.Add(-time.Hour),
		ExpiredAt: &expired,
		IsActive:  true,
		CreatedBy: teacher.ID,
	}
	require.NoError(t, store.Invitations().Create(ctx, c))

	_, err := svc.Redeem(ctx, c.Code, "redeemer-1")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	future := &entity.InvitationCode{
		ID:        "code-future",
		Code:      "SOON_44444444_ABCD",
		Event:     "soon",
		Type:      entity.InviteTrial,
		TotalUses: 5,
		UsesLeft:  5,
		StartedAt: now.Add(time.Hour),
		IsActive:  true,
		CreatedBy: teacher.ID,
	}
	require.NoError(t, store.Invitations().Create(ctx, future))

	_, err = svc.Redeem(ctx, future.Code, "redeemer-1")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestRedeemUnknownCode(t *testing.T) {
	svc := newTestInvitations(newMemStore())
	_, err := svc.Redeem(context.Background(), "GHOST_55555555_ABCD", "redeemer-1")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDeactivateAuthorization(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestInvitations(store)
	teacher := seedUser(t, store, "teacher1", entity.RoleTeacher, "teacher@eduviet.vn")
	other := seedUser(t, store, "teacher2", entity.RoleTeacher, "other@eduviet.vn")
	admin := seedUser(t, store, "admin1", entity.RoleAdmin, "admin@eduviet.vn")
	code := seedCode(t, store, "GUARD_66666666_ABCD", teacher.ID, 5)

	err := svc.Deactivate(ctx, code.ID, other.ID)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	require.NoError(t, svc.Deactivate(ctx, code.ID, admin.ID))

	// Deactivated codes stay on record but stop redeeming.
	c, err := store.Invitations().GetByID(ctx, code.ID)
	require.NoError(t, err)
	assert.False(t, c.IsActive)

	_, err = svc.Redeem(ctx, code.Code, "redeemer-1")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestDeactivateByCreator(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestInvitations(store)
	teacher := seedUser(t, store, "teacher1", entity.RoleTeacher, "teacher@eduviet.vn")
	code := seedCode(t, store, "MINE_77777777_ABCD", teacher.ID, 5)

	require.NoError(t, svc.Deactivate(ctx, code.ID, teacher.ID))
}

func TestRedeemStudentIssuedCode(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestInvitations(store)
	student := seedUser(t, store, "student1", entity.RoleStudent, "student@eduviet.vn")
	code := seedCode(t, store, "PEER_88888888_ABCD", student.ID, 5)

	_, err := svc.Redeem(ctx, code.Code, "redeemer-1")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	// Nothing consumed, nothing recorded.
	c, err := store.Invitations().GetByCode(ctx, code.Code)
	require.NoError(t, err)
	assert.Equal(t, 5, c.UsesLeft)
	hist, err := svc.ListHistoryByCode(ctx, code.Code)
	require.NoError(t, err)
	assert.Empty(t, hist)
}
