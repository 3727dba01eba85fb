package application

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	"github.com/eduviet/eduviet-server/pkg/apperror"
	"github.com/eduviet/eduviet-server/pkg/gateway"
)

func newTestBilling(store *memStore) *BillingService {
	gw := gateway.New(gateway.Config{
		TmnCode:    "EDUVIET1",
		HashSecret: "test-hash-secret",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://eduviet.vn/payments/return",
	})
	return NewBillingService(store, gw, quietLogger(), "EduViet")
}

func seedPackage(t *testing.T, store *memStore, id string, typ entity.PackageType, days int, price int64) *entity.Package {
	t.Helper()
	now := time.Now().UTC()
	p := &entity.Package{
		ID:           id,
		Name:         "Pkg " + id,
		Type:         typ,
		DurationDays: days,
		Price:        price,
		Currency:     "VND",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Packages().Create(context.Background(), p))
	return p
}

// signedCallback builds a gateway callback query carrying a valid signature
// over the given parameters.
func signedCallback(svc *BillingService, txnID, responseCode string) url.Values {
	params := map[string]string{
		"vnp_TxnRef":       txnID,
		"vnp_ResponseCode": responseCode,
		"vnp_Amount":       "19900000",
		"vnp_TmnCode":      "EDUVIET1",
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("vnp_SecureHash", svc.Gateway.Sign(params))
	return q
}

func checkoutFixture(t *testing.T, store *memStore, svc *BillingService) (userID, txnID string, pkg *entity.Package) {
	t.Helper()
	u := seedUser(t, store, "buyer1", entity.RoleTeacher, "buyer@eduviet.vn")
	pkg = seedPackage(t, store, "premium-m", entity.PackagePremium, 30, 199000)
	res, err := svc.Checkout(context.Background(), u.ID, pkg.ID, "vnpay", "203.0.113.9")
	require.NoError(t, err)
	return u.ID, res.TransactionID, pkg
}

func TestCheckoutCreatesPendingRows(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestBilling(store)
	userID, txnID, pkg := checkoutFixture(t, store, svc)

	payment, err := store.Payments().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentPending, payment.Status)
	assert.Equal(t, pkg.Price, payment.Amount)
	assert.Equal(t, userID, payment.UserID)

	purchase, err := store.Purchases().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchasePending, purchase.Status)
	assert.Equal(t, pkg.ID, purchase.PackageID)

	sub, err := store.Subscriptions().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionPending, sub.Status)
	assert.Nil(t, sub.StartDate)

	// User keeps the free tier until the gateway confirms.
	u, err := store.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, entity.PackagePremium, u.AccountPackage)
}

func TestCheckoutInactivePackage(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestBilling(store)
	u := seedUser(t, store, "buyer1", entity.RoleTeacher, "buyer@eduviet.vn")
	pkg := seedPackage(t, store, "legacy", entity.PackageBasic, 30, 99000)
	pkg.IsActive = false
	store.d.packages[pkg.ID] = *pkg

	_, err := svc.Checkout(ctx, u.ID, pkg.ID, "vnpay", "203.0.113.9")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestWebhookSuccessActivatesPackage(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestBilling(store)
	userID, txnID, pkg := checkoutFixture(t, store, svc)

	code, _ := svc.HandleWebhook(ctx, signedCallback(svc, txnID, "00"))
	assert.Equal(t, gateway.RspConfirmed, code)

	payment, err := store.Payments().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentSuccess, payment.Status)
	require.NotNil(t, payment.PaidAt)

	purchase, err := store.Purchases().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseSuccess, purchase.Status)

	sub, err := store.Subscriptions().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionActive, sub.Status)
	require.NotNil(t, sub.StartDate)
	require.NotNil(t, sub.EndDate)
	assert.Equal(t, sub.StartDate.AddDate(0, 0, pkg.DurationDays), *sub.EndDate)

	u, err := store.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, entity.PackagePremium, u.AccountPackage)

	notifs, _, err := store.Notifications().ListByUser(ctx, userID, pageAll())
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, "payment", notifs[0].Kind)

	due, err := store.Outbox().ListDue(ctx, 10, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, EventEmailPaymentReceipt, due[0].EventType)
}

func TestWebhookDuplicateCallbackIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestBilling(store)
	userID, txnID, _ := checkoutFixture(t, store, svc)

	code, _ := svc.HandleWebhook(ctx, signedCallback(svc, txnID, "00"))
	require.Equal(t, gateway.RspConfirmed, code)

	sub, err := store.Subscriptions().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	firstEnd := *sub.EndDate

	// Replay: acknowledged again, but nothing moves.
	code, _ = svc.HandleWebhook(ctx, signedCallback(svc, txnID, "00"))
	assert.Equal(t, gateway.RspConfirmed, code)

	sub, err = store.Subscriptions().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, firstEnd, *sub.EndDate)

	notifs, _, err := store.Notifications().ListByUser(ctx, userID, pageAll())
	require.NoError(t, err)
	assert.Len(t, notifs, 1)

	due, err := store.Outbox().ListDue(ctx, 10, time.Now().UTC())
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestWebhookFailureSettlesPaymentOnly(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestBilling(store)
	userID, txnID, _ := checkoutFixture(t, store, svc)

	code, _ := svc.HandleWebhook(ctx, signedCallback(svc, txnID, "24"))
	assert.Equal(t, gateway.RspConfirmed, code)

	payment, err := store.Payments().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentFailed, payment.Status)

	purchase, err := store.Purchases().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchasePending, purchase.Status)

	u, err := store.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, entity.PackagePremium, u.AccountPackage)
}

func TestWebhookBadChecksum(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestBilling(store)
	_, txnID, _ := checkoutFixture(t, store, svc)

	q := signedCallback(svc, txnID, "00")
	q.Set("vnp_Amount", "100") // tamper after signing

	code, _ := svc.HandleWebhook(ctx, q)
	assert.Equal(t, gateway.RspBadChecksum, code)

	payment, err := store.Payments().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentPending, payment.Status)
}

func TestWebhookUnknownOrder(t *testing.T) {
	svc := newTestBilling(newMemStore())
	code, _ := svc.HandleWebhook(context.Background(), signedCallback(svc, "1693000000000", "00"))
	assert.Equal(t, gateway.RspOrderNotFound, code)
}

func TestHandleReturnTamperedQueryChangesNothing(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestBilling(store)
	userID, txnID, _ := checkoutFixture(t, store, svc)

	q := signedCallback(svc, txnID, "00")
	q.Set("vnp_ResponseCode", "00")
	q.Set("vnp_TxnRef", txnID)
	q.Set("vnp_SecureHash", "deadbeef")

	_, err := svc.HandleReturn(ctx, q)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindIntegrity))

	payment, err := store.Payments().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentPending, payment.Status)

	sub, err := store.Subscriptions().GetByTransactionID(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionPending, sub.Status)

	u, err := store.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, entity.PackagePremium, u.AccountPackage)
}

func TestHandleReturnConfirmsPayment(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestBilling(store)
	_, txnID, _ := checkoutFixture(t, store, svc)

	res, err := svc.HandleReturn(ctx, signedCallback(svc, txnID, "00"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, txnID, res.TransactionID)
}

func TestCreatePackageValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestBilling(newMemStore())

	_, err := svc.CreatePackage(ctx, PackageInput{Name: "Bad", Type: entity.PackageBasic, DurationDays: 0, Price: 1000})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInvalidInput))

	p, err := svc.CreatePackage(ctx, PackageInput{Name: "Basic Monthly", Type: entity.PackageBasic, DurationDays: 30, Price: 99000})
	require.NoError(t, err)
	assert.Equal(t, "VND", p.Currency)
	assert.True(t, p.IsActive)

	_, err = svc.CreatePackage(ctx, PackageInput{Name: "Basic Monthly", Type: entity.PackageBasic, DurationDays: 30, Price: 99000})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}
