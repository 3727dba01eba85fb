package application

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	repo "github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/pkg/apperror"
	"github.com/eduviet/eduviet-server/pkg/gateway"
	"github.com/eduviet/eduviet-server/pkg/mailer"
)

// BillingService owns the package catalog, checkout and the entitlement
// activation workflow driven by gateway callbacks.
type BillingService struct {
	Store       repo.Store
	Gateway     *gateway.Client
	Logger      *logrus.Logger
	CompanyName string
}

func NewBillingService(store repo.Store, gw *gateway.Client, logger *logrus.Logger, company string) *BillingService {
	return &BillingService{Store: store, Gateway: gw, Logger: logger, CompanyName: company}
}

type PackageInput struct {
	Name         string
	Type         entity.PackageType
	DurationDays int
	Price        int64
	Currency     string
}

// CreatePackage adds a catalog entry. Admin only, enforced at the route.
func (s *BillingService) CreatePackage(ctx context.Context, in PackageInput) (*entity.Package, error) {
	if in.DurationDays <= 0 {
		return nil, apperror.InvalidInput("duration_days must be positive")
	}
	if in.Price < 0 {
		return nil, apperror.InvalidInput("price must not be negative")
	}
	if in.Currency == "" {
		in.Currency = "VND"
	}
	now := time.Now().UTC()
	p := &entity.Package{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Type:         in.Type,
		DurationDays: in.DurationDays,
		Price:        in.Price,
		Currency:     in.Currency,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Packages().Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *BillingService) GetPackage(ctx context.Context, id string) (*entity.Package, error) {
	return s.Store.Packages().GetByID(ctx, id)
}

func (s *BillingService) ListPackages(ctx context.Context) ([]*entity.Package, error) {
	return s.Store.Packages().List(ctx)
}

type CheckoutResult struct {
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
}

// Checkout opens a pending purchase, subscription and payment sharing one
// transaction reference, and returns the signed gateway redirect URL. The
// reference is a millisecond timestamp per the gateway convention.
func (s *BillingService) Checkout(ctx context.Context, userID, packageID, method, clientIP string) (*CheckoutResult, error) {
	u, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	pkg, err := s.Store.Packages().GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, apperror.InvalidState("package %s is not for sale", pkg.Name)
	}

	now := time.Now().UTC()
	txnID := strconv.FormatInt(now.UnixMilli(), 10)

	err = s.Store.InTx(ctx, func(st repo.Store) error {
		purchase := &entity.Purchase{
			ID:            uuid.NewString(),
			UserID:        u.ID,
			PackageID:     pkg.ID,
			TransactionID: txnID,
			Status:        entity.PurchasePending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := st.Purchases().Create(ctx, purchase); err != nil {
			return err
		}
		sub := &entity.Subscription{
			ID:            uuid.NewString(),
			PurchaseID:    purchase.ID,
			UserID:        u.ID,
			TransactionID: txnID,
			Status:        entity.SubscriptionPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := st.Subscriptions().Create(ctx, sub); err != nil {
			return err
		}
		payment := &entity.Payment{
			ID:            uuid.NewString(),
			UserID:        u.ID,
			Amount:        pkg.Price,
			Currency:      pkg.Currency,
			Method:        method,
			Description:   "Purchase package " + pkg.Name,
			TransactionID: txnID,
			Status:        entity.PaymentPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return st.Payments().Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	payURL := s.Gateway.BuildPaymentURL(gateway.PaymentRequest{
		TxnRef:    txnID,
		Amount:    pkg.Price,
		Currency:  pkg.Currency,
		OrderInfo: "Purchase package " + pkg.Name,
		ClientIP:  clientIP,
		CreatedAt: now,
	})
	return &CheckoutResult{TransactionID: txnID, PaymentURL: payURL}, nil
}

type ReturnResult struct {
	TransactionID string `json:"transaction_id"`
	Success       bool   `json:"success"`
	Message       string `json:"message"`
}

// HandleReturn processes the browser redirect back from the gateway. The
// signature is verified and the activation applied; a tampered query changes
// nothing.
func (s *BillingService) HandleReturn(ctx context.Context, query url.Values) (*ReturnResult, error) {
	if !s.Gateway.VerifyCallback(query) {
		return nil, apperror.Integrity("callback signature mismatch")
	}
	txnID := gateway.TxnRef(query)
	success := gateway.ResponseCode(query) == gateway.ResponseSuccess

	if err := s.settle(ctx, txnID, success); err != nil {
		return nil, err
	}
	msg := "payment failed"
	if success {
		msg = "payment confirmed"
	}
	return &ReturnResult{TransactionID: txnID, Success: success, Message: msg}, nil
}

// HandleWebhook processes the server-to-server callback and answers with the
// gateway acknowledgment code.
func (s *BillingService) HandleWebhook(ctx context.Context, query url.Values) (rspCode, rspMessage string) {
	if !s.Gateway.VerifyCallback(query) {
		return gateway.RspBadChecksum, "invalid checksum"
	}
	txnID := gateway.TxnRef(query)
	success := gateway.ResponseCode(query) == gateway.ResponseSuccess

	err := s.settle(ctx, txnID, success)
	switch {
	case err == nil:
		return gateway.RspConfirmed, "confirm success"
	case apperror.Is(err, apperror.KindNotFound):
		return gateway.RspOrderNotFound, "order not found"
	default:
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("txn_id", txnID).Error("webhook settlement failed")
		}
		return gateway.RspInternalError, "internal error"
	}
}

// settle records the gateway outcome. On success the purchase transitions
// pending -> success exactly once; a duplicate callback finds zero rows and
// the whole activation becomes a no-op. Payment status is updated either way.
func (s *BillingService) settle(ctx context.Context, txnID string, success bool) error {
	return s.Store.InTx(ctx, func(st repo.Store) error {
		payment, err := st.Payments().GetByTransactionID(ctx, txnID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()

		if !success {
			if payment.Status == entity.PaymentPending {
				if err := st.Payments().Settle(ctx, txnID, entity.PaymentFailed, now); err != nil {
					return err
				}
			}
			return nil
		}

		transitioned, err := st.Purchases().MarkSuccess(ctx, txnID)
		if err != nil {
			return err
		}
		if !transitioned {
			// Already activated by an earlier callback.
			return nil
		}
		if err := st.Payments().Settle(ctx, txnID, entity.PaymentSuccess, now); err != nil {
			return err
		}

		purchase, err := st.Purchases().GetByTransactionID(ctx, txnID)
		if err != nil {
			return err
		}
		pkg, err := st.Packages().GetByID(ctx, purchase.PackageID)
		if err != nil {
			return err
		}
		if err := st.Users().SetAccountPackage(ctx, purchase.UserID, pkg.Type); err != nil {
			return err
		}
		end := now.AddDate(0, 0, pkg.DurationDays)
		if err := st.Subscriptions().Activate(ctx, txnID, now, end); err != nil {
			return err
		}

		user, err := st.Users().GetByID(ctx, purchase.UserID)
		if err != nil {
			return err
		}
		if err := st.Notifications().Create(ctx, &entity.Notification{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Title:     "Package activated",
			Body:      "Your " + pkg.Name + " package is active until " + end.Format("2006-01-02"),
			Kind:      "payment",
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return enqueueEmail(ctx, st, EventEmailPaymentReceipt, mailer.EmailJob{
			To:       user.Email,
			Template: mailer.TemplatePaymentReceipt,
			Data: map[string]any{
				"Fullname":      user.Fullname,
				"Amount":        pkg.Price,
				"Package":       pkg.Name,
				"TransactionID": txnID,
				"Company":       s.CompanyName,
			},
		})
	})
}

func (s *BillingService) ListPayments(ctx context.Context, userID string, page repo.Page) ([]*entity.Payment, int, error) {
	return s.Store.Payments().ListByUser(ctx, userID, page)
}

func (s *BillingService) GetPaymentStatus(ctx context.Context, txnID string) (*entity.Payment, error) {
	return s.Store.Payments().GetByTransactionID(ctx, txnID)
}
