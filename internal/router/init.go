package router

import (
	"github.com/eduviet/eduviet-server/internal/application"
	"github.com/eduviet/eduviet-server/internal/container"
	handlers "github.com/eduviet/eduviet-server/internal/interface/http"
	"github.com/eduviet/eduviet-server/internal/router/modules"
	"github.com/eduviet/eduviet-server/pkg/helpers"
)

// InitModules builds every application service and handler from the
// container singletons and registers the feature modules. Called once
// during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	store := container.GetStore()
	logger := container.GetLogger()
	rdb := container.GetRedis()

	authSvc := application.NewAuthService(store, container.GetJWT(), rdb, logger, cfg.CompanyName, cfg.VerifyEmailURL)
	userSvc := application.NewUserService(store, container.GetGCS(), cfg.GCSBucket, rdb, logger, container.GetES(), cfg.ESUsersIndex)
	inviteSvc := application.NewInvitationService(store, rdb, logger)
	billingSvc := application.NewBillingService(store, container.GetGateway(), logger, cfg.CompanyName)
	notifySvc := application.NewNotificationService(store)

	cookies := helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure)

	authH := handlers.NewAuthHandler(authSvc, cookies, logger)
	userH := handlers.NewUserHandler(userSvc, logger)
	inviteH := handlers.NewInvitationHandler(inviteSvc, logger)
	paymentH := handlers.NewPaymentHandler(billingSvc, logger)
	notifyH := handlers.NewNotificationHandler(notifySvc)

	r.Add(modules.NewAuthModule(authH, container.GetJWT()))
	r.Add(modules.NewUserModule(userH, container.GetJWT()))
	r.Add(modules.NewInvitationModule(inviteH, container.GetJWT()))
	r.Add(modules.NewPaymentModule(paymentH, container.GetJWT()))
	r.Add(modules.NewNotificationModule(notifyH, container.GetJWT()))
	r.Add(modules.NewDebugModule())
}
