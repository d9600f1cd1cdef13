package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/honey-shop/api/background"
	"github.com/irsalhamdi/honey-shop/api/middleware"
	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/config"
	"github.com/irsalhamdi/honey-shop/core/auth"
	"github.com/irsalhamdi/honey-shop/core/cart"
	"github.com/irsalhamdi/honey-shop/core/category"
	"github.com/irsalhamdi/honey-shop/core/country"
	"github.com/irsalhamdi/honey-shop/core/order"
	"github.com/irsalhamdi/honey-shop/core/product"
	"github.com/irsalhamdi/honey-shop/core/review"
	"github.com/irsalhamdi/honey-shop/core/shipping"
	"github.com/irsalhamdi/honey-shop/core/token"
	"github.com/irsalhamdi/honey-shop/core/user"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/printing"
	"github.com/irsalhamdi/honey-shop/rate"
	"github.com/irsalhamdi/honey-shop/storage"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

// langPrefix lets every route be reached with a language segment in front,
// as in /lv/products.
const langPrefix = "/{lang:en|lv}"

type APIConfig struct {
	CorsOrigin         string
	Log                logrus.FieldLogger
	DB                 *sqlx.DB
	Session            *scs.SessionManager
	Mailer             token.Mailer
	TokenTimeout       time.Duration
	TokenLimiter       *rate.Limiter
	Background         *background.Background
	Paypal             *paypal.Client
	PaypalCfg          config.Paypal
	Stripe             *stripecl.API
	StripeCfg          config.Stripe
	Providers          map[string]auth.Provider
	LoginRedirectURL   string
	ActivationRequired bool
	Pricer             cart.Pricer
	Fallback           shipping.Fallback
	Notifier           order.Notifier
	Uploader           storage.Uploader
	Printer            printing.Renderer
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Language())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())
	a.mw = append(a.mw, auth.Identify(cfg.Session))

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)

	a.Handle(http.MethodGet, "/health", handleHealth(cfg.DB))

	signup := auth.Signup{
		Mailer:             cfg.Mailer,
		TokenTTL:           cfg.TokenTimeout,
		ActivationRequired: cfg.ActivationRequired,
	}
	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session, signup))
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodPost, "/tokens", token.HandleToken(cfg.DB, cfg.Mailer, cfg.TokenTimeout, cfg.Background, cfg.TokenLimiter))
	a.Handle(http.MethodPost, "/tokens/activate", token.HandleActivation(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/tokens/recover", token.HandleRecovery(cfg.DB))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/current", user.HandleUpdateCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/current/address", user.HandleUpdateAddress(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/current/payment-method", user.HandleUpdatePaymentMethod(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users/{id}", user.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users", user.HandleList(cfg.DB), admin)
	a.Handle(http.MethodPost, "/users", user.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/users/{id}", user.HandleUpdate(cfg.DB), admin)
	a.Handle(http.MethodDelete, "/users/{id}", user.HandleDelete(cfg.DB), admin)

	a.Handle(http.MethodGet, "/products/latest", product.HandleLatest(cfg.DB))
	a.Handle(http.MethodGet, "/products/featured", product.HandleFeatured(cfg.DB))
	a.Handle(http.MethodGet, "/products/slug/{slug}", product.HandleShowBySlug(cfg.DB))
	a.Handle(http.MethodGet, "/products/{product_id}/reviews/mine", review.HandleShowMine(cfg.DB), authen)
	a.Handle(http.MethodGet, "/products/{product_id}/reviews", review.HandleListByProduct(cfg.DB))
	a.Handle(http.MethodGet, "/products/{id}", product.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/products", product.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/products", product.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/products/{id}", product.HandleUpdate(cfg.DB), admin)
	a.Handle(http.MethodDelete, "/products/{id}", product.HandleDelete(cfg.DB), admin)

	a.Handle(http.MethodPost, "/reviews", review.HandleSave(cfg.DB), authen)

	a.Handle(http.MethodGet, "/categories", category.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/categories", category.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/categories/{id}", category.HandleUpdate(cfg.DB), admin)
	a.Handle(http.MethodDelete, "/categories/{id}", category.HandleDelete(cfg.DB), admin)

	a.Handle(http.MethodGet, "/countries", country.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/countries", country.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/countries/{id}", country.HandleUpdate(cfg.DB), admin)
	a.Handle(http.MethodDelete, "/countries/{id}", country.HandleDelete(cfg.DB), admin)

	rules := cfg.Pricer.Rules
	a.Handle(http.MethodGet, "/shipping/quote", shipping.HandleQuote(rules, cfg.Fallback))
	a.Handle(http.MethodGet, "/shipping/rules/{id}", shipping.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/shipping/rules", shipping.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/shipping/rules", shipping.HandleCreate(cfg.DB, rules), admin)
	a.Handle(http.MethodPut, "/shipping/rules/{id}", shipping.HandleUpdate(cfg.DB, rules), admin)
	a.Handle(http.MethodDelete, "/shipping/rules/{id}", shipping.HandleDelete(cfg.DB, rules), admin)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.DB, cfg.Session))
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/cart/items", cart.HandleAddItem(cfg.DB, cfg.Session, cfg.Pricer))
	a.Handle(http.MethodDelete, "/cart/items/{product_id}", cart.HandleRemoveItem(cfg.DB, cfg.Session, cfg.Pricer))
	a.Handle(http.MethodPut, "/cart/delivery-method", cart.HandleChangeDeliveryMethod(cfg.DB, cfg.Session, cfg.Pricer))

	a.Handle(http.MethodPost, "/orders/stripe/webhook", order.HandleStripeWebhook(cfg.DB, cfg.Notifier, cfg.StripeCfg))
	a.Handle(http.MethodGet, "/orders/summary", order.HandleSummary(cfg.DB), admin)
	a.Handle(http.MethodGet, "/orders/mine", order.HandleListMine(cfg.DB), authen)
	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.DB), admin)
	a.Handle(http.MethodPost, "/orders", order.HandleCreate(cfg.DB, cfg.Notifier), authen)
	a.Handle(http.MethodGet, "/orders/{id}/receipt", order.HandleReceipt(cfg.DB, cfg.Printer), authen)
	a.Handle(http.MethodPost, "/orders/{id}/stripe", order.HandleStripeIntent(cfg.DB, cfg.Stripe, cfg.StripeCfg), authen)
	a.Handle(http.MethodPost, "/orders/{id}/paypal", order.HandlePaypalCreate(cfg.DB, cfg.Paypal, cfg.PaypalCfg), authen)
	a.Handle(http.MethodPost, "/orders/{id}/paypal/capture", order.HandlePaypalCapture(cfg.DB, cfg.Notifier, cfg.Paypal), authen)
	a.Handle(http.MethodPut, "/orders/{id}/pay", order.HandleMarkPaid(cfg.DB, cfg.Notifier), admin)
	a.Handle(http.MethodPut, "/orders/{id}/ship", order.HandleShip(cfg.DB, cfg.Notifier), admin)
	a.Handle(http.MethodPut, "/orders/{id}/deliver", order.HandleDeliver(cfg.DB, cfg.Notifier), admin)
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/orders/{id}", order.HandleDelete(cfg.DB), admin)

	a.Handle(http.MethodPost, "/uploads", storage.HandleUpload(cfg.Uploader), admin)

	return a.Router
}

func handleHealth(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		status := struct {
			Status string `json:"status"`
		}{Status: "ok"}

		code := http.StatusOK
		if err := database.StatusCheck(ctx, db); err != nil {
			status.Status = "db not ready"
			code = http.StatusServiceUnavailable
		}

		return web.Respond(ctx, w, status, code)
	}
}

// Handle registers handler at path and at its language prefixed twin.
func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
	a.Router.Handle(langPrefix+path, h).Methods(method)
}
