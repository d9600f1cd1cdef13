package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/config"
	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

const (
	stripeOrderKey    = "orderId"
	paypalCompleted   = "COMPLETED"
	stripeSucceeded   = "payment_intent.succeeded"
	maxWebhookPayload = 65536
)

// payable fetches an order of the caller that still awaits payment.
func payable(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	o, err := accessible(ctx, db, id)
	if err != nil {
		return Order{}, err
	}
	if o.IsPaid {
		return Order{}, rejection(ErrAlreadyPaid)
	}
	return o, nil
}

// cents converts a price to the minor currency unit.
func cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

type StripeIntent struct {
	ClientSecret   string `json:"clientSecret"`
	PublishableKey string `json:"publishableKey"`
}

// HandleStripeIntent opens a Stripe payment for the order total.
func HandleStripeIntent(db *sqlx.DB, strp *stripecl.API, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		o, err := payable(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		params := &stripe.PaymentIntentParams{
			Amount:             stripe.Int64(cents(o.TotalPrice)),
			Currency:           stripe.String(cfg.Currency),
			PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
			Description:        stripe.String(o.UserFacingID),
		}
		params.AddMetadata(stripeOrderKey, o.ID)

		pi, err := strp.PaymentIntents.New(params)
		if err != nil {
			return fmt.Errorf("creating stripe payment for order[%s]: %w", o.ID, err)
		}

		res := StripeIntent{ClientSecret: pi.ClientSecret, PublishableKey: cfg.PublishableKey}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

// HandleStripeWebhook marks orders paid when Stripe reports a succeeded
// payment. Repeated deliveries of the same event are acknowledged.
func HandleStripeWebhook(db *sqlx.DB, n Notifier, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookPayload))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		if event.Type != stripeSucceeded {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode stripe event: %w", err))
		}

		id := pi.Metadata[stripeOrderKey]
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(
				fmt.Errorf("stripe payment[%s] has no order: %w", pi.ID, err),
				weberr.WithFields(logrus.Fields{"stripe_event": event.ID}),
			)
		}

		res := PaymentResult{
			ID:           pi.ID,
			Status:       string(pi.Status),
			UpdateTime:   time.Unix(pi.Created, 0).UTC().Format(time.RFC3339),
			EmailAddress: pi.ReceiptEmail,
		}

		_, err = pay(ctx, db, n, id, res)
		if errors.Is(err, ErrAlreadyPaid) {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}
		if err != nil {
			return rejection(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

type PaypalOrder struct {
	ID string `json:"id"`
}

// HandlePaypalCreate opens a PayPal order for the order total.
func HandlePaypalCreate(db *sqlx.DB, pp *paypal.Client, cfg config.Paypal) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		o, err := payable(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		units := []paypal.PurchaseUnitRequest{{
			ReferenceID: o.ID,
			Description: o.UserFacingID,
			Amount: &paypal.PurchaseUnitAmount{
				Currency: cfg.Currency,
				Value:    o.TotalPrice.StringFixed(2),
			},
		}}

		ppo, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
		if err != nil {
			return fmt.Errorf("creating paypal order for order[%s]: %w", o.ID, err)
		}

		return web.Respond(ctx, w, PaypalOrder{ID: ppo.ID}, http.StatusOK)
	}
}

type PaypalCapture struct {
	PaypalOrderID string `json:"paypalOrderId" validate:"required"`
}

// HandlePaypalCapture captures an approved PayPal order and, once PayPal
// reports it completed, marks the order paid.
func HandlePaypalCapture(db *sqlx.DB, n Notifier, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in PaypalCapture
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return validate.Invalid(err)
		}

		o, err := payable(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		capture, err := pp.CaptureOrder(ctx, in.PaypalOrderID, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", in.PaypalOrderID, err)
		}

		if capture.Status != paypalCompleted {
			return rejection(fmt.Errorf("paypal order[%s] has status %s: %w", in.PaypalOrderID, capture.Status, ErrPaymentIncomplete))
		}
		for _, pu := range capture.PurchaseUnits {
			if pu.ReferenceID != "" && pu.ReferenceID != o.ID {
				return weberr.BadRequest(
					fmt.Errorf("paypal order[%s] does not pay order[%s]", in.PaypalOrderID, o.ID),
					weberr.WithFields(logrus.Fields{"paypal_reference": pu.ReferenceID}),
				)
			}
		}

		res := PaymentResult{
			ID:         capture.ID,
			Status:     capture.Status,
			UpdateTime: time.Now().UTC().Format(time.RFC3339),
		}
		if capture.Payer != nil {
			res.EmailAddress = capture.Payer.EmailAddress
		}

		o, err = pay(ctx, db, n, o.ID, res)
		if err != nil {
			return rejection(err)
		}

		out := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Order paid successfully"), Data: o}
		return web.Respond(ctx, w, out, http.StatusOK)
	}
}
