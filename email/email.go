// Package email sends the transactional messages of the shop through the
// Resend API.
package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/resend/resend-go/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":  func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}).ParseFS(templateFS, "templates/*.html"))

var ErrUnavailable = errors.New("mail provider unavailable")

type Links struct {
	ActivationURL string
	RecoveryURL   string
	OrderURL      string
}

// sender is the part of the Resend emails service the mailer uses.
type sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type Mailer struct {
	from  string
	links Links
	send  sender
	cb    *gobreaker.CircuitBreaker[*resend.SendEmailResponse]
}

// New builds a mailer sending as from with the given Resend API key.
func New(from, apiKey string, links Links) *Mailer {
	client := resend.NewClient(apiKey)

	return &Mailer{
		from:  from,
		links: links,
		send:  client.Emails,
		cb:    newBreaker(),
	}
}

// newBreaker stops calling the provider for a minute after five failures
// in a row.
func newBreaker() *gobreaker.CircuitBreaker[*resend.SendEmailResponse] {
	return gobreaker.NewCircuitBreaker[*resend.SendEmailResponse](gobreaker.Settings{
		Name:        "resend",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})
}

type tokenData struct {
	Link  string
	Token string
}

func (m *Mailer) SendActivationToken(ctx context.Context, to string, token string) error {
	data := tokenData{Link: m.links.ActivationURL + "?token=" + token, Token: token}
	return m.deliver(ctx, to, i18n.Sprintf(ctx, "Activate your account"), "activation.html", data)
}

func (m *Mailer) SendRecoveryToken(ctx context.Context, to string, token string) error {
	data := tokenData{Link: m.links.RecoveryURL + "?token=" + token, Token: token}
	return m.deliver(ctx, to, i18n.Sprintf(ctx, "Reset your password"), "recovery.html", data)
}

// Receipt is the purchase confirmation of a paid order.
type Receipt struct {
	OrderID        string
	UserFacingID   string
	CustomerName   string
	Address        string
	DeliveryMethod string
	PaymentMethod  string
	PaidAt         time.Time
	Items          []ReceiptItem
	ItemsPrice     decimal.Decimal
	ShippingPrice  decimal.Decimal
	TaxPrice       decimal.Decimal
	TotalPrice     decimal.Decimal
	Link           string
}

type ReceiptItem struct {
	Name  string
	Qty   int
	Price decimal.Decimal
}

func (m *Mailer) SendReceipt(ctx context.Context, to string, r Receipt) error {
	if r.Link == "" && m.links.OrderURL != "" {
		r.Link = m.links.OrderURL + "/" + r.OrderID
	}
	subject := i18n.Sprintf(ctx, "Purchase receipt for order %s", r.UserFacingID)
	return m.deliver(ctx, to, subject, "receipt.html", r)
}

// ReceiptHTML renders the receipt as a standalone HTML document.
func ReceiptHTML(r Receipt) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "receipt.html", r); err != nil {
		return "", fmt.Errorf("rendering receipt: %w", err)
	}
	return buf.String(), nil
}

func (m *Mailer) deliver(ctx context.Context, to, subject, tmpl string, data any) error {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return fmt.Errorf("rendering %s: %w", tmpl, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    body.String(),
		Tags:    []resend.Tag{{Name: "template", Value: templateTag(tmpl)}},
	}

	_, err := m.cb.Execute(func() (*resend.SendEmailResponse, error) {
		return m.send.SendWithContext(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("sending %s to %s: %w", tmpl, to, ErrUnavailable)
	}
	if err != nil {
		return fmt.Errorf("sending %s to %s: %w", tmpl, to, err)
	}
	return nil
}

// templateTag turns a template file name into a Resend tag value, which
// only allows letters, digits, underscores and dashes.
func templateTag(tmpl string) string {
	b := []byte(tmpl)
	for i, c := range b {
		if c == '.' {
			b[i] = '_'
		}
	}
	return string(b)
}
