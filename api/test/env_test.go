package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/honey-shop/api"
	"github.com/irsalhamdi/honey-shop/api/background"
	"github.com/irsalhamdi/honey-shop/config"
	"github.com/irsalhamdi/honey-shop/core/cart"
	"github.com/irsalhamdi/honey-shop/core/category"
	"github.com/irsalhamdi/honey-shop/core/order"
	"github.com/irsalhamdi/honey-shop/core/pricing"
	"github.com/irsalhamdi/honey-shop/core/product"
	"github.com/irsalhamdi/honey-shop/core/shipping"
	"github.com/irsalhamdi/honey-shop/core/user"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/email"
	"github.com/irsalhamdi/honey-shop/events"
	"github.com/irsalhamdi/honey-shop/rate"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

const webhookSecret = "whsec_e2e"

// TestEnv is a running API backed by a throwaway Postgres container and
// fake payment providers.
type TestEnv struct {
	*httptest.Server
	DB *sqlx.DB

	UserEmail  string
	UserPass   string
	AdminEmail string
	AdminPass  string

	WebhookSecret string

	Paypal *mockPaypal
	Stripe *mockStripe
	Mail   *recorder
	Events *recorder
	BG     *background.Background
}

type recorder struct {
	mu   sync.Mutex
	sent []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, s)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

func (r *recorder) SendActivationToken(_ context.Context, to, _ string) error {
	r.add("activation:" + to)
	return nil
}

func (r *recorder) SendRecoveryToken(_ context.Context, to, _ string) error {
	r.add("recovery:" + to)
	return nil
}

func (r *recorder) SendReceipt(_ context.Context, to string, rc email.Receipt) error {
	r.add("receipt:" + to + ":" + rc.UserFacingID)
	return nil
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.add(ev.EventName)
	return nil
}

type pdfPrinter struct{}

func (pdfPrinter) Render(context.Context, string) ([]byte, error) {
	return []byte("%PDF-1.4 receipt"), nil
}

// NewTestEnv starts Postgres in docker, applies the migrations and serves
// the API. The test is skipped when docker is not reachable or -short is set.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping end to end test in short mode")
	}

	pool, err := dockertest.NewPool(os.Getenv("DOCKER_HOST"))
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker is not reachable: %v", err)
	}
	pool.MaxWait = 2 * time.Minute

	pg, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=" + name,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres: %w", err)
	}
	t.Cleanup(func() {
		if err := pool.Purge(pg); err != nil {
			t.Logf("purging postgres container: %v", err)
		}
	})
	_ = pg.Expire(300)

	dbCfg := config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       pg.GetHostPort("5432/tcp"),
		Name:       name,
		Schema:     "public",
		DisableTLS: true,
	}

	var db *sqlx.DB
	err = pool.Retry(func() error {
		var err error
		db, err = database.Open(dbCfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := database.Migrate(db); err != nil {
		return nil, err
	}

	env := &TestEnv{
		DB:            db,
		UserEmail:     "user@example.com",
		UserPass:      "user-password",
		AdminEmail:    "admin@example.com",
		AdminPass:     "admin-password",
		WebhookSecret: webhookSecret,
		Paypal:        newMockPaypal(),
		Stripe:        newMockStripe(),
		Mail:          &recorder{},
		Events:        &recorder{},
	}

	if err := seedUser(db, "Anna Berzina", env.UserEmail, env.UserPass, "USER"); err != nil {
		return nil, err
	}
	if err := seedUser(db, "Shop Admin", env.AdminEmail, env.AdminPass, "ADMIN"); err != nil {
		return nil, err
	}

	paypalSrv := httptest.NewServer(env.Paypal.handle())
	t.Cleanup(paypalSrv.Close)
	stripeSrv := httptest.NewServer(env.Stripe.handle())
	t.Cleanup(stripeSrv.Close)

	pp, err := paypal.NewClient("client", "secret", paypalSrv.URL)
	if err != nil {
		return nil, err
	}
	if _, err := pp.GetAccessToken(context.Background()); err != nil {
		return nil, fmt.Errorf("getting paypal token: %w", err)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(stripeSrv.URL),
	})
	strp := &stripecl.API{}
	strp.Init("sk_test_e2e", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	log := logrus.New()
	log.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	shipCfg := config.Shipping{
		LightMaxWeight:  2,
		LightPrice:      3,
		MediumMaxWeight: 10,
		MediumPrice:     9,
		ExtraPerKg:      2,
		OmnivaPrice:     3.5,
		MaxCartWeight:   30,
	}
	fb := shipping.NewFallback(shipCfg)
	env.BG = background.New(log)

	mux := api.APIMux(api.APIConfig{
		Log:          log,
		DB:           db,
		Session:      scs.New(),
		Mailer:       env.Mail,
		TokenTimeout: time.Hour,
		TokenLimiter: rate.New(ctx, config.Rate{Burst: 3, RPS: 1, Expiry: 10}),
		Background:   env.BG,
		Paypal:       pp,
		PaypalCfg:    config.Paypal{Currency: "EUR"},
		Stripe:       strp,
		StripeCfg:    config.Stripe{WebhookSecret: webhookSecret, PublishableKey: "pk_test_e2e", Currency: "eur"},
		Pricer: cart.Pricer{
			Calc:      pricing.Calculator{Fallback: fb},
			Rules:     shipping.NewDBSource(db),
			MaxWeight: decimal.NewFromFloat(shipCfg.MaxCartWeight),
		},
		Fallback: fb,
		Notifier: order.Notifier{DB: db, Mailer: env.Mail, Events: env.Events, BG: env.BG},
		Printer:  pdfPrinter{},
	})

	env.Server = httptest.NewServer(mux)
	t.Cleanup(env.Server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	env.Client().Jar = jar

	return env, nil
}

func seedUser(db *sqlx.DB, name, email, pass, role string) error {
	hash, err := user.HashPassword(pass)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           validate.GenerateID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
	return user.Create(context.Background(), db, u)
}

// seedHoney files a product under a fresh category.
func (env *TestEnv) seedHoney(t *testing.T, name string, price string, stock int) product.Product {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	c := category.Category{
		ID:        validate.GenerateID(),
		Name:      name + " category",
		Slug:      validate.GenerateID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := category.Create(ctx, env.DB, c); err != nil {
		t.Fatalf("creating category: %v", err)
	}

	p := product.Product{
		ID:          validate.GenerateID(),
		Name:        name,
		Slug:        validate.GenerateID(),
		CategoryID:  c.ID,
		Description: "Raw honey from Latgale",
		Images:      pq.StringArray{"/images/" + c.Slug + ".jpg"},
		Brand:       "Bišu Māja",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Weight:      decimal.NewFromInt(1),
		Rating:      decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if err := product.Create(ctx, env.DB, p); err != nil {
		t.Fatalf("creating product: %v", err)
	}
	return p
}

func (env *TestEnv) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := product.Fetch(context.Background(), env.DB, productID)
	if err != nil {
		t.Fatalf("fetching product: %v", err)
	}
	return p.Stock
}

// do sends a JSON request with the session cookies of the test client and
// decodes the response into out when out is not nil.
func (env *TestEnv) do(t *testing.T, method, path string, in any, out any) int {
	t.Helper()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, env.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if in != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if out != nil && w.StatusCode < 300 {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return w.StatusCode
}

func Login(srv *httptest.Server, email, pass string) error {
	b, err := json.Marshal(map[string]string{"email": email, "password": pass})
	if err != nil {
		return err
	}

	w, err := srv.Client().Post(srv.URL+"/auth/login", "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		return fmt.Errorf("login of %s: status code %s", email, w.Status)
	}
	return nil
}

func Logout(srv *httptest.Server) error {
	w, err := srv.Client().Post(srv.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		return fmt.Errorf("logout: status code %s", w.Status)
	}
	return nil
}
