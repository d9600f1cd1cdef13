package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/honey-shop/api"
	"github.com/irsalhamdi/honey-shop/api/background"
	"github.com/irsalhamdi/honey-shop/config"
	"github.com/irsalhamdi/honey-shop/core/auth"
	"github.com/irsalhamdi/honey-shop/core/cart"
	"github.com/irsalhamdi/honey-shop/core/order"
	"github.com/irsalhamdi/honey-shop/core/pricing"
	"github.com/irsalhamdi/honey-shop/core/shipping"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/email"
	"github.com/irsalhamdi/honey-shop/events"
	"github.com/irsalhamdi/honey-shop/printing"
	"github.com/irsalhamdi/honey-shop/rate"
	"github.com/irsalhamdi/honey-shop/storage"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	const prefix = "HONEY"
	var cfg config.Config
	if _, err := conf.Parse(prefix, &cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	version, err := database.Migrate(db)
	if err != nil {
		return fmt.Errorf("failed to migrate the database: %w", err)
	}
	logger.Infof("database schema at version %d", version)

	appCtx, stop := context.WithCancel(context.Background())
	defer stop()

	rules, closeRules, err := ruleSource(cfg.Redis, db, logger)
	if err != nil {
		return err
	}
	defer closeRules()

	pub, closePublisher, err := eventPublisher(cfg.Rabbit, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	uploader, err := storage.NewS3(appCtx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to build the storage client: %w", err)
	}

	printer := printing.NewChrome(cfg.Printing, logger)
	defer printer.Close()

	sessionManager := scs.New()
	sessionManager.Lifetime = 24 * time.Hour

	links := email.Links{
		ActivationURL: cfg.Email.ActivationURL,
		RecoveryURL:   cfg.Email.RecoveryURL,
		OrderURL:      cfg.Email.OrderURL,
	}
	mail := email.New(cfg.Email.Address, cfg.Email.APIKey, links)

	bg := background.New(logger)

	pp, err := paypal.NewClient(
		cfg.Paypal.ClientID,
		cfg.Paypal.Secret,
		cfg.Paypal.URL,
	)
	if err != nil {
		return fmt.Errorf("failed to build the paypal client: %w", err)
	}

	if cfg.Paypal.ClientID != "" {
		if _, err = pp.GetAccessToken(appCtx); err != nil {
			return fmt.Errorf("failed to get the first paypal access token: %w", err)
		}
	}

	strp := &stripecl.API{}
	strp.Init(cfg.Stripe.APISecret, nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Oauth.DiscoveryTimeout)
	defer cancel()
	google := cfg.Oauth.Google
	oauthProvs, err := auth.MakeProviders(ctx, []auth.ProviderConfig{
		{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
	})
	if err != nil {
		return fmt.Errorf("failed to discover oauth providers: %w", err)
	}

	fallback := shipping.NewFallback(cfg.Shipping)
	pricer := cart.Pricer{
		Calc:      pricing.Calculator{Fallback: fallback},
		Rules:     rules,
		MaxWeight: decimal.NewFromFloat(cfg.Shipping.MaxCartWeight),
	}

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:         cfg.Cors.Origin,
		Log:                logger,
		DB:                 db,
		Session:            sessionManager,
		Mailer:             mail,
		TokenTimeout:       cfg.Email.TokenTimeout,
		TokenLimiter:       rate.New(appCtx, cfg.Rate),
		Background:         bg,
		Paypal:             pp,
		PaypalCfg:          cfg.Paypal,
		Stripe:             strp,
		StripeCfg:          cfg.Stripe,
		Providers:          oauthProvs,
		LoginRedirectURL:   cfg.Oauth.LoginRedirectURL,
		ActivationRequired: cfg.Auth.ActivationRequired,
		Pricer:             pricer,
		Fallback:           fallback,
		Notifier:           order.Notifier{DB: db, Mailer: mail, Events: pub, BG: bg},
		Uploader:           uploader,
		Printer:            printer,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}

// ruleSource caches shipping rules in Redis when an address is configured.
func ruleSource(cfg config.Redis, db *sqlx.DB, log logrus.FieldLogger) (shipping.RuleSource, func(), error) {
	if cfg.Addr == "" {
		return shipping.NewDBSource(db), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Addr, err)
	}

	return shipping.NewCachedSource(client, db, cfg.TTL, log), func() { client.Close() }, nil
}

// eventPublisher connects to RabbitMQ when a url is configured. Without one,
// order events are dropped.
func eventPublisher(cfg config.Rabbit, log logrus.FieldLogger) (events.Publisher, func(), error) {
	if cfg.URL == "" {
		log.Warn("no rabbitmq url configured: order events are not published")
		return events.Nop{}, func() {}, nil
	}

	p, err := events.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	return p, func() {
		if err := p.Close(); err != nil {
			log.Errorf("closing rabbitmq connection: %v", err)
		}
	}, nil
}
