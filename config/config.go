package config

import "time"

type Config struct {
	Web      Web
	DB       DB
	Email    Email
	Stripe   Stripe
	Paypal   Paypal
	Oauth    Oauth
	Cors     Cors
	Auth     Auth
	Shipping Shipping
	Redis    Redis
	Rabbit   Rabbit
	Storage  Storage
	Printing Printing
	Rate     Rate
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:postgres"`
	Schema       string `conf:"default:public"`
	MaxIdleConns int    `conf:"default:0"`
	MaxOpenConns int    `conf:"default:0"`
	DisableTLS   bool   `conf:"default:true"`
}

type Email struct {
	Address       string        `conf:"default:shop@honey.local"`
	APIKey        string        `conf:"default:,mask"`
	ActivationURL string        `conf:"default:http://localhost:3000/activate"`
	RecoveryURL   string        `conf:"default:http://localhost:3000/recover"`
	OrderURL      string        `conf:"default:http://localhost:3000/order"`
	TokenTimeout  time.Duration `conf:"default:24h"`
}

type Stripe struct {
	APISecret      string `conf:"default:,mask"`
	WebhookSecret  string `conf:"default:,mask"`
	PublishableKey string `conf:"default:"`
	Currency       string `conf:"default:eur"`
}

type Paypal struct {
	ClientID string `conf:"default:"`
	Secret   string `conf:"default:,mask"`
	URL      string `conf:"default:https://api-m.sandbox.paypal.com"`
	Currency string `conf:"default:EUR"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:10s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000"`
	Google           Provider
}

type Provider struct {
	Client      string `conf:"default:"`
	Secret      string `conf:"default:,mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

type Cors struct {
	Origin string `conf:"default:"`
}

type Auth struct {
	ActivationRequired bool `conf:"default:true"`
}

// Shipping holds the fallback tiers used when no shipping rule matches a
// cart weight, plus the cart weight ceiling. Weights are in kilograms.
type Shipping struct {
	LightMaxWeight  float64 `conf:"default:2"`
	LightPrice      float64 `conf:"default:3"`
	MediumMaxWeight float64 `conf:"default:10"`
	MediumPrice     float64 `conf:"default:9"`
	ExtraPerKg      float64 `conf:"default:2"`
	OmnivaPrice     float64 `conf:"default:3.5"`
	MaxCartWeight   float64 `conf:"default:30"`
}

type Redis struct {
	Addr     string        `conf:"default:"`
	Password string        `conf:"default:,mask"`
	DB       int           `conf:"default:0"`
	TTL      time.Duration `conf:"default:10m"`
}

type Rabbit struct {
	URL string `conf:"default:,mask"`
}

type Storage struct {
	Endpoint      string `conf:"default:"`
	Region        string `conf:"default:us-east-1"`
	Bucket        string `conf:"default:honey-shop"`
	AccessKey     string `conf:"default:,mask"`
	SecretKey     string `conf:"default:,mask"`
	UsePathStyle  bool   `conf:"default:true"`
	PublicBaseURL string `conf:"default:"`
}

type Printing struct {
	RemoteURL string        `conf:"default:"`
	Timeout   time.Duration `conf:"default:30s"`
}

type Rate struct {
	Burst  int     `conf:"default:3"`
	RPS    float64 `conf:"default:0.1"`
	Expiry int     `conf:"default:10"`
}
