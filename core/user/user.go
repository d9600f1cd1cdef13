package user

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type PaymentMethod string

const (
	PayPal         PaymentMethod = "PayPal"
	Stripe         PaymentMethod = "Stripe"
	CashOnDelivery PaymentMethod = "CashOnDelivery"
)

func (m PaymentMethod) Valid() bool {
	return m == PayPal || m == Stripe || m == CashOnDelivery
}

type User struct {
	ID            string        `json:"id" db:"user_id"`
	Name          string        `json:"name" db:"name"`
	Email         string        `json:"email" db:"email"`
	PasswordHash  []byte        `json:"-" db:"password_hash"`
	Role          string        `json:"role" db:"role"`
	Active        bool          `json:"active" db:"active"`
	Address       *Address      `json:"address,omitempty" db:"address"`
	PaymentMethod PaymentMethod `json:"paymentMethod" db:"payment_method"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
	Version       int           `json:"-" db:"version"`
}

// Address is a shipping address, stored as a JSON document.
type Address struct {
	FullName      string `json:"fullName" validate:"required,min=3"`
	StreetAddress string `json:"streetAddress" validate:"required,min=3"`
	City          string `json:"city" validate:"required"`
	PostalCode    string `json:"postalCode" validate:"required"`
	Country       string `json:"country" validate:"required,len=2"`
	Phone         string `json:"phone,omitempty"`
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Address", src)
	}
	return json.Unmarshal(b, a)
}

func (a Address) String() string {
	return fmt.Sprintf("%s, %s, %s %s, %s", a.FullName, a.StreetAddress, a.PostalCode, a.City, a.Country)
}

type UserNew struct {
	Name     string `json:"name" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=ADMIN USER"`
	Password string `json:"password" validate:"required,min=8"`
}

type UserSignup struct {
	Name            string `json:"name" validate:"required,min=3"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

// UserUp is what a user may change on their own profile.
type UserUp struct {
	Name *string `json:"name" validate:"omitempty,min=3"`
}

// UserAdminUp is what an admin may change on any profile.
type UserAdminUp struct {
	Name *string `json:"name" validate:"omitempty,min=3"`
	Role *string `json:"role" validate:"omitempty,oneof=ADMIN USER"`
}

type PaymentMethodUp struct {
	Type PaymentMethod `json:"type" validate:"required,oneof=PayPal Stripe CashOnDelivery"`
}

var ErrMismatchedPassword = errors.New("invalid email or password")

func HashPassword(password string) ([]byte, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return h, nil
}

func (u User) CheckPassword(password string) error {
	err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatchedPassword
	}
	return err
}
