package country

import (
	"strings"
	"time"
)

type Country struct {
	ID        string    `json:"id" db:"country_id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CountryNew struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required,iso3166_1_alpha2"`
}

type CountryUp struct {
	Name *string `json:"name"`
	Code *string `json:"code" validate:"omitempty,iso3166_1_alpha2"`
}

// Normalize upper-cases a country code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
