package category

import "time"

type Category struct {
	ID        string    `json:"id" db:"category_id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Count is a category together with the number of products filed under it.
type Count struct {
	Category
	Products int `json:"products" db:"products"`
}

type CategoryNew struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug" validate:"required,min=2"`
}

type CategoryUp struct {
	Name *string `json:"name"`
	Slug *string `json:"slug" validate:"omitempty,min=2"`
}
