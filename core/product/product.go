package product

import (
	"time"

	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id" db:"product_id"`
	Name        string          `json:"name" db:"name"`
	Slug        string          `json:"slug" db:"slug"`
	CategoryID  string          `json:"categoryId" db:"category_id"`
	Description string          `json:"description" db:"description"`
	Images      pq.StringArray  `json:"images" db:"images"`
	Brand       string          `json:"brand" db:"brand"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	Weight      decimal.Decimal `json:"weight" db:"weight"`
	Rating      decimal.Decimal `json:"rating" db:"rating"`
	NumReviews  int             `json:"numReviews" db:"num_reviews"`
	IsFeatured  bool            `json:"isFeatured" db:"is_featured"`
	Banner      string          `json:"banner" db:"banner"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
	Version     int             `json:"-" db:"version"`
}

// Image returns the first image, used as the thumbnail.
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

type ProductNew struct {
	Name        string          `json:"name" validate:"required"`
	Slug        string          `json:"slug" validate:"required,min=3"`
	CategoryID  string          `json:"categoryId" validate:"required,uuid"`
	Description string          `json:"description" validate:"required"`
	Images      []string        `json:"images" validate:"required,min=1,dive,url"`
	Brand       string          `json:"brand" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Weight      decimal.Decimal `json:"weight"`
	IsFeatured  bool            `json:"isFeatured"`
	Banner      string          `json:"banner" validate:"omitempty,url"`
}

func (pn ProductNew) Validate() error {
	if err := validate.Check(pn); err != nil {
		return err
	}
	return checkAmounts(pn.Price, pn.Weight)
}

type ProductUp struct {
	Name        *string          `json:"name"`
	Slug        *string          `json:"slug" validate:"omitempty,min=3"`
	CategoryID  *string          `json:"categoryId" validate:"omitempty,uuid"`
	Description *string          `json:"description"`
	Images      []string         `json:"images" validate:"omitempty,min=1,dive,url"`
	Brand       *string          `json:"brand"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	Weight      *decimal.Decimal `json:"weight"`
	IsFeatured  *bool            `json:"isFeatured"`
	Banner      *string          `json:"banner" validate:"omitempty,url"`
}

func checkAmounts(price, weight decimal.Decimal) error {
	fe := validate.FieldErrors{}
	if !price.IsPositive() {
		fe["price"] = "price must be greater than 0"
	}
	if weight.IsNegative() {
		fe["weight"] = "weight must be 0 or greater"
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

// Sort orders a product listing.
type Sort string

const (
	SortNewest  Sort = "newest"
	SortLowest  Sort = "lowest"
	SortHighest Sort = "highest"
	SortRating  Sort = "rating"
)

// Filter narrows a product listing. Zero values disable a criterion.
type Filter struct {
	Query     string
	Category  string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	MinRating *decimal.Decimal
	Sort      Sort
	Page      int
	Limit     int
}

// Page is one page of a product listing.
type Page struct {
	Data       []Product `json:"data"`
	Total      int       `json:"total"`
	TotalPages int       `json:"totalPages"`
}
