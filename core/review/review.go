package review

import "time"

type Review struct {
	ID                 string    `json:"id" db:"review_id"`
	UserID             string    `json:"userId" db:"user_id"`
	UserName           string    `json:"userName" db:"user_name"`
	ProductID          string    `json:"productId" db:"product_id"`
	Rating             int       `json:"rating" db:"rating"`
	Title              string    `json:"title" db:"title"`
	Description        string    `json:"description" db:"description"`
	IsVerifiedPurchase bool      `json:"isVerifiedPurchase" db:"is_verified_purchase"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}

type ReviewNew struct {
	ProductID   string `json:"productId" validate:"required,uuid"`
	Rating      int    `json:"rating" validate:"required,gte=1,lte=5"`
	Title       string `json:"title" validate:"required,min=3"`
	Description string `json:"description" validate:"required,min=3"`
}
