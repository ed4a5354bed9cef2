package entities

import (
	"encoding/json"
	"time"
)

type Product struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       float64         `json:"price"`
	Cost        float64         `json:"cost"`
	Category    *string         `json:"category"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"is_active"`
	Metadata    json.RawMessage `json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ProductFilter struct {
	Category   string
	SearchTerm string
	Limit      int
}
