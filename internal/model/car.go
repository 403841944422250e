package model

import "time"

// Car represents a rentable vehicle in the catalog.  The ID is a
// human readable slug (e.g. "camry-2023").  Catalog rows are mutated
// only by editors and admins; CreatedBy and LastModifiedBy record who.
type Car struct {
	ID             string             `json:"id"`
	Make           string             `json:"make"`
	Model          string             `json:"model"`
	Year           int                `json:"year"`
	Type           string             `json:"type"`
	PricePerDay    int64              `json:"pricePerDay"`
	Description    *string            `json:"description"`
	Features       []string           `json:"features"`
	Availability   bool               `json:"availability"`
	Specifications *CarSpecifications `json:"specifications"`
	CreatedBy      string             `json:"createdBy"`
	LastModifiedBy string             `json:"lastModifiedBy"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// CarSpecifications holds the optional technical details of a car.  Each
// field is nil when unknown.  A car has at most one specifications row.
type CarSpecifications struct {
	Transmission *string `json:"transmission"`
	FuelType     *string `json:"fuelType"`
	Seats        *int    `json:"seats"`
	Luggage      *int    `json:"luggage"`
	Mileage      *string `json:"mileage"`
}

// CarSummary is the reduced car projection embedded in booking lists.
type CarSummary struct {
	ID    string `json:"id"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

// Pagination is the metadata returned next to a page of cars.
type Pagination struct {
	Total       int64 `json:"total"`
	Pages       int64 `json:"pages"`
	CurrentPage int   `json:"currentPage"`
	Limit       int   `json:"limit"`
}
