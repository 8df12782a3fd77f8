package models

import "time"

const (
	CarStatusAvailable = "available"
	CarStatusReserved  = "reserved"
	CarStatusSold      = "sold"
)

type Brand struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	LogoURL   *string   `json:"logo_url"`
	CreatedAt time.Time `json:"created_at"`
}

type BrandWithCount struct {
	Brand
	CarCount int `json:"car_count"`
}

type BrandDetail struct {
	Brand
	Cars []Car `json:"cars"`
}

type Car struct {
	ID           int64     `json:"id"`
	BrandID      int64     `json:"brand_id"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Price        int64     `json:"price"`
	Mileage      int       `json:"mileage"`
	FuelType     string    `json:"fuel_type"`
	Transmission string    `json:"transmission"`
	Color        string    `json:"color"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CarImage struct {
	ID       int64  `json:"id"`
	CarID    int64  `json:"car_id"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// CarSummary is the list projection: the car, its brand and at most one image.
type CarSummary struct {
	Car
	Brand  Brand      `json:"brand"`
	Images []CarImage `json:"images"`
}

type CarDetail struct {
	Car
	Brand    Brand      `json:"brand"`
	Images   []CarImage `json:"images"`
	Features []Feature  `json:"features"`
}

type Feature struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
