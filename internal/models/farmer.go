package models

import "time"

type Farmer struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`       // unique
	NationalID      string    `json:"national_id"` // unique
	WeighStation    string    `json:"weigh_station"` // region / collection point
	Season          string    `json:"season"`
	Location        string    `json:"location"`
	CreatedByUserID int       `json:"created_by_user_id"`
	CreatedByName   string    `json:"created_by_name,omitempty"` // Joined from users table
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FarmerSummary is the slim view attached to delivery listings
type FarmerSummary struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	WeighStation string `json:"weigh_station"`
}

func (f *Farmer) Summary() FarmerSummary {
	return FarmerSummary{
		ID:           f.ID,
		Name:         f.Name,
		Phone:        f.Phone,
		WeighStation: f.WeighStation,
	}
}

// CreateFarmerRequest represents the request body for registering a farmer
type CreateFarmerRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	NationalID   string `json:"national_id"`
	WeighStation string `json:"weigh_station"`
	Season       string `json:"season"`
	Location     string `json:"location"`
}

// UpdateFarmerRequest represents the request body for updating a farmer
type UpdateFarmerRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	NationalID   string `json:"national_id"`
	WeighStation string `json:"weigh_station"`
	Season       string `json:"season"`
	Location     string `json:"location"`
}

// FarmerFilter narrows farmer queries. Zero values mean "no restriction".
type FarmerFilter struct {
	WeighStation string
	Season       string
	Search       string // matches name, phone or national id
	Limit        int
}
