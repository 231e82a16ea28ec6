package domain

import "time"

type Vehicle struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Location string `json:"location"`
	// HourlyRateMinor is the price of one billable hour in minor currency units.
	HourlyRateMinor int64     `json:"hourly_rate"`
	Available       bool      `json:"is_available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type VehicleFilter struct {
	Location      string
	AvailableOnly bool
}

type Profile struct {
	ID       string
	Email    string
	FullName string
}
