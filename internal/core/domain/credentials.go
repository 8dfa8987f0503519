package domain

import "time"

// Credential holds the login details for one upstream tenant.
// The secret is stored encrypted at rest and must never be logged.
type Credential struct {
	Tenant    string    `json:"tenant"`
	Username  string    `json:"username"`
	Secret    string    `json:"-"`
	BaseURL   string    `json:"base_url"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}
