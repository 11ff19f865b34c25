package domain

import "time"

// Shop represents one installation of the app on a storefront platform
type Shop struct {
	ShopID       string           `json:"shop_id"`
	ShopURL      string           `json:"shop_url"`
	ShopSecret   string           `json:"-"` // Secret issued at registration, signs shop -> app requests
	APIKey       string           `json:"-"` // Admin API integration client ID
	SecretKey    string           `json:"-"` // Admin API integration client secret
	CustomFields ShopCustomFields `json:"custom_fields"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ShopCustomFields holds app-specific state attached to a shop
type ShopCustomFields struct {
	Password string `json:"password"`
	Active   bool   `json:"active"`
}

// Ref returns the reference that travels with queued work
func (s *Shop) Ref() ShopRef {
	return ShopRef{ShopID: s.ShopID, ShopURL: s.ShopURL}
}

// HasCredentials reports whether the registration callback completed
func (s *Shop) HasCredentials() bool {
	return s.APIKey != "" && s.SecretKey != ""
}

// ShopRef identifies a shop without carrying its credentials
type ShopRef struct {
	ShopID  string `json:"shopId"`
	ShopURL string `json:"shopUrl"`
}
