package dto

// Request DTOs

type StaffTokenRequest struct {
	APIKey string `json:"api_key" validate:"required,min=8"`
}

// Response DTOs

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
