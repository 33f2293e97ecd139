package auth

import "time"

// Account represents a registered user. PasswordHash is never serialised.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	DisplayName  string
	Bio          string
	AvatarURL    string
	CreatedAt    time.Time
}

// PublicAccount is the client-facing view of an Account.
type PublicAccount struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Public strips credential material from the account.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Bio:         a.Bio,
		AvatarURL:   a.AvatarURL,
		CreatedAt:   a.CreatedAt,
	}
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
}

// TokenTypeBearer is the token_type reported to clients.
const TokenTypeBearer = "bearer"

// Token is the result of a successful login.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}
