package auth

import "time"

const usersCollection = "users"

// User is a stored account. HashedPassword is never serialised.
type User struct {
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLogin      *time.Time `json:"last_login"`
}

// UserResponse is the public view of a User.
type UserResponse struct {
	Username  string     `json:"username" example:"jdoe"`
	Email     string     `json:"email" example:"jdoe@example.com"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

func (u *User) Public() *UserResponse {
	return &UserResponse{
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

type RegisterRequest struct {
	Username string `json:"username" example:"jdoe"`
	Email    string `json:"email" example:"jdoe@example.com"`
	Password string `json:"password" example:"s3cretpass"`
}

// TokenResponse follows the OAuth2 password grant response shape.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"bearer"`
}
