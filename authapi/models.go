package authapi

import "github.com/joy-dx/sessionnet/dto"

type User struct {
	ID            int    `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Avatar        string `json:"avatar,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	Bio           string `json:"bio"`
	IsCreator     bool   `json:"is_creator"`
	IsVerified    bool   `json:"is_verified"`
	EmailVerified bool   `json:"email_verified"`
	ShowsCount    int    `json:"shows_count"`
	TotalPlays    int    `json:"total_plays"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// AuthResult is returned by login and registration.
type AuthResult struct {
	User   User            `json:"user"`
	Tokens dto.Credentials `json:"tokens"`
}

type LoginRequest struct {
	// Username also accepts an email address
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// CreatorResult answers the creator application and verification calls.
type CreatorResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	User         *User  `json:"user,omitempty"`
	AttemptsLeft *int   `json:"attempts_left,omitempty"`
}
