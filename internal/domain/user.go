package domain

type UserProfile struct {
	ID    ID     `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session pairs a bearer token with the profile it authenticates.
type Session struct {
	Token string
	User  *UserProfile
}

func (s Session) Valid() bool {
	return s.Token != "" && s.User != nil
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
}
