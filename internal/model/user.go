package model

import "encoding/json"

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UnmarshalJSON accepts both "id" and the backend's "_id".
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.ID = raw.ID
	if u.ID == "" {
		u.ID = raw.MongoID
	}
	u.Name = raw.Name
	u.Email = raw.Email
	return nil
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by both signup and login. Signup may carry only
// a message.
type AuthResponse struct {
	Message     string `json:"message,omitempty"`
	User        *User  `json:"user,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// UnmarshalJSON accepts the token under either "access_token" or "token".
func (r *AuthResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Message     string `json:"message"`
		User        *User  `json:"user"`
		AccessToken string `json:"access_token"`
		Token       string `json:"token"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Message = raw.Message
	r.User = raw.User
	r.AccessToken = raw.AccessToken
	if r.AccessToken == "" {
		r.AccessToken = raw.Token
	}
	return nil
}
