package model

// Session is the locally persisted identity of the signed-in user.
type Session struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// Complete reports whether every field is populated. A partially filled
// session counts as logged out.
func (s Session) Complete() bool {
	return s.Name != "" && s.Email != "" && s.UserID != "" && s.AccessToken != ""
}
