package dto

type RefreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	IPAddress    string `json:"-"`
}

// LogoutInput optionally names the refresh token to revoke alongside the
// presented access token.
type LogoutInput struct {
	RefreshToken string `json:"refreshToken"`
}
