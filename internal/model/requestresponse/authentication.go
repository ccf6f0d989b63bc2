package requestresponse

import "saas-auth-server/internal/model"

// RegisterRequest : self-service sign-up
type RegisterRequest struct {
	Email       string `json:"email" example:"bob@example.com"`
	Username    string `json:"username" example:"bob"`
	Password    string `json:"password" example:"secret123"`
	DisplayName string `json:"display_name,omitempty" example:"Bob"`
}

// LoginRequest : login is an email or a username
type LoginRequest struct {
	Login    string `json:"login" example:"bob"`
	Password string `json:"password" example:"secret123"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// LogoutRequest : either token is enough; the refresh token wins when both are sent
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	AccessToken  string `json:"access_token,omitempty" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// SessionResponse : profile plus the issued token pair
type SessionResponse struct {
	Response *model.AuthSession `json:"response"`
}

type LogoutResponse struct {
	Response struct {
		LoggedOut bool `json:"logged_out" example:"true"`
	} `json:"response"`
}

// RevokedResponse : number of refresh sessions that went from valid to revoked
type RevokedResponse struct {
	Response struct {
		Revoked int64 `json:"revoked" example:"3"`
	} `json:"response"`
}

func NewRevokedResponse(revoked int64) RevokedResponse {
	var resp RevokedResponse
	resp.Response.Revoked = revoked
	return resp
}
