package requestresponse

import "saas-auth-server/internal/model"

// ErrorResponse : body written by util.HandleError
type ErrorResponse struct {
	Error   string `json:"error" example:"Unauthorized"`
	Message string `json:"message" example:"Token revoked"`
	Code    int    `json:"code" example:"401"`
}

type ProfileResponse struct {
	Response *model.UserProfile `json:"response"`
}

// UpdateProfileRequest : omitted fields keep their current value
type UpdateProfileRequest struct {
	Email       *string `json:"email,omitempty" example:"bob@example.org"`
	Username    *string `json:"username,omitempty" example:"bobby"`
	DisplayName *string `json:"display_name,omitempty" example:"Bob B."`
}

func (r UpdateProfileRequest) ToModel() model.ProfileUpdate {
	return model.ProfileUpdate{Email: r.Email, Username: r.Username, DisplayName: r.DisplayName}
}

// ChangePasswordRequest : logout_all defaults to true
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" example:"secret123"`
	NewPassword     string `json:"new_password" example:"another456"`
	LogoutAll       *bool  `json:"logout_all,omitempty" example:"true"`
}

type DevicesResponse struct {
	Response []model.DeviceView `json:"response"`
}

type PermissionRequest struct {
	Name  string  `json:"name" example:"sessions.manage"`
	Value *string `json:"value,omitempty"`
}

// SuccessResponse : acknowledgement for actions with nothing else to return
type SuccessResponse struct {
	Message string `json:"message" example:"ok"`
}
