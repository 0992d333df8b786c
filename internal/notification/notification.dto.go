package notification

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required,max=512"`
	Platform string `json:"platform" validate:"omitempty,oneof=android ios web"`
}

type UnregisterDeviceRequest struct {
	Token string `json:"token" validate:"required"`
}
