package model

// VendorProfile : local identity synthesized from an external OAuth profile
type VendorProfile struct {
	Vendor      string
	ID          string
	Email       string
	Username    string
	DisplayName string
}
