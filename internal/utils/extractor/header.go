package extractor

const (
	UserID        = "x-user-id"
	RoleID        = "x-role-id"
	AppID         = "x-app-id"
	Email         = "x-email"
	RequestID     = "x-request-id"
	AppCheck      = "X-APPCHECK"
	EmailStatus   = "x-email-verified"
	Authorization = "Authorization"
)
