package httpapi

import "time"

type registerClientRequest struct {
	AccountName     string `json:"AccountName" validate:"required"`
	AccountEmail    string `json:"AccountEmail" validate:"required,email"`
	AccountPassword string `json:"AccountPassword" validate:"required"`
}

type confirmRegistrationRequest struct {
	Code int `json:"Code" validate:"required"`
}

type confirmRegistrationResponse struct {
	AppCode int `json:"AppCode"`
}

type registrationResponse struct {
	Code      int    `json:"Code"`
	ExpiresAt time.Time `json:"ExpiresAt"`
}

type deregisterRequest struct {
	AppCode  int    `json:"AppCode" validate:"required"`
	Password string `json:"Password" validate:"required"`
}

// webCodeRequest is shared by the login and client info routes. WebCode may
// legitimately be zero, so it is a pointer to tell it apart from a missing
// field.
type webCodeRequest struct {
	AccountName string `json:"AccountName" validate:"required"`
	WebCode     *int32 `json:"WebCode" validate:"required"`
}

type loginResponse struct {
	Message      string `json:"Message"`
	SessionToken string `json:"SessionToken,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
