// Package models defines the records held by the client store and the shape
// of the persisted snapshot document.
package models

import "time"

// Account holds the fields shared by pending registrations and clients.
// AccountEmail and AccountPassword are ciphertexts produced by the field
// cipher; they are never stored in plaintext.
type Account struct {
	AccountName      string    `json:"AccountName"`
	AccountEmail     string    `json:"AccountEmail"`
	AccountPassword  string    `json:"AccountPassword"`
	RegistrationDate time.Time `json:"RegistrationDate"`
}

// Client is an active, confirmed account. AppCode is its API credential.
type Client struct {
	Account
	AppCode int `json:"AppCode"`
}

// PendingRegistration is an account waiting for confirmation.
type PendingRegistration struct {
	Account
	RegistrationCode          int       `json:"RegistrationCode"`
	RegistrationCodeExpiresAt time.Time `json:"RegistrationCodeExpiresAt"`
}

// Expired reports whether the registration code can no longer be confirmed.
func (p *PendingRegistration) Expired(now time.Time) bool {
	return p.RegistrationCodeExpiresAt.Before(now)
}
