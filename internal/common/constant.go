// Package common contains shared constants and small helpers used across
// snapgram components.
package common

// Header names sent to the hosted backend on every request.
const (
	APIKeyHeaderName        = "apikey"
	AuthorizationHeaderName = "Authorization"
)

// ServiceName identifies the backend dependency in health reports.
const ServiceName = "snapgram.backend"
