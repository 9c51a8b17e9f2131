// Package backend is the client for the hosted backend-as-a-service that
// owns every account, session and profile row.
//
// # Overview
//
//   - Client: the transport-agnostic contract (Auth + Rows + Ping).
//   - HTTPClient: the implementation over the auth API (/auth/v1) and the
//     row API (/rest/v1). It keeps the current session, refreshes it when
//     the access token expires or the row API answers 401, and announces
//     changes to OnAuthStateChange listeners.
//   - SessionStorage: optional persistence of the session between runs.
//
// # Error Handling
//
// Every non-2xx answer is an *APIError. Callers match the common cases with
// errors.Is: ErrInvalidCredentials, ErrUnauthorized, ErrUnavailable.
// Transport failures wrap ErrUnavailable. IsBackendError tells backend
// answers apart from local failures.
//
// Listeners run synchronously on the goroutine that caused the event and
// must not block.
package backend
