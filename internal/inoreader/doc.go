// Package inoreader is an authenticated client for the Inoreader
// (Google Reader compatible) REST API.
//
// Every request carries the current bearer token. A 401 triggers one token
// refresh and one replay of the same request; the allowance belongs to the
// individual call, so concurrent calls never consume each other's retry.
// Failures surface as *ClientError or *AuthenticationError.
package inoreader
