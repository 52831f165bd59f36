// Package auth resolves and maintains the bearer token used against the
// feed reader API.
//
// A TokenProvider hands out an access token from, in order, the
// INOREADER_ACCESS_TOKEN environment variable or the secrets store,
// refreshing a stored token that expires within five minutes. The Refresher
// performs the refresh_token grant, persists the new pair and coalesces
// concurrent refreshes into one upstream call. Login runs the one-time
// authorization code flow through a local callback listener.
package auth
