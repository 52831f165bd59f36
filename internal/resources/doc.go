// Package resources provides MCP resources for the authenticated Inoreader
// account. Resources are read-only documents an MCP client can fetch without
// a tool call: the user profile, the subscription list and the tag list.
package resources
