// Package reader_tools registers the Inoreader MCP tools.
//
// Read tools are always registered. Tools that change upstream state
// (subscriptions, read and starred flags, labels) are skipped in read-only
// mode. Arguments are validated before the API client is touched, and every
// failure comes back as an error result rather than a protocol error.
package reader_tools
