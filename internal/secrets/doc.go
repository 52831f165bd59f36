// Package secrets persists the single OAuth token pair of an installation.
//
// The Store interface is the only thing the rest of the application depends
// on. Three backends are provided:
//
//   - KeyringStore uses the operating system credential store (macOS Keychain,
//     Linux Secret Service, Windows Credential Manager) through go-keyring.
//   - FileStore writes a 0600 JSON file and guards it with an advisory lock.
//     It is the fallback when no keyring is reachable (headless Linux, CI).
//   - MemoryStore keeps the pair in process memory.
//
// NewStore selects the keyring when it is usable and falls back to the file.
package secrets
