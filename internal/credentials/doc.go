// Package credentials supplies the bearer token used for cart backend calls.
//
// Credentials live in a key-value Store. Four stores are provided:
//
//   - FileStore: flat TOML at ~/.config/trolley/credentials.toml (0600)
//   - RedisStore: namespaced keys (trolley:access_token) in Redis
//   - EnvStore: TROLLEY_ACCESS_TOKEN and friends
//   - MemoryStore: tests and the dev stub
//
// Provider wraps a Store and is what the sync engine receives at
// construction. It reads the access_token key before every call; a missing
// or blank token, or a JWT whose exp claim has passed, yields an
// apperr.CodeUnauthenticated error so the caller can send the user to login
// without attempting the request.
package credentials
