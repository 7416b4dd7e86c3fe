// Package api provides an HTTP client for the storefront cart API.
//
// # Endpoints
//
//   - GET    /cart            authoritative cart {items, total_amount, grand_total}
//   - PATCH  /cart/{item_id}  {quantity} or {attributes}; 2xx with the row or empty
//   - DELETE /cart/{item_id}  2xx empty
//
// Paths are resolved relative to the configured api_base, so a base of
// https://shop.example.com/api yields https://shop.example.com/api/cart.
//
// # Request Handling
//
// Every request:
//   - carries Authorization: Bearer <token> when a token is given
//   - sets Accept: application/json and User-Agent: trolley/0.1
//   - gets a fresh X-Request-ID for correlating with backend logs
//   - is bounded by the client timeout (10 seconds by default) and by ctx
//
// # Error Handling
//
// Failures are returned as *apperr.Error:
//
//   - transport errors and timeouts: NETWORK_FAILURE
//   - 401: UNAUTHENTICATED
//   - any other status >= 400: SERVER_REJECTED, with the backend's
//     "message" appended when present
//   - undecodable or invalid payloads: INVALID_RESPONSE
//
// A cart payload is validated before use: every row needs a positive
// item_id, quantity >= 1 and a non-negative unit_price, and item ids must be
// unique. unit_price may be sent as a JSON string or number. A cart wrapped
// in {"data": {...}} is accepted as well.
//
// # Design Rationale
//
// The client holds no cart state and never retries; optimistic updates,
// coalescing and reconciliation belong to the cartsync engine.
package api
