// Package apperr defines the coded errors produced when talking to the cart
// backend: UNAUTHENTICATED (no usable token, the call is never made),
// NETWORK_FAILURE (transport error or timeout), SERVER_REJECTED (the backend
// answered with a non-success status) and INVALID_RESPONSE (the payload could
// not be decoded or failed validation).
package apperr
