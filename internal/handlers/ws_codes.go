// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game handler. These give clients
// more specific reasons for closure than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided auth token was invalid or expired.
	NotParticipantError   = 3002 // Authenticated account is not bound to this session.
	SessionNotFoundError  = 3003 // Target session ID in the WS URL does not exist.
)
