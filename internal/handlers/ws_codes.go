package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes. These give clients a more specific reason
// for closure than the standard codes.
const (
	InvalidAuthTokenError websocket.StatusCode = 3001 // Session token missing, invalid or expired.
	UnknownUserError      websocket.StatusCode = 3002 // Token was valid but the user could not be loaded.
	SendBufferFullError   websocket.StatusCode = 3004 // Client fell too far behind on broadcasts.
)
