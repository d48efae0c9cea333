package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Realtime
	FieldClientType     = "client_type"
	FieldConnectionID   = "connection_id"
	FieldConversationID = "conversation_id"
	FieldMessageID      = "message_id"
	FieldEventType      = "event_type"

	// Service
	FieldService = "service"
)
