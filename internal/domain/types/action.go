package types

// Log action constants used across adapters
const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitReconnected       = "rabbitmq_reconnected"
	ActionExternalServiceFailed   = "external_service_failed"
	ActionNotificationPublishFail = "notification_publish_failed"
	ActionBroadcastTimeout        = "broadcast_timeout"
	ActionAdminOverride           = "admin_override"
)
