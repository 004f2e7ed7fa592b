package ports

// MessageListener defines the interface for the inbound chat transport
type MessageListener interface {
	// Start begins receiving messages
	Start() error

	// Stop shuts the listener down
	Stop() error
}
