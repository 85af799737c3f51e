package provider

import "context"

// SMS is one outbound text message to a driver.
type SMS struct {
	Phone string
	Body  string
}

// Provider is the outbound SMS delivery port.
type Provider interface {
	Send(ctx context.Context, msg SMS) (*ProviderResponse, error)
}

// ProviderResponse stores gateway call metadata for audit and persistence.
type ProviderResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
