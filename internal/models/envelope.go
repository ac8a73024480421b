package models

// Envelope is the response wrapper used by every API endpoint.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// MessageBody is the minimal shape of an error response.
type MessageBody struct {
	Message string `json:"message"`
}
