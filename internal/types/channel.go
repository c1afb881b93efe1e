package types

import "net/http"

// Source defines the interface for an inbound webhook producer.
type Source interface {
	Name() string
	ValidateRequest(r *http.Request) error
	ParseRequest(r *http.Request) (*InboundEvent, error)
}
