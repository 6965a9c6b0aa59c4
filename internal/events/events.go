// Package events names the catalog mutation topics carried on the event bus.
package events

import (
	EventBus "github.com/asaskevich/EventBus"
)

const (
	ProductsChanged = "catalog:products:changed"
	ArticlesChanged = "catalog:articles:changed"
)

// Publisher is the publishing half of an EventBus.Bus.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// NewBus creates the in-process bus shared by services and subscribers.
func NewBus() EventBus.Bus {
	return EventBus.New()
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, ...interface{}) {}

// Nop is a Publisher that drops every event.
var Nop Publisher = nopPublisher{}
