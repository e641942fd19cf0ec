package domain

import "fmt"

type StatUpdateEventMixIn struct {
	Id string
}

// StatUpdateEvent is one stat value on its way to a retained MQTT topic.
type StatUpdateEvent interface {
	StatUpdateEvent() string
	StatId() string
}

func (e StatUpdateEventMixIn) StatUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e StatUpdateEventMixIn) StatId() string {
	return e.Id
}

type TextStatUpdateEvent struct {
	StatUpdateEventMixIn
	Value string
}

type IntStatUpdateEvent struct {
	StatUpdateEventMixIn
	Value int
}

type BoolStatUpdateEvent struct {
	StatUpdateEventMixIn
	Value bool
}

type BridgeStateUpdateEvent struct {
	StatUpdateEventMixIn
	Value bool
}
