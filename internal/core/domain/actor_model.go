package domain

import (
	"time"

	"moebot2mqtt/pkg/moebot"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_DEVICE       = "device"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_PUBLISHER    = "publisher"
	ACTOR_ID_DISPATCHER   = "dispatcher"
	ACTOR_ID_SUPERVISOR   = "supervisor"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
	ACTOR_ID_RECORDER     = "recorder"
)

// Device session lifecycle

type ConnectDeviceRequest struct {
	ActorRequestMixIn
}

type ConnectDeviceResponse struct {
	ActorResponseMixIn
	Version moebot.ProtocolVersion
}

type TeardownDeviceRequest struct {
	ActorRequestMixIn
}

type TeardownDeviceResponse struct {
	ActorResponseMixIn
}

// DeviceHealthRequest is answered from in-memory session state, it never
// touches the device.
type DeviceHealthRequest struct {
	ActorRequestMixIn
}

type DeviceHealthResponse struct {
	ActorResponseMixIn
	HasSession    bool
	ListenerAlive bool
	Online        bool
	LastUpdate    time.Time
}

type PollDeviceRequest struct {
	ActorRequestMixIn
}

type PollDeviceResponse struct {
	ActorResponseMixIn
	State moebot.DeviceState
}

// Extended reads, both re-query the raw device status.

type GetMachineErrorsRequest struct {
	ActorRequestMixIn
}

type GetMachineErrorsResponse struct {
	ActorResponseMixIn
	Errors []string
}

type GetPasswordRequest struct {
	ActorRequestMixIn
}

type GetPasswordResponse struct {
	ActorResponseMixIn
	Password moebot.Password
}

// DeviceStateUpdated is published on the actor system event stream after
// every merged device frame.
type DeviceStateUpdated struct {
	State moebot.DeviceState
}

// MQTT adapter

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

// PublishStatUpdateRequest publishes one stat update event on its retained
// stat topic. The MQTT adapter owns the event to topic mapping.
type PublishStatUpdateRequest struct {
	ActorRequestMixIn
	Event  any
	Retain bool
}

type PublishStatUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// Publisher

// PublishStatsRequest pushes a subset of stat update events through the
// publisher's change suppression.
type PublishStatsRequest struct {
	ActorRequestMixIn
	Events []any
}

// CompactStatCacheRequest triggers the periodic maintenance rebuild of the
// stat cache.
type CompactStatCacheRequest struct {
	ActorRequestMixIn
}

// Health

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
