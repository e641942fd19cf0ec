package moebot

import (
	"context"
	"errors"
)

// ProtocolVersion is a Tuya local protocol version.
type ProtocolVersion string

const (
	Protocol34 ProtocolVersion = "3.4"
	Protocol33 ProtocolVersion = "3.3"
)

// Versions tried during session negotiation, newest first.
var negotiationOrder = []ProtocolVersion{Protocol34, Protocol33}

// DPS is a raw datapoint frame as reported by the device, keyed by
// datapoint id.
type DPS map[string]any

// Datapoint ids used by MoeBot mowers.
const (
	DPBattery        = "6"
	DPMachineState   = "101"
	DPMachineError   = "102"
	DPMowInRain      = "103"
	DPMowTime        = "104"
	DPZones          = "105"
	DPPassword       = "106"
	DPEmergencyState = "107"
	DPWorkMode       = "108"
	DPCommand        = "115"
)

// Command strings accepted on the command datapoint.
const (
	CommandStartMowing        = "StartMowing"
	CommandStartFixedMowing   = "StartFixedMowing"
	CommandPauseWork          = "PauseWork"
	CommandCancelWork         = "CancelWork"
	CommandStartReturnStation = "StartReturnStation"
)

var (
	ErrNotConnected      = errors.New("moebot: session not connected")
	ErrClosed            = errors.New("moebot: transport closed")
	ErrNegotiationFailed = errors.New("moebot: no protocol version accepted by device")
	ErrInvalidMowTime    = errors.New("moebot: mow time out of range (1-99 hours)")
	ErrAlreadyListening  = errors.New("moebot: push listener already running")
)

// Transport is the capability a Session needs from the device link.
// Implementations own the wire protocol; the Session only sequences calls
// and decodes frames.
type Transport interface {
	Open() error
	Close() error
	SetVersion(v ProtocolVersion) error
	Status() (DPS, error)
	Set(dp string, value any) error
	// Receive blocks until the device pushes a frame, the context is
	// cancelled or the transport closes.
	Receive(ctx context.Context) (DPS, error)
}

// TransportProvider builds the transport a session will connect through.
type TransportProvider func() (Transport, error)
