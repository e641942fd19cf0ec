package domain

import "fmt"

// MowerCommandRequest

// MowerCommandRequest is a validated device mutation or read issued by the
// command dispatcher. Each one maps to at most one device operation.
type MowerCommandRequest interface {
	ActorRequest
	MowerCommand() string
}

type MowerCommandRequestMixIn struct {
	ActorRequestMixIn
}

func (r MowerCommandRequestMixIn) MowerCommand() string {
	return fmt.Sprintf("%T", r)
}

// MowerCommandResponse

type MowerCommandResponse interface {
	ActorResponse
	MowerCommandResponse() string
}

type MowerCommandResponseMixIn struct {
	ActorResponseMixIn
}

func (r MowerCommandResponseMixIn) MowerCommandResponse() string {
	return fmt.Sprintf("%T", r)
}

// Mower commands

type StartMowingRequest struct {
	MowerCommandRequestMixIn
	Spiral bool
}

type StartMowingResponse struct {
	MowerCommandResponseMixIn
	State string
}

type PauseMowingRequest struct {
	MowerCommandRequestMixIn
}

type PauseMowingResponse struct {
	MowerCommandResponseMixIn
	State string
}

type CancelMowingRequest struct {
	MowerCommandRequestMixIn
}

type CancelMowingResponse struct {
	MowerCommandResponseMixIn
	State string
}

type ReturnToDockRequest struct {
	MowerCommandRequestMixIn
}

type ReturnToDockResponse struct {
	MowerCommandResponseMixIn
	State string
}

type SetMowTimeRequest struct {
	MowerCommandRequestMixIn
	Hours int
}

type SetMowTimeResponse struct {
	MowerCommandResponseMixIn
	Hours int
}

type SetMowInRainRequest struct {
	MowerCommandRequestMixIn
	Enabled bool
}

type SetMowInRainResponse struct {
	MowerCommandResponseMixIn
	Enabled bool
}

// ensure interface compliance
var _ MowerCommandRequest = (*StartMowingRequest)(nil)
