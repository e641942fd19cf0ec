package moebot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeErrorsNoBits(t *testing.T) {

	assert := assert.New(t)

	assert.Empty(DecodeErrors(0))
}

func TestDecodeErrorsLowBits(t *testing.T) {

	assert := assert.New(t)

	names := DecodeErrors(0b11)
	assert.Equal([]string{"FAULT_LEAN", "FAULT_TOO_STEEP"}, names)
}

func TestDecodeErrorsAscendingOrder(t *testing.T) {

	assert := assert.New(t)

	names := DecodeErrors((1 << 21) | (1 << 0))
	assert.Equal([]string{"FAULT_LEAN", "LIFTED"}, names)
}

func TestDecodeErrorsAllKnownBits(t *testing.T) {

	assert := assert.New(t)

	names := DecodeErrors((1 << 30) - 1)
	assert.Len(names, 30)
	assert.Equal("FAULT_LEAN", names[0])
	assert.Equal("MOTOR_ERROR", names[29])
}

func TestDecodeErrorsUnknownHighBit(t *testing.T) {

	assert := assert.New(t)

	assert.Empty(DecodeErrors(1 << 30))
}

func TestDecodeErrorsStringInput(t *testing.T) {

	assert := assert.New(t)

	names := DecodeErrors("3")
	assert.Equal([]string{"FAULT_LEAN", "FAULT_TOO_STEEP"}, names)
}

func TestDecodeErrorsBadInput(t *testing.T) {

	assert := assert.New(t)

	assert.Empty(DecodeErrors("not a number"))
	assert.Empty(DecodeErrors(nil))
	assert.Empty(DecodeErrors(struct{}{}))
}

func TestDecodePasswordButtons(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("ABCD", DecodePassword(1234))
}

func TestDecodePasswordMixedDigits(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("A05", DecodePassword(105))
	assert.Equal("9876", DecodePassword(9876))
}

func TestDecodePasswordStringInput(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("ABCD", DecodePassword("1234"))
}

func TestDecodePasswordAbsent(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("", DecodePassword(nil))
	assert.Equal("", DecodePassword("garbage"))
}
