// Package core defines core types with zero external dependencies.
package core

import "time"

// Direction tells whether a frame left or entered the harness.
type Direction uint8

const (
	DirectionOut Direction = iota
	DirectionIn
)

func (d Direction) String() string {
	if d == DirectionIn {
		return "in"
	}
	return "out"
}

// RawFrame is one link-layer frame as handed over by a transport.
type RawFrame struct {
	Data      []byte    // Full Ethernet frame
	Timestamp time.Time // Send or capture time
	Direction Direction
}
