package pedal

import (
	"fmt"
	"math"
)

// Crank cadence above which a CSC reading is treated as a glitch
const maxSensorCadence = 300

// CrankDecoder turns Cycling Speed and Cadence measurement notifications into
// stroke times. Each crank revolution is worth strokesPerRevolution strokes,
// spread evenly over the interval between two crank events; the fraction of a
// stroke left over carries into the next interval.
// See: https://www.bluetooth.com/specifications/specs/cycling-speed-and-cadence-service-1-0/
type CrankDecoder struct {
	strokesPerRevolution float64

	lastCrankRevolutions    uint16
	lastCrankEventTime      uint16
	hasPreviousCrankReading bool
	carry                   float64
}

func NewCrankDecoder(strokesPerRevolution float64) *CrankDecoder {
	if !(strokesPerRevolution > 0) || math.IsInf(strokesPerRevolution, 0) {
		panic("CrankDecoder: strokesPerRevolution must be positive")
	}
	return &CrankDecoder{strokesPerRevolution: strokesPerRevolution}
}

// Decode returns, oldest first, how many seconds before the latest crank event
// each new stroke happened. Notifications without crank data yield nothing.
func (d *CrankDecoder) Decode(buf []byte) ([]float64, error) {
	if len(buf) < 1 {
		return nil, fmt.Errorf("CSC data too short: %d bytes", len(buf))
	}

	flags := buf[0]
	// Bit 0: Wheel Revolution Data Present
	// Bit 1: Crank Revolution Data Present
	hasWheelData := (flags & 0x01) != 0
	hasCrankData := (flags & 0x02) != 0

	offset := 1

	// Skip wheel revolution data if present (4 bytes revolutions + 2 bytes event time)
	if hasWheelData {
		offset += 6
	}

	if !hasCrankData {
		return nil, nil
	}

	if offset+4 > len(buf) {
		return nil, fmt.Errorf("CSC data too short for crank data at offset %d", offset)
	}

	// Cumulative Crank Revolutions (UINT16)
	crankRevolutions := uint16(buf[offset]) | (uint16(buf[offset+1]) << 8)
	offset += 2

	// Last Crank Event Time (UINT16, 1/1024 second resolution)
	crankEventTime := uint16(buf[offset]) | (uint16(buf[offset+1]) << 8)

	if !d.hasPreviousCrankReading {
		d.lastCrankRevolutions = crankRevolutions
		d.lastCrankEventTime = crankEventTime
		d.hasPreviousCrankReading = true
		return nil, nil
	}

	// Rollover of the UINT16 counters is handled by unsigned subtraction
	revDiff := crankRevolutions - d.lastCrankRevolutions
	timeDiff := crankEventTime - d.lastCrankEventTime

	d.lastCrankRevolutions = crankRevolutions
	d.lastCrankEventTime = crankEventTime

	if revDiff == 0 || timeDiff == 0 {
		// Repeated notification for the same crank event
		return nil, nil
	}

	seconds := float64(timeDiff) / 1024.0
	cadenceRPM := float64(revDiff) * 60.0 / seconds
	if cadenceRPM > maxSensorCadence {
		d.carry = 0
		return nil, nil
	}

	strokes := float64(revDiff) * d.strokesPerRevolution
	total := d.carry + strokes
	count := int(math.Floor(total))
	perStroke := seconds / strokes

	ago := make([]float64, 0, count)
	for k := 1; k <= count; k++ {
		at := (float64(k) - d.carry) * perStroke
		ago = append(ago, math.Max(0, seconds-at))
	}
	d.carry = total - float64(count)
	return ago, nil
}

// Reset forgets the previous reading, e.g. after a reconnect
func (d *CrankDecoder) Reset() {
	d.hasPreviousCrankReading = false
	d.carry = 0
}
