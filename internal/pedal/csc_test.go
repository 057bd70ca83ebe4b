package pedal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crankPacket(revs, eventTime uint16) []byte {
	return []byte{0x02, byte(revs), byte(revs >> 8), byte(eventTime), byte(eventTime >> 8)}
}

func TestCrankDecoder_FirstReadingPrimes(t *testing.T) {
	d := NewCrankDecoder(2)
	ago, err := d.Decode(crankPacket(10, 1024))
	require.NoError(t, err)
	assert.Empty(t, ago)

	ago, err = d.Decode(crankPacket(11, 2048))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0}, ago, 1e-9)
}

func TestCrankDecoder_CarriesFractionalStrokes(t *testing.T) {
	d := NewCrankDecoder(2.5)
	_, err := d.Decode(crankPacket(0, 0))
	require.NoError(t, err)

	ago, err := d.Decode(crankPacket(1, 1024))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.6, 0.2}, ago, 1e-9)

	ago, err = d.Decode(crankPacket(2, 2048))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.8, 0.4, 0}, ago, 1e-9)
}

func TestCrankDecoder_Rollover(t *testing.T) {
	d := NewCrankDecoder(1)
	_, err := d.Decode(crankPacket(65535, 65000))
	require.NoError(t, err)

	// Two revolutions over two seconds across both counter wraps
	ago, err := d.Decode(crankPacket(1, 1512))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0}, ago, 1e-9)
}

func TestCrankDecoder_SkipsWheelData(t *testing.T) {
	d := NewCrankDecoder(1)
	wheel := []byte{0, 0, 0, 0, 0, 0}
	first := append([]byte{0x03}, wheel...)
	first = append(first, 5, 0, 0, 4)
	second := append([]byte{0x03}, wheel...)
	second = append(second, 6, 0, 0, 8)

	_, err := d.Decode(first)
	require.NoError(t, err)
	ago, err := d.Decode(second)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0}, ago, 1e-9)
}

func TestCrankDecoder_IgnoredReadings(t *testing.T) {
	d := NewCrankDecoder(1)

	// Wheel only
	ago, err := d.Decode([]byte{0x01, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Nil(t, ago)

	_, err = d.Decode(crankPacket(1, 1024))
	require.NoError(t, err)

	// Same event repeated
	ago, err = d.Decode(crankPacket(1, 1024))
	require.NoError(t, err)
	assert.Empty(t, ago)

	// 10 revolutions in 1/1024 s is a glitch
	ago, err = d.Decode(crankPacket(11, 1025))
	require.NoError(t, err)
	assert.Empty(t, ago)

	d.Reset()
	ago, err = d.Decode(crankPacket(12, 2048))
	require.NoError(t, err)
	assert.Empty(t, ago)
}

func TestCrankDecoder_Errors(t *testing.T) {
	d := NewCrankDecoder(1)
	_, err := d.Decode(nil)
	assert.Error(t, err)
	_, err = d.Decode([]byte{0x02, 1, 0})
	assert.Error(t, err)
	_, err = d.Decode([]byte{0x03, 0, 0, 0, 0, 0, 0, 1})
	assert.Error(t, err)

	assert.Panics(t, func() { NewCrankDecoder(0) })
}
