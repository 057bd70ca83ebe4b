package pedal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"

	"github.com/lowaak/aero-race/internal/go_func_utils"
)

// Cycling Speed and Cadence Service (CSC)
const (
	ServiceUUIDCyclingSpeedCadence = "00001816-0000-1000-8000-00805f9b34fb"
	CharUUIDCSCMeasurement         = "00002a5b-0000-1000-8000-00805f9b34fb"
)

const DefaultScanTimeout = 30 * time.Second

// ErrNoSensor is returned when the scan ends without a matching sensor
var ErrNoSensor = errors.New("no cadence sensor found")

// BLESource connects to a CSC crank sensor and turns crank revolutions into
// strokes
type BLESource struct {
	adapter     *bluetooth.Adapter
	address     string // empty: first sensor advertising CSC
	scanTimeout time.Duration
	decoder     *CrankDecoder
	clock       clockwork.Clock
	logger      zerolog.Logger
}

func NewBLESource(
	adapter *bluetooth.Adapter,
	address string,
	scanTimeout time.Duration,
	strokesPerRevolution float64,
	clock clockwork.Clock,
	logger zerolog.Logger,
) *BLESource {
	if adapter == nil {
		panic("BLESource: adapter cannot be nil")
	}
	if clock == nil {
		panic("BLESource: clock cannot be nil")
	}
	if scanTimeout <= 0 {
		scanTimeout = DefaultScanTimeout
	}
	return &BLESource{
		adapter:     adapter,
		address:     address,
		scanTimeout: scanTimeout,
		decoder:     NewCrankDecoder(strokesPerRevolution),
		clock:       clock,
		logger:      logger.With().Str("component", "BLESource").Logger(),
	}
}

// Run scans, connects and streams strokes until ctx is done
func (s *BLESource) Run(ctx context.Context, out chan<- Stroke) error {
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("enable bluetooth adapter: %w", err)
	}

	address, err := s.scan(ctx)
	if err != nil {
		return err
	}

	s.logger.Info().Str("address", address.String()).Msg("connecting")
	device, err := s.adapter.Connect(address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connect %s: %w", address.String(), err)
	}
	defer func() {
		if err := device.Disconnect(); err != nil {
			s.logger.Warn().Err(err).Msg("disconnect failed")
		}
	}()

	characteristic, err := s.measurementCharacteristic(device)
	if err != nil {
		return err
	}

	notifications := make(chan []byte, 16)
	err = characteristic.EnableNotifications(func(buf []byte) {
		// The stack may reuse buf after the callback returns
		data := make([]byte, len(buf))
		copy(data, buf)
		select {
		case notifications <- data:
		default:
			s.logger.Warn().Msg("notification queue full, dropping reading")
		}
	})
	if err != nil {
		return fmt.Errorf("enable CSC notifications: %w", err)
	}
	s.decoder.Reset()
	s.logger.Info().Msg("streaming crank data")

	for {
		select {
		case <-ctx.Done():
			return nil
		case buf := <-notifications:
			now := s.clock.Now()
			ago, err := s.decoder.Decode(buf)
			if err != nil {
				s.logger.Debug().Err(err).Msg("bad CSC reading")
				continue
			}
			for _, seconds := range ago {
				if !emit(ctx, out, now.Add(-time.Duration(seconds*float64(time.Second)))) {
					return nil
				}
			}
		}
	}
}

func (s *BLESource) scan(ctx context.Context) (bluetooth.Address, error) {
	cscUUID, err := bluetooth.ParseUUID(ServiceUUIDCyclingSpeedCadence)
	if err != nil {
		return bluetooth.Address{}, err
	}

	found := make(chan bluetooth.Address, 1)
	scanDone := make(chan error, 1)
	s.logger.Info().Str("address", s.address).Dur("timeout", s.scanTimeout).Msg("scanning")

	go_func_utils.SafeGo(s.logger, func() {
		scanDone <- s.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !s.matches(result, cscUUID) {
				return
			}
			select {
			case found <- result.Address:
				s.logger.Info().
					Str("name", result.LocalName()).
					Str("address", result.Address.String()).
					Int16("rssi", result.RSSI).
					Msg("found sensor")
				if err := adapter.StopScan(); err != nil {
					s.logger.Warn().Err(err).Msg("stop scan failed")
				}
			default:
			}
		})
	})

	stopAndWait := func() {
		if err := s.adapter.StopScan(); err != nil {
			s.logger.Debug().Err(err).Msg("stop scan")
		}
		<-scanDone
	}

	select {
	case address := <-found:
		<-scanDone
		return address, nil
	case err := <-scanDone:
		if err != nil {
			return bluetooth.Address{}, fmt.Errorf("scan: %w", err)
		}
		return bluetooth.Address{}, ErrNoSensor
	case <-s.clock.After(s.scanTimeout):
		stopAndWait()
		return bluetooth.Address{}, ErrNoSensor
	case <-ctx.Done():
		stopAndWait()
		return bluetooth.Address{}, ctx.Err()
	}
}

func (s *BLESource) matches(result bluetooth.ScanResult, cscUUID bluetooth.UUID) bool {
	if s.address != "" {
		return strings.EqualFold(result.Address.String(), s.address)
	}
	for _, uuid := range result.ServiceUUIDs() {
		if uuid == cscUUID {
			return true
		}
	}
	return false
}

func (s *BLESource) measurementCharacteristic(device bluetooth.Device) (*bluetooth.DeviceCharacteristic, error) {
	serviceUUID, err := bluetooth.ParseUUID(ServiceUUIDCyclingSpeedCadence)
	if err != nil {
		return nil, err
	}
	charUUID, err := bluetooth.ParseUUID(CharUUIDCSCMeasurement)
	if err != nil {
		return nil, err
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		return nil, fmt.Errorf("error discovering services: %w", err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("service %v not found on device", serviceUUID.String())
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil {
		return nil, fmt.Errorf("could not discover characteristics for service %v: %w", serviceUUID.String(), err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("characteristic %v not found", charUUID.String())
	}
	return &chars[0], nil
}
