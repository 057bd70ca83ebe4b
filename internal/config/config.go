// Package config layers aero-race settings: built-in defaults, an optional
// config file, a .env file, AERO_ environment variables and command-line
// flags, later layers overriding earlier ones.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lowaak/aero-race/internal/history"
	"github.com/lowaak/aero-race/internal/logging"
	"github.com/lowaak/aero-race/internal/pacing"
	"github.com/lowaak/aero-race/internal/pedal"
	"github.com/lowaak/aero-race/internal/pedalsim"
	"github.com/lowaak/aero-race/internal/race"
)

const (
	appName   = "aero-race"
	envPrefix = "AERO"
)

// Keys
const (
	KeyGearRatio      = "race.gear_ratio"
	KeyMaxCadence     = "race.max_cadence"
	KeyStartCountdown = "race.start_countdown"
	KeyDoneDuration   = "race.done_duration"
	KeySplitInterval  = "race.split_interval"
	KeyLanes          = "race.lanes"
	KeyGhostSpeeds    = "race.ghost_speeds"
	KeyTickRate       = "race.tick_rate"

	KeyPedalSource    = "pedal.source"
	KeyWebSocketURL   = "pedal.websocket_url"
	KeyReconnectDelay = "pedal.reconnect_delay"
	KeyBLEAddress     = "pedal.ble_address"
	KeyBLEScanTimeout = "pedal.ble_scan_timeout"

	KeyTextLog       = "history.text_log"
	KeySQLite        = "history.sqlite"
	KeyBadger        = "history.badger"
	KeyGhostState    = "history.ghost_state"
	KeyBackends      = "history.backends"
	KeyRestoreGhosts = "history.restore_ghosts"

	KeyLogFile       = "log.file"
	KeyLogLevel      = "log.level"
	KeyLogMaxSizeMB  = "log.max_size_mb"
	KeyLogMaxBackups = "log.max_backups"
	KeyLogMaxAgeDays = "log.max_age_days"

	KeyPedalSimAddr = "pedalsim.addr"
	KeyPedalSimRPM  = "pedalsim.rpm"
)

// Pedal sources
const (
	SourceWebSocket = "websocket"
	SourceBLE       = "ble"
	SourceKeyboard  = "keyboard"
)

// FlagKeys maps command-line flag names to the keys they override. Load binds
// every flag of the set that appears here.
var FlagKeys = map[string]string{
	"log-level":      KeyLogLevel,
	"pedal-source":   KeyPedalSource,
	"websocket-url":  KeyWebSocketURL,
	"ble-address":    KeyBLEAddress,
	"lanes":          KeyLanes,
	"restore-ghosts": KeyRestoreGhosts,
	"addr":           KeyPedalSimAddr,
	"rpm":            KeyPedalSimRPM,
}

// Load builds the layered configuration. path names an explicit config file;
// when empty, config.{yaml,toml} is looked up under the user config directory
// and a missing file is not an error. flags may be nil.
func Load(flags *pflag.FlagSet, path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if dir, err := os.UserConfigDir(); err == nil {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(dir, appName))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	dataDir := dataDir()

	v.SetDefault(KeyGearRatio, pacing.DefaultGearRatio)
	v.SetDefault(KeyMaxCadence, pacing.DefaultMaxCadence)
	v.SetDefault(KeyStartCountdown, race.DefaultStartCountdown)
	v.SetDefault(KeyDoneDuration, race.DefaultDoneDuration)
	v.SetDefault(KeySplitInterval, race.DefaultSplitInterval)
	v.SetDefault(KeyLanes, race.DefaultLanes)
	ghosts := race.DefaultGhostAssignment()
	speeds := make([]float64, 0, len(ghosts))
	for _, lane := range ghosts.Lanes() {
		speeds = append(speeds, ghosts[lane])
	}
	v.SetDefault(KeyGhostSpeeds, speeds)
	v.SetDefault(KeyTickRate, 60)

	v.SetDefault(KeyPedalSource, SourceWebSocket)
	v.SetDefault(KeyWebSocketURL, "ws://localhost:8001")
	v.SetDefault(KeyReconnectDelay, pedal.DefaultReconnectDelay)
	v.SetDefault(KeyBLEAddress, "")
	v.SetDefault(KeyBLEScanTimeout, pedal.DefaultScanTimeout)

	v.SetDefault(KeyTextLog, filepath.Join(dataDir, "reps.log"))
	v.SetDefault(KeySQLite, filepath.Join(dataDir, "history.db"))
	v.SetDefault(KeyBadger, filepath.Join(dataDir, "badger"))
	v.SetDefault(KeyGhostState, filepath.Join(dataDir, "ghosts.json"))
	v.SetDefault(KeyBackends, []string{history.BackendText, history.BackendSQLite})
	v.SetDefault(KeyRestoreGhosts, false)

	v.SetDefault(KeyLogFile, filepath.Join(dataDir, appName+".log"))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogMaxSizeMB, 10)
	v.SetDefault(KeyLogMaxBackups, 3)
	v.SetDefault(KeyLogMaxAgeDays, 28)

	v.SetDefault(KeyPedalSimAddr, pedalsim.DefaultAddr)
	v.SetDefault(KeyPedalSimRPM, pedalsim.DefaultRPM)
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", appName)
	}
	return appName
}

// RaceConfig builds and validates the race configuration. Ghost speed i is
// assigned to lane i+1.
func RaceConfig(v *viper.Viper) (race.Config, error) {
	speeds, err := floatList(v.Get(KeyGhostSpeeds))
	if err != nil {
		return race.Config{}, fmt.Errorf("%w: %s: %v", race.ErrInvalidConfig, KeyGhostSpeeds, err)
	}
	ghosts := make(race.GhostAssignment, len(speeds))
	for i, speed := range speeds {
		ghosts[i+1] = speed
	}

	cfg := race.Config{
		GearRatio:      v.GetFloat64(KeyGearRatio),
		MaxCadence:     v.GetFloat64(KeyMaxCadence),
		StartCountdown: v.GetInt(KeyStartCountdown),
		DoneDuration:   v.GetDuration(KeyDoneDuration),
		SplitInterval:  v.GetFloat64(KeySplitInterval),
		Lanes:          v.GetInt(KeyLanes),
		GhostSpeeds:    ghosts,
	}
	if err := cfg.Validate(); err != nil {
		return race.Config{}, err
	}
	return cfg, nil
}

// TickInterval converts race.tick_rate into the engine tick period
func TickInterval(v *viper.Viper) (time.Duration, error) {
	rate := v.GetFloat64(KeyTickRate)
	if !(rate > 0) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("%w: tick rate must be positive, got %v", race.ErrInvalidConfig, rate)
	}
	return time.Duration(float64(time.Second) / rate), nil
}

// HistorySettings locates the history backends
func HistorySettings(v *viper.Viper) history.Settings {
	return history.Settings{
		TextLogPath:    v.GetString(KeyTextLog),
		SQLitePath:     v.GetString(KeySQLite),
		BadgerDir:      v.GetString(KeyBadger),
		GhostStatePath: v.GetString(KeyGhostState),
		Backends:       stringList(v.Get(KeyBackends)),
	}
}

// PedalSettings selects and configures the pedal transport
type PedalSettings struct {
	Source         string
	WebSocketURL   string
	ReconnectDelay time.Duration
	BLEAddress     string
	BLEScanTimeout time.Duration
}

// Pedal reads the pedal transport settings
func Pedal(v *viper.Viper) (PedalSettings, error) {
	settings := PedalSettings{
		Source:         strings.ToLower(v.GetString(KeyPedalSource)),
		WebSocketURL:   v.GetString(KeyWebSocketURL),
		ReconnectDelay: v.GetDuration(KeyReconnectDelay),
		BLEAddress:     v.GetString(KeyBLEAddress),
		BLEScanTimeout: v.GetDuration(KeyBLEScanTimeout),
	}
	switch settings.Source {
	case SourceWebSocket:
		if settings.WebSocketURL == "" {
			return PedalSettings{}, fmt.Errorf("%s is required for the %s source", KeyWebSocketURL, SourceWebSocket)
		}
	case SourceBLE, SourceKeyboard:
	default:
		return PedalSettings{}, fmt.Errorf("unknown pedal source %q", settings.Source)
	}
	return settings, nil
}

// Log reads the logger settings
func Log(v *viper.Viper) (logging.Settings, error) {
	level, err := logging.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return logging.Settings{}, err
	}
	return logging.Settings{
		File:       v.GetString(KeyLogFile),
		Level:      level,
		MaxSizeMB:  v.GetInt(KeyLogMaxSizeMB),
		MaxBackups: v.GetInt(KeyLogMaxBackups),
		MaxAgeDays: v.GetInt(KeyLogMaxAgeDays),
	}, nil
}

// PedalSim reads the simulator server settings
func PedalSim(v *viper.Viper) pedalsim.Config {
	return pedalsim.Config{
		Addr: v.GetString(KeyPedalSimAddr),
		RPM:  v.GetFloat64(KeyPedalSimRPM),
	}
}

// Dump renders the effective configuration as YAML
func Dump(v *viper.Viper) (string, error) {
	settings := make(map[string]any)
	keys := v.AllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		section, name, found := strings.Cut(key, ".")
		if !found {
			settings[key] = printable(v.Get(key))
			continue
		}
		group, ok := settings[section].(map[string]any)
		if !ok {
			group = make(map[string]any)
			settings[section] = group
		}
		group[name] = printable(v.Get(key))
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(out), nil
}

func printable(value any) any {
	if d, ok := value.(time.Duration); ok {
		return d.String()
	}
	return value
}

// floatList accepts a list from a config file, a default, or a comma or space
// separated environment value
func floatList(value any) ([]float64, error) {
	switch list := value.(type) {
	case nil:
		return nil, nil
	case []float64:
		return append([]float64(nil), list...), nil
	case string:
		fields := splitList(list)
		out := make([]float64, 0, len(fields))
		for _, field := range fields {
			f, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		return out, nil
	case []any:
		out := make([]float64, 0, len(list))
		for _, item := range list {
			f, err := cast.ToFloat64E(item)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported list %T", value)
	}
}

func stringList(value any) []string {
	if s, ok := value.(string); ok {
		return splitList(s)
	}
	var out []string
	for _, item := range cast.ToStringSlice(value) {
		out = append(out, splitList(item)...)
	}
	return out
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
