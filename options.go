package h2

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Options configures a Connection, decoded via mapstructure the way
// the teacher's ConnOpts/ClientOpts were hand-assembled field structs,
// generalized here to also accept a loosely-typed config map (e.g.
// parsed from YAML/JSON by a caller) through NewOptionsFromMap.
type Options struct {
	// HeaderTableSize is this side's advertised HEADER_TABLE_SIZE.
	HeaderTableSize uint32 `mapstructure:"header_table_size"`
	// MaxConcurrentStreams caps locally-accepted concurrent streams.
	MaxConcurrentStreams uint32 `mapstructure:"max_concurrent_streams"`
	// InitialWindowSize is the per-stream flow-control window advertised
	// at handshake time.
	InitialWindowSize uint32 `mapstructure:"initial_window_size"`
	// EnablePush advertises (or forbids) server push.
	EnablePush bool `mapstructure:"enable_push"`
	// PingInterval is how often the writer sends a keepalive PING.
	// Zero uses DefaultPingInterval.
	PingInterval time.Duration `mapstructure:"ping_interval"`
	// SettingsTimeout bounds how long the handshake waits for the
	// peer's initial SETTINGS frame before failing the connection. A
	// missing SETTINGS ACK is not timed out.
	SettingsTimeout time.Duration `mapstructure:"settings_timeout"`

	// Logger receives structured connection/stream/frame events. A nil
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger `mapstructure:"-"`
}

// DefaultPingInterval matches the teacher's DefaultPingInterval.
const DefaultPingInterval = 30 * time.Second

// DefaultSettingsTimeout bounds the handshake's wait for the peer's
// initial SETTINGS frame.
const DefaultSettingsTimeout = 10 * time.Second

// DefaultOptions returns an Options seeded with this module's defaults,
// the Go-side mirror of DefaultSettings().
func DefaultOptions() *Options {
	return &Options{
		HeaderTableSize:      DefaultHeaderTableSize,
		MaxConcurrentStreams: DefaultMaxConcurrentStreams,
		InitialWindowSize:    DefaultInitialWindowSize,
		EnablePush:           DefaultEnablePush != 0,
		PingInterval:         DefaultPingInterval,
		SettingsTimeout:      DefaultSettingsTimeout,
	}
}

// NewOptionsFromMap decodes a loosely-typed config map (e.g. parsed
// from a YAML/JSON/TOML file by the caller) into Options over the
// module defaults, using mapstructure the way packetd-style services
// in the corpus decode their service configs.
func NewOptionsFromMap(m map[string]interface{}) (*Options, error) {
	opts := DefaultOptions()
	if err := mapstructure.Decode(m, opts); err != nil {
		return nil, errors.Wrap(err, "h2: decoding options")
	}
	return opts, nil
}

func (o *Options) logger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// FastHTTPLogger exposes this Connection's logger through fasthttp's
// Logger interface, for callers that thread h2 into a fasthttp
// server/client sharing one log sink (fasthttp.Server.Logger,
// fasthttp.HostClient.Logger) instead of a *zap.Logger directly.
func (o *Options) FastHTTPLogger() fasthttp.Logger {
	return NewFastHTTPLogger(o.logger())
}

func (o *Options) settings() *Settings {
	st := DefaultSettings()
	if o == nil {
		return st
	}
	if o.HeaderTableSize != 0 {
		st.Set(SettingHeaderTableSize, o.HeaderTableSize)
	}
	if o.MaxConcurrentStreams != 0 {
		st.Set(SettingMaxConcurrentStreams, o.MaxConcurrentStreams)
	}
	if o.InitialWindowSize != 0 {
		st.Set(SettingInitialWindowSize, o.InitialWindowSize)
	}
	push := uint32(0)
	if o.EnablePush {
		push = 1
	}
	st.Set(SettingEnablePush, push)
	return st
}
