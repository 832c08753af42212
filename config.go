package ril

import (
	"context"
	"log/slog"
	"time"

	"github.com/hamsadev/ril/stream"
)

// DefaultCommandTimeout applies to commands submitted without a
// context deadline.
const DefaultCommandTimeout = 5 * time.Second

// Config holds the session settings. Zero values select the defaults
// documented per field; use NewConfigBuilder for fluent construction.
type Config struct {
	// Dialer opens the transport. Required.
	Dialer stream.Dialer

	// URCHandler receives unsolicited result codes observed while no
	// command is in flight. Nil disables URC activation during Start.
	URCHandler URCFunc

	// Logger receives structured session events. Nil discards them.
	Logger *slog.Logger

	// PowerCycle, when set, is invoked by Start after the liveness
	// probes go unanswered, typically to toggle a power key GPIO.
	PowerCycle func(ctx context.Context) error

	// CommandTimeout bounds a command when the caller's context
	// carries no deadline. Defaults to DefaultCommandTimeout.
	CommandTimeout time.Duration

	// ProbeTimeout bounds each "AT" liveness probe during Start.
	// Defaults to 500ms.
	ProbeTimeout time.Duration

	// ProbeAttempts is the number of liveness probes per power-on
	// attempt. Defaults to 10.
	ProbeAttempts int

	// PowerRetries is the number of power cycles Start attempts before
	// reporting ErrNoResponse. Defaults to 3.
	PowerRetries int

	// Echo keeps device command echo enabled (ATE1). Echo lines are
	// recognized and suppressed either way; disabling echo just saves
	// bandwidth. Defaults to ATE0.
	Echo bool

	// RxBufferSize and TxBufferSize bound the receive and transmit
	// rings. Default 512 and 256.
	RxBufferSize int
	TxBufferSize int

	// MaxLineLength bounds one response line; longer runs are
	// truncated and flagged. Defaults to 512.
	MaxLineLength int

	// PollInterval is the dispatch loop's sleep between receive polls.
	// Defaults to 1ms.
	PollInterval time.Duration
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = 500 * time.Millisecond
	}
	if c.ProbeAttempts == 0 {
		c.ProbeAttempts = 10
	}
	if c.PowerRetries == 0 {
		c.PowerRetries = 3
	}
	if c.RxBufferSize == 0 {
		c.RxBufferSize = 512
	}
	if c.TxBufferSize == 0 {
		c.TxBufferSize = 256
	}
	if c.MaxLineLength == 0 {
		c.MaxLineLength = 512
	}
	if c.PollInterval == 0 {
		c.PollInterval = time.Millisecond
	}
}

// ConfigBuilder assembles a Config fluently.
type ConfigBuilder struct {
	cfg Config
}

// NewConfigBuilder returns an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets the transport dialer.
func (b *ConfigBuilder) WithDialer(d stream.Dialer) *ConfigBuilder {
	b.cfg.Dialer = d
	return b
}

// WithURCHandler sets the unsolicited result code handler.
func (b *ConfigBuilder) WithURCHandler(fn URCFunc) *ConfigBuilder {
	b.cfg.URCHandler = fn
	return b
}

// WithLogger sets the structured logger.
func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.cfg.Logger = l
	return b
}

// WithPowerCycle sets the hardware power cycle hook.
func (b *ConfigBuilder) WithPowerCycle(fn func(ctx context.Context) error) *ConfigBuilder {
	b.cfg.PowerCycle = fn
	return b
}

// WithCommandTimeout sets the default command timeout.
func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.CommandTimeout = d
	return b
}

// WithProbeTimeout sets the per-probe timeout used by Start.
func (b *ConfigBuilder) WithProbeTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.ProbeTimeout = d
	return b
}

// WithProbeAttempts sets the number of liveness probes per power-on.
func (b *ConfigBuilder) WithProbeAttempts(n int) *ConfigBuilder {
	b.cfg.ProbeAttempts = n
	return b
}

// WithPowerRetries sets the number of power cycle attempts.
func (b *ConfigBuilder) WithPowerRetries(n int) *ConfigBuilder {
	b.cfg.PowerRetries = n
	return b
}

// WithEcho keeps device command echo enabled.
func (b *ConfigBuilder) WithEcho(on bool) *ConfigBuilder {
	b.cfg.Echo = on
	return b
}

// WithBufferSizes sets the receive and transmit ring capacities.
func (b *ConfigBuilder) WithBufferSizes(rx, tx int) *ConfigBuilder {
	b.cfg.RxBufferSize = rx
	b.cfg.TxBufferSize = tx
	return b
}

// WithMaxLineLength sets the response line length bound.
func (b *ConfigBuilder) WithMaxLineLength(n int) *ConfigBuilder {
	b.cfg.MaxLineLength = n
	return b
}

// WithPollInterval sets the dispatch loop poll interval.
func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.cfg.PollInterval = d
	return b
}

// Build validates the assembled Config and applies defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg := b.cfg
	cfg.setDefaults()
	return cfg, nil
}
