// Package network queries registration state, signal quality and
// operator information over an established session.
package network

import (
	"context"
	"fmt"
	"strings"

	"github.com/hamsadev/ril"
	"github.com/hamsadev/ril/at"
)

// RegState is the network registration state reported by +CREG and
// +CGREG.
type RegState int

const (
	NotRegistered RegState = iota
	RegisteredHome
	Searching
	RegistrationDenied
	RegStateUnknown
	RegisteredRoaming
)

func (s RegState) String() string {
	switch s {
	case NotRegistered:
		return "not registered"
	case RegisteredHome:
		return "registered (home)"
	case Searching:
		return "searching"
	case RegistrationDenied:
		return "denied"
	case RegisteredRoaming:
		return "registered (roaming)"
	default:
		return "unknown"
	}
}

// Registered reports whether the state allows normal service.
func (s RegState) Registered() bool {
	return s == RegisteredHome || s == RegisteredRoaming
}

// Signal is the +CSQ report. RSSI 99 and BER 99 mean not detectable.
type Signal struct {
	RSSI int
	BER  int
}

// Client wraps a session with network query operations.
type Client struct {
	s *ril.Session
}

// New returns a network client over s.
func New(s *ril.Session) *Client {
	return &Client{s: s}
}

// SignalQuality reads the current signal report with AT+CSQ.
func (c *Client) SignalQuality(ctx context.Context) (Signal, error) {
	var sig Signal
	err := c.s.SendCommand(ctx, "AT+CSQ", func(line []byte) ril.Verdict {
		rest, ok := after(line, "+CSQ:")
		if !ok {
			return ril.Continue
		}
		cur := at.NewCursor(rest, ',')
		if v, ok := cur.Next(); ok {
			sig.RSSI = int(v.Int)
		}
		if v, ok := cur.Next(); ok {
			sig.BER = int(v.Int)
		}
		return ril.Continue
	})
	if err != nil {
		return Signal{}, fmt.Errorf("query signal quality: %w", err)
	}
	return sig, nil
}

// RegistrationStatus reads the circuit switched registration state
// with AT+CREG?.
func (c *Client) RegistrationStatus(ctx context.Context) (RegState, error) {
	return c.regQuery(ctx, "AT+CREG?", "+CREG:")
}

// PacketRegistrationStatus reads the packet domain registration state
// with AT+CGREG?.
func (c *Client) PacketRegistrationStatus(ctx context.Context) (RegState, error) {
	return c.regQuery(ctx, "AT+CGREG?", "+CGREG:")
}

func (c *Client) regQuery(ctx context.Context, cmd, prefix string) (RegState, error) {
	state := RegStateUnknown
	err := c.s.SendCommand(ctx, cmd, func(line []byte) ril.Verdict {
		rest, ok := after(line, prefix)
		if !ok {
			return ril.Continue
		}
		// Format: <n>,<stat>[,<lac>,<ci>[,<act>]]
		cur := at.NewCursor(rest, ',')
		cur.Next()
		if v, ok := cur.Next(); ok && v.Type == at.ValueNumber {
			state = RegState(v.Int)
		}
		return ril.Continue
	})
	if err != nil {
		return RegStateUnknown, fmt.Errorf("query registration: %w", err)
	}
	return state, nil
}

// Operator reads the currently selected operator name with AT+COPS?.
// An empty name means no operator is selected.
func (c *Client) Operator(ctx context.Context) (string, error) {
	var name string
	err := c.s.SendCommand(ctx, "AT+COPS?", func(line []byte) ril.Verdict {
		rest, ok := after(line, "+COPS:")
		if !ok {
			return ril.Continue
		}
		// Format: <mode>[,<format>,<oper>[,<act>]]; the name is the
		// third parameter when present.
		cur := at.NewCursor(rest, ',')
		cur.Next()
		cur.Next()
		if v, ok := cur.Next(); ok && v.Type == at.ValueString {
			name = v.Str
		}
		return ril.Continue
	})
	if err != nil {
		return "", fmt.Errorf("query operator: %w", err)
	}
	return name, nil
}

// SetAPN configures the packet data context with AT+QICSGP.
func (c *Client) SetAPN(ctx context.Context, contextID int, apn string) error {
	if contextID < 1 || apn == "" {
		return ril.ErrInvalidParam
	}
	cmd := fmt.Sprintf(`AT+QICSGP=%d,1,"%s","","",0`, contextID, apn)
	if err := c.s.SendCommand(ctx, cmd, nil); err != nil {
		return fmt.Errorf("set APN: %w", err)
	}
	return nil
}

// ActivateContext brings the packet data context up with AT+QIACT.
func (c *Client) ActivateContext(ctx context.Context, contextID int) error {
	if contextID < 1 {
		return ril.ErrInvalidParam
	}
	cmd := fmt.Sprintf("AT+QIACT=%d", contextID)
	if err := c.s.SendCommand(ctx, cmd, nil); err != nil {
		return fmt.Errorf("activate context: %w", err)
	}
	return nil
}

// DeactivateContext tears the packet data context down with AT+QIDEACT.
func (c *Client) DeactivateContext(ctx context.Context, contextID int) error {
	if contextID < 1 {
		return ril.ErrInvalidParam
	}
	cmd := fmt.Sprintf("AT+QIDEACT=%d", contextID)
	if err := c.s.SendCommand(ctx, cmd, nil); err != nil {
		return fmt.Errorf("deactivate context: %w", err)
	}
	return nil
}

// after returns the remainder of line past prefix, trimmed, and
// whether the prefix was present.
func after(line []byte, prefix string) (string, bool) {
	s := string(line)
	i := strings.Index(s, prefix)
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(s[i+len(prefix):]), true
}
