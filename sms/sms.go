// Package sms sends, reads and deletes text mode short messages over
// an established session.
package sms

import (
	"context"
	"fmt"
	"strings"

	"github.com/hamsadev/ril"
	"github.com/hamsadev/ril/at"
)

// Message is a text message stored on the device.
type Message struct {
	Index  int
	Status string // "REC UNREAD", "REC READ", "STO UNSENT", "STO SENT"
	Sender string
	Time   string
	Text   string
}

// Storage selects which preset of stored messages List returns.
type Storage string

const (
	All    Storage = "ALL"
	Unread Storage = "REC UNREAD"
	Read   Storage = "REC READ"
)

// Client wraps a session with text mode SMS operations.
type Client struct {
	s *ril.Session
}

// New returns an SMS client over s. Call SetTextMode once before the
// other operations; the device defaults to PDU mode after power on.
func New(s *ril.Session) *Client {
	return &Client{s: s}
}

// SetTextMode switches the device to text mode with AT+CMGF=1.
func (c *Client) SetTextMode(ctx context.Context) error {
	if err := c.s.SendCommand(ctx, "AT+CMGF=1", nil); err != nil {
		return fmt.Errorf("set text mode: %w", err)
	}
	return nil
}

// Send submits a text message to recipient and blocks until the
// network accepts it. The recipient should be in international format
// (e.g. "+1234567890"). Network delivery happens asynchronously; the
// returned reference is the device's message reference number.
func (c *Client) Send(ctx context.Context, recipient, text string) (int, error) {
	if recipient == "" {
		return 0, ril.ErrInvalidParam
	}
	if strings.ContainsAny(text, "\x1a\x1b") {
		return 0, ril.ErrInvalidParam
	}

	cmd := fmt.Sprintf(`AT+CMGS="%s"`, recipient)
	if err := c.s.SendCommandWithPrompt(ctx, cmd); err != nil {
		return 0, fmt.Errorf("request send prompt: %w", err)
	}

	ref := -1
	err := c.s.SendBinary(ctx, []byte(text+at.CtrlZ), func(line []byte) ril.Verdict {
		rest, ok := after(line, "+CMGS:")
		if !ok {
			return ril.Continue
		}
		if v, ok := at.NewCursor(rest, ',').Next(); ok {
			ref = int(v.Int)
		}
		return ril.Continue
	})
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return ref, nil
}

// Read fetches one stored message by index with AT+CMGR.
func (c *Client) Read(ctx context.Context, index int) (Message, error) {
	if index < 0 {
		return Message{}, ril.ErrInvalidParam
	}

	msg := Message{Index: index}
	seen := false
	var body []string
	cmd := fmt.Sprintf("AT+CMGR=%d", index)
	err := c.s.SendCommand(ctx, cmd, func(line []byte) ril.Verdict {
		if rest, ok := after(line, "+CMGR:"); ok {
			seen = true
			// Format: <stat>,<oa>,[<alpha>],<scts>
			cur := at.NewCursor(rest, ',')
			if v, ok := cur.Next(); ok {
				msg.Status = v.Str
			}
			if v, ok := cur.Next(); ok {
				msg.Sender = v.Str
			}
			cur.Next() // alpha, normally empty
			if v, ok := cur.Next(); ok {
				msg.Time = v.Str
			}
			return ril.Continue
		}
		if seen {
			body = append(body, string(line))
		}
		return ril.Continue
	})
	if err != nil {
		return Message{}, fmt.Errorf("read message %d: %w", index, err)
	}
	if !seen {
		return Message{}, fmt.Errorf("read message %d: %w", index, ril.ErrNotFound)
	}
	msg.Text = strings.Join(body, "\n")
	return msg, nil
}

// List fetches the stored messages matching filter with AT+CMGL.
func (c *Client) List(ctx context.Context, filter Storage) ([]Message, error) {
	if filter == "" {
		filter = All
	}

	var msgs []Message
	var open *Message
	var body []string
	flush := func() {
		if open == nil {
			return
		}
		open.Text = strings.Join(body, "\n")
		msgs = append(msgs, *open)
		open = nil
		body = nil
	}

	cmd := fmt.Sprintf(`AT+CMGL="%s"`, filter)
	err := c.s.SendCommand(ctx, cmd, func(line []byte) ril.Verdict {
		if rest, ok := after(line, "+CMGL:"); ok {
			flush()
			// Format: <index>,<stat>,<oa>,[<alpha>],<scts>
			cur := at.NewCursor(rest, ',')
			m := Message{}
			if v, ok := cur.Next(); ok {
				m.Index = int(v.Int)
			}
			if v, ok := cur.Next(); ok {
				m.Status = v.Str
			}
			if v, ok := cur.Next(); ok {
				m.Sender = v.Str
			}
			cur.Next() // alpha
			if v, ok := cur.Next(); ok {
				m.Time = v.Str
			}
			open = &m
			return ril.Continue
		}
		if open != nil {
			body = append(body, string(line))
		}
		return ril.Continue
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	flush()
	return msgs, nil
}

// Delete removes one stored message by index with AT+CMGD.
func (c *Client) Delete(ctx context.Context, index int) error {
	if index < 0 {
		return ril.ErrInvalidParam
	}
	cmd := fmt.Sprintf("AT+CMGD=%d", index)
	if err := c.s.SendCommand(ctx, cmd, nil); err != nil {
		return fmt.Errorf("delete message %d: %w", index, err)
	}
	return nil
}

// DeleteAll removes every stored message with AT+CMGD=0,4.
func (c *Client) DeleteAll(ctx context.Context) error {
	if err := c.s.SendCommand(ctx, "AT+CMGD=0,4", nil); err != nil {
		return fmt.Errorf("delete all messages: %w", err)
	}
	return nil
}

func after(line []byte, prefix string) (string, bool) {
	s := string(line)
	i := strings.Index(s, prefix)
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(s[i+len(prefix):]), true
}
