// Package file manages the device's internal flash filesystem: space
// queries, listings, deletion and raw up/downloads.
package file

import (
	"context"
	"fmt"
	"strings"

	"github.com/hamsadev/ril"
	"github.com/hamsadev/ril/at"
)

// SpaceInfo is the +QFLDS storage report, in bytes.
type SpaceInfo struct {
	Free  int64
	Total int64
}

// Info describes one stored file.
type Info struct {
	Name string
	Size int64
}

// Client wraps a session with filesystem operations.
type Client struct {
	s *ril.Session
}

// New returns a filesystem client over s.
func New(s *ril.Session) *Client {
	return &Client{s: s}
}

// Space queries free and total storage on medium ("UFS", "RAM" or
// "SD"). An empty medium selects UFS.
func (c *Client) Space(ctx context.Context, medium string) (SpaceInfo, error) {
	if medium == "" {
		medium = "UFS"
	}

	var info SpaceInfo
	cmd := fmt.Sprintf(`AT+QFLDS="%s"`, medium)
	err := c.s.SendCommand(ctx, cmd, func(line []byte) ril.Verdict {
		rest, ok := after(line, "+QFLDS:")
		if !ok {
			return ril.Continue
		}
		cur := at.NewCursor(rest, ',')
		if v, ok := cur.Next(); ok {
			info.Free = v.Int
		}
		if v, ok := cur.Next(); ok {
			info.Total = v.Int
		}
		return ril.Continue
	})
	if err != nil {
		return SpaceInfo{}, fmt.Errorf("query storage space: %w", err)
	}
	return info, nil
}

// List returns the stored files matching pattern. An empty pattern
// matches everything.
func (c *Client) List(ctx context.Context, pattern string) ([]Info, error) {
	if pattern == "" {
		pattern = "*"
	}

	var files []Info
	cmd := fmt.Sprintf(`AT+QFLST="%s"`, pattern)
	err := c.s.SendCommand(ctx, cmd, func(line []byte) ril.Verdict {
		rest, ok := after(line, "+QFLST:")
		if !ok {
			return ril.Continue
		}
		cur := at.NewCursor(rest, ',')
		var f Info
		if v, ok := cur.Next(); ok {
			f.Name = v.Str
		}
		if v, ok := cur.Next(); ok {
			f.Size = v.Int
		}
		files = append(files, f)
		return ril.Continue
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// Delete removes one stored file.
func (c *Client) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ril.ErrInvalidParam
	}
	cmd := fmt.Sprintf(`AT+QFDEL="%s"`, name)
	if err := c.s.SendCommand(ctx, cmd, nil); err != nil {
		return fmt.Errorf("delete file %q: %w", name, err)
	}
	return nil
}

// Upload stores data under name. The device opens a raw data phase
// with CONNECT, takes exactly len(data) bytes and confirms with a
// +QFUPL report carrying the received size.
func (c *Client) Upload(ctx context.Context, name string, data []byte) error {
	if name == "" || len(data) == 0 {
		return ril.ErrInvalidParam
	}

	cmd := fmt.Sprintf(`AT+QFUPL="%s",%d`, name, len(data))
	err := c.s.SendCommand(ctx, cmd, func(line []byte) ril.Verdict {
		if strings.HasPrefix(string(line), "CONNECT") {
			return ril.Done
		}
		return ril.Continue
	})
	if err != nil {
		return fmt.Errorf("open upload %q: %w", name, err)
	}

	stored := int64(-1)
	err = c.s.SendBinary(ctx, data, func(line []byte) ril.Verdict {
		rest, ok := after(line, "+QFUPL:")
		if !ok {
			return ril.Continue
		}
		if v, ok := at.NewCursor(rest, ',').Next(); ok {
			stored = v.Int
		}
		return ril.Continue
	})
	if err != nil {
		return fmt.Errorf("upload %q: %w", name, err)
	}
	if stored != int64(len(data)) {
		return fmt.Errorf("upload %q: device stored %d of %d bytes", name, stored, len(data))
	}
	return nil
}

// Download fetches the contents of name. The device announces the
// payload length in its CONNECT header and streams that many raw
// bytes before the closing +QFDWL report.
func (c *Client) Download(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, ril.ErrInvalidParam
	}

	var data []byte
	remaining := -1
	cmd := fmt.Sprintf(`AT+QFDWL="%s"`, name)
	err := c.s.SendCommand(ctx, cmd, func(chunk []byte) ril.Verdict {
		if remaining > 0 {
			// Raw payload phase.
			data = append(data, chunk...)
			remaining -= len(chunk)
			return ril.Continue
		}

		line := string(chunk)
		if rest, ok := after(chunk, "CONNECT"); ok && strings.HasPrefix(line, "CONNECT") {
			if v, ok := at.NewCursor(rest, ',').Next(); ok && v.Type == at.ValueNumber {
				remaining = int(v.Int)
				c.s.SetOperationBinary(remaining)
			}
			return ril.Continue
		}
		// The closing "+QFDWL: <size>,<checksum>" report needs no
		// handling; the final OK completes the command.
		return ril.Continue
	})
	if err != nil {
		return nil, fmt.Errorf("download %q: %w", name, err)
	}
	return data, nil
}

func after(line []byte, prefix string) (string, bool) {
	s := string(line)
	i := strings.Index(s, prefix)
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(s[i+len(prefix):]), true
}
