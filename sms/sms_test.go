package sms_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hamsadev/ril"
	"github.com/hamsadev/ril/sms"
	"github.com/hamsadev/ril/stream"
)

type dialerFunc func(ctx context.Context) (stream.Transport, error)

func (f dialerFunc) Dial(ctx context.Context) (stream.Transport, error) { return f(ctx) }

func newTestClient(t *testing.T) (*sms.Client, *stream.TestTransport) {
	t.Helper()

	tr := stream.NewTestTransport()
	tr.OnWrite = func(p []byte) { tr.Feed("\r\nOK\r\n") }

	cfg, err := ril.NewConfigBuilder().
		WithDialer(dialerFunc(func(ctx context.Context) (stream.Transport, error) { return tr, nil })).
		WithCommandTimeout(2 * time.Second).
		WithProbeAttempts(2).
		Build()
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	s, err := ril.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	tr.SetOnWrite(nil)
	t.Cleanup(func() { s.Close() })
	return sms.New(s), tr
}

func TestSetTextMode(t *testing.T) {
	c, tr := newTestClient(t)
	tr.SetOnWrite(func(p []byte) { tr.Feed("\r\nOK\r\n") })

	if err := c.SetTextMode(context.Background()); err != nil {
		t.Errorf("SetTextMode() = %v", err)
	}
	if !strings.Contains(tr.Written(), "AT+CMGF=1\r\n") {
		t.Error("AT+CMGF=1 never written")
	}
}

func TestSend(t *testing.T) {
	c, tr := newTestClient(t)
	tr.SetOnWrite(func(p []byte) {
		if strings.Contains(string(p), "AT+CMGS=") {
			tr.Feed("\r\n> ")
			return
		}
		// Message body with terminator; the device confirms with the
		// message reference.
		tr.Feed("\r\n+CMGS: 42\r\n\r\nOK\r\n")
	})

	ref, err := c.Send(context.Background(), "+1234567890", "hello world")
	if err != nil {
		t.Fatalf("Send() = %v", err)
	}
	if ref != 42 {
		t.Errorf("reference = %d, want 42", ref)
	}
	if !strings.Contains(tr.Written(), "hello world\x1a") {
		t.Error("message body with Ctrl-Z terminator never written")
	}
}

func TestSendRejected(t *testing.T) {
	c, tr := newTestClient(t)
	tr.SetOnWrite(func(p []byte) { tr.Feed("\r\n+CMS ERROR: 500\r\n") })

	_, err := c.Send(context.Background(), "+1234567890", "hello")
	var cmdErr *ril.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Send() = %v, want *CommandError", err)
	}
	if cmdErr.Code != 500 {
		t.Errorf("Code = %d, want 500", cmdErr.Code)
	}
}

func TestSendInvalidParams(t *testing.T) {
	c, _ := newTestClient(t)

	if _, err := c.Send(context.Background(), "", "hi"); !errors.Is(err, ril.ErrInvalidParam) {
		t.Errorf("Send with empty recipient = %v, want ErrInvalidParam", err)
	}
	if _, err := c.Send(context.Background(), "+123", "bad\x1abody"); !errors.Is(err, ril.ErrInvalidParam) {
		t.Errorf("Send with Ctrl-Z in body = %v, want ErrInvalidParam", err)
	}
}

func TestRead(t *testing.T) {
	c, tr := newTestClient(t)
	tr.SetOnWrite(func(p []byte) {
		tr.Feed("\r\n+CMGR: \"REC UNREAD\",\"+9876543210\",,\"24/05/06,12:00:00+08\"\r\n" +
			"first line\r\nsecond line\r\n\r\nOK\r\n")
	})

	msg, err := c.Read(context.Background(), 3)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if msg.Index != 3 {
		t.Errorf("Index = %d, want 3", msg.Index)
	}
	if msg.Status != "REC UNREAD" {
		t.Errorf("Status = %q, want REC UNREAD", msg.Status)
	}
	if msg.Sender != "+9876543210" {
		t.Errorf("Sender = %q", msg.Sender)
	}
	if msg.Time != "24/05/06,12:00:00+08" {
		t.Errorf("Time = %q", msg.Time)
	}
	if msg.Text != "first line\nsecond line" {
		t.Errorf("Text = %q, want both body lines", msg.Text)
	}
}

func TestReadNotFound(t *testing.T) {
	c, tr := newTestClient(t)
	// An empty slot answers with just OK.
	tr.SetOnWrite(func(p []byte) { tr.Feed("\r\nOK\r\n") })

	_, err := c.Read(context.Background(), 9)
	if !errors.Is(err, ril.ErrNotFound) {
		t.Errorf("Read() = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	c, tr := newTestClient(t)
	tr.SetOnWrite(func(p []byte) {
		tr.Feed("\r\n+CMGL: 1,\"REC READ\",\"+111\",,\"24/05/06,10:00:00+08\"\r\nfirst\r\n" +
			"+CMGL: 2,\"REC UNREAD\",\"+222\",,\"24/05/06,11:00:00+08\"\r\nsecond\r\n\r\nOK\r\n")
	})

	msgs, err := c.List(context.Background(), sms.All)
	if err != nil {
		t.Fatalf("List() = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("List() returned %d messages, want 2", len(msgs))
	}
	if msgs[0].Index != 1 || msgs[0].Sender != "+111" || msgs[0].Text != "first" {
		t.Errorf("message 0 = %+v", msgs[0])
	}
	if msgs[1].Index != 2 || msgs[1].Status != "REC UNREAD" || msgs[1].Text != "second" {
		t.Errorf("message 1 = %+v", msgs[1])
	}
}

func TestListEmpty(t *testing.T) {
	c, tr := newTestClient(t)
	tr.SetOnWrite(func(p []byte) { tr.Feed("\r\nOK\r\n") })

	msgs, err := c.List(context.Background(), sms.Unread)
	if err != nil {
		t.Fatalf("List() = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("List() returned %d messages, want 0", len(msgs))
	}
}

func TestDelete(t *testing.T) {
	c, tr := newTestClient(t)
	tr.SetOnWrite(func(p []byte) { tr.Feed("\r\nOK\r\n") })

	if err := c.Delete(context.Background(), 3); err != nil {
		t.Errorf("Delete() = %v", err)
	}
	if !strings.Contains(tr.Written(), "AT+CMGD=3\r\n") {
		t.Error("AT+CMGD=3 never written")
	}
	if err := c.Delete(context.Background(), -1); !errors.Is(err, ril.ErrInvalidParam) {
		t.Errorf("Delete(-1) = %v, want ErrInvalidParam", err)
	}
}

func TestDeleteAll(t *testing.T) {
	c, tr := newTestClient(t)
	tr.SetOnWrite(func(p []byte) { tr.Feed("\r\nOK\r\n") })

	if err := c.DeleteAll(context.Background()); err != nil {
		t.Errorf("DeleteAll() = %v", err)
	}
	if !strings.Contains(tr.Written(), "AT+CMGD=0,4\r\n") {
		t.Error("AT+CMGD=0,4 never written")
	}
}
