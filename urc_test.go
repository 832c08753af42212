package ril_test

import (
	"testing"

	"github.com/hamsadev/ril"
	"github.com/hamsadev/ril/at"
)

func TestParseURC(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantType ril.URCType
		wantLen  int
	}{
		{
			name:     "new SMS stored",
			line:     `+CMTI: "SM",3`,
			wantType: ril.URCSmsStored,
			wantLen:  2,
		},
		{
			name:     "status report stored not confused with direct report",
			line:     "+CDSI: 4",
			wantType: ril.URCSmsStatusStored,
			wantLen:  1,
		},
		{
			name:     "module ready, bare report",
			line:     "RDY",
			wantType: ril.URCReady,
			wantLen:  0,
		},
		{
			name:     "functionality ready",
			line:     "+CFUN: 1",
			wantType: ril.URCFunReady,
			wantLen:  0,
		},
		{
			name:     "signal change with parameters",
			line:     `+QIND: "csq",24,99`,
			wantType: ril.URCSignalChange,
			wantLen:  2,
		},
		{
			name:     "network registration",
			line:     "+CREG: 0,1",
			wantType: ril.URCNetReg,
			wantLen:  2,
		},
		{
			name:     "packet domain detach",
			line:     "+CGEV: NW DETACH",
			wantType: ril.URCPdpNetDetach,
			wantLen:  0,
		},
		{
			name:     "MQTT message",
			line:     `+QMTRECV: 0,1,"topic/x","payload"`,
			wantType: ril.URCMqttMessage,
			wantLen:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, ok := ril.ParseURC(tt.line)
			if !ok {
				t.Fatalf("ParseURC(%q) = false, want match", tt.line)
			}
			if u.Type != tt.wantType {
				t.Errorf("Type = %d, want %d", u.Type, tt.wantType)
			}
			if u.Line != tt.line {
				t.Errorf("Line = %q, want %q", u.Line, tt.line)
			}
			if len(u.Params) != tt.wantLen {
				t.Errorf("len(Params) = %d, want %d", len(u.Params), tt.wantLen)
			}
		})
	}
}

func TestParseURCNoMatch(t *testing.T) {
	for _, line := range []string{"OK", "foo bar", "+NOTINLIST: 1"} {
		if u, ok := ril.ParseURC(line); ok {
			t.Errorf("ParseURC(%q) matched type %d, want no match", line, u.Type)
		}
	}
}

func TestParseURCTypedParams(t *testing.T) {
	u, ok := ril.ParseURC(`+CMTI: "SM",3`)
	if !ok {
		t.Fatal("ParseURC() = false, want match")
	}

	if u.Params[0].Type != at.ValueString || u.Params[0].Str != "SM" {
		t.Errorf("param 0 = %v %q, want string %q", u.Params[0].Type, u.Params[0].Str, "SM")
	}
	if u.Params[1].Type != at.ValueNumber || u.Params[1].Int != 3 {
		t.Errorf("param 1 = %v %d, want number 3", u.Params[1].Type, u.Params[1].Int)
	}
}
