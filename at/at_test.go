package at_test

import (
	"testing"

	"github.com/hamsadev/ril/at"
)

func TestClassify(t *testing.T) {
	cmd := []byte("AT+CSQ")

	tests := []struct {
		name        string
		input       string
		echoPending bool
		expected    at.Class
	}{
		// Final responses
		{name: "OK response", input: "OK", expected: at.ClassFinalOK},
		{name: "ERROR response", input: "ERROR", expected: at.ClassFinalError},
		{name: "CME Error", input: "+CME ERROR: 30", expected: at.ClassFinalError},
		{name: "CMS Error", input: "+CMS ERROR: 500", expected: at.ClassFinalError},

		// Echo
		{name: "Echo consumed when pending", input: "AT+CSQ", echoPending: true, expected: at.ClassEcho},
		{name: "Echo text is data once consumed", input: "AT+CSQ", echoPending: false, expected: at.ClassData},

		// Data responses
		{name: "Signal quality response", input: "+CSQ: 15,99", expected: at.ClassData},
		{name: "PIN status", input: "+CPIN: READY", expected: at.ClassData},
		{name: "Network registration", input: "+CREG: 0,1", expected: at.ClassData},
		{name: "SMS send result", input: "+CMGS: 123", expected: at.ClassData},
		{name: "Device info", input: "Quectel", expected: at.ClassData},
		{name: "Domain terminal line is data to the session", input: "SEND OK", expected: at.ClassData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := at.Classify([]byte(tt.input), tt.echoPending, cmd)
			if result != tt.expected {
				t.Errorf("Expected %v, got %v for input %q", tt.expected, result, tt.input)
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		code    uint16
		isError bool
	}{
		{name: "CME with code", input: "+CME ERROR: 10", code: 10, isError: true},
		{name: "CMS with code", input: "+CMS ERROR: 321", code: 321, isError: true},
		{name: "Bare ERROR", input: "ERROR", code: at.ErrCodeUnspecified, isError: true},
		{name: "Verbose CME text", input: "+CME ERROR: SIM not inserted", code: at.ErrCodeUnspecified, isError: true},
		{name: "OK is not an error", input: "OK", isError: false},
		{name: "Data is not an error", input: "+CSQ: 15,99", isError: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, isError := at.ErrorCode([]byte(tt.input))
			if isError != tt.isError {
				t.Fatalf("Expected isError=%v, got %v for input %q", tt.isError, isError, tt.input)
			}
			if isError && code != tt.code {
				t.Errorf("Expected code %d, got %d for input %q", tt.code, code, tt.input)
			}
		})
	}
}
