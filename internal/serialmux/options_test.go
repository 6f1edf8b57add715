package serialmux

import (
	"testing"

	"go.bug.st/serial"
)

// TestPortOptions_Normalize_Defaults tests that zero values are filled with
// the sensor sketch defaults
func TestPortOptions_Normalize_Defaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	if opts.BaudRate != 9600 {
		t.Errorf("Default baud rate = %d, want 9600", opts.BaudRate)
	}
	if opts.DataBits != 8 {
		t.Errorf("Default data bits = %d, want 8", opts.DataBits)
	}
	if opts.StopBits != 1 {
		t.Errorf("Default stop bits = %d, want 1", opts.StopBits)
	}
	if opts.Parity != "N" {
		t.Errorf("Default parity = %q, want N", opts.Parity)
	}
}

// TestPortOptions_Normalize_Validation tests rejection of invalid values
func TestPortOptions_Normalize_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts PortOptions
	}{
		{"data bits too low", PortOptions{DataBits: 4}},
		{"data bits too high", PortOptions{DataBits: 9}},
		{"invalid stop bits", PortOptions{StopBits: 3}},
		{"unsupported parity", PortOptions{Parity: "MARK"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.opts.Normalize(); err == nil {
				t.Errorf("Normalize accepted %+v", tt.opts)
			}
		})
	}
}

// TestPortOptions_Normalize_Parity tests parity spelling normalization
func TestPortOptions_Normalize_Parity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "N"},
		{"N", "N"},
		{"none", "N"},
		{"NONE", "N"},
		{"e", "E"},
		{"EVEN", "E"},
		{"o", "O"},
		{"odd", "O"},
		{" n ", "N"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			opts, err := PortOptions{Parity: tt.in}.Normalize()
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.in, err)
			}
			if opts.Parity != tt.want {
				t.Errorf("Parity = %q, want %q", opts.Parity, tt.want)
			}
		})
	}
}

// TestPortOptions_Equal tests configuration comparison across spellings
func TestPortOptions_Equal(t *testing.T) {
	a := PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "N"}
	b := PortOptions{Parity: "none"} // same after normalization

	if !a.Equal(b) {
		t.Error("Expected normalized configurations to be equal")
	}

	c := PortOptions{BaudRate: 115200}
	if a.Equal(c) {
		t.Error("Expected different baud rates to be unequal")
	}

	invalid := PortOptions{DataBits: 3}
	if a.Equal(invalid) {
		t.Error("Expected comparison with invalid options to be false")
	}
}

// TestPortOptions_SerialMode tests conversion to go.bug.st/serial mode
func TestPortOptions_SerialMode(t *testing.T) {
	tests := []struct {
		name       string
		opts       PortOptions
		wantBaud   int
		wantParity serial.Parity
	}{
		{"defaults", PortOptions{}, 9600, serial.NoParity},
		{"even parity", PortOptions{BaudRate: 115200, Parity: "E"}, 115200, serial.EvenParity},
		{"odd parity", PortOptions{Parity: "odd"}, 9600, serial.OddParity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := tt.opts.SerialMode()
			if err != nil {
				t.Fatalf("SerialMode returned error: %v", err)
			}
			if mode.BaudRate != tt.wantBaud {
				t.Errorf("BaudRate = %d, want %d", mode.BaudRate, tt.wantBaud)
			}
			if mode.Parity != tt.wantParity {
				t.Errorf("Parity = %v, want %v", mode.Parity, tt.wantParity)
			}
		})
	}

	if _, err := (PortOptions{StopBits: 5}).SerialMode(); err == nil {
		t.Error("SerialMode accepted invalid stop bits")
	}
}

// TestDefaultSerialPortMode tests the hardware default mode
func TestDefaultSerialPortMode(t *testing.T) {
	mode := DefaultSerialPortMode()
	if mode.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", mode.BaudRate)
	}
	if mode.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", mode.DataBits)
	}
	if mode.Parity != NoParity {
		t.Errorf("Parity = %v, want NoParity", mode.Parity)
	}
	if mode.StopBits != OneStopBit {
		t.Errorf("StopBits = %v, want OneStopBit", mode.StopBits)
	}
}
