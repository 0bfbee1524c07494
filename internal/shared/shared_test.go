package shared

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestLogger(t *testing.T) {
	t.Run("writes to provided writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("hello", "pass", "library")

		out := buf.String()
		if !strings.Contains(out, "hello") {
			t.Errorf("expected message in output, got %q", out)
		}
		if !strings.Contains(out, "pass=library") {
			t.Errorf("expected key-value pair in output, got %q", out)
		}
	})

	t.Run("child logger carries fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "user", "me@example.com")
		logger.Info("login")

		if !strings.Contains(buf.String(), "user=me@example.com") {
			t.Errorf("expected child field in output, got %q", buf.String())
		}
	})

	t.Run("SetLogLevel hides debug by default", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Debug("hidden")
		if buf.Len() != 0 {
			t.Errorf("expected no debug output at info level, got %q", buf.String())
		}

		SetLogLevel(logger, log.DebugLevel)
		logger.Debug("shown")
		if !strings.Contains(buf.String(), "shown") {
			t.Errorf("expected debug output after SetLogLevel, got %q", buf.String())
		}
	})
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("GenerateID() = %q, not a valid uuid: %v", id, err)
	}
	if id == GenerateID() {
		t.Error("expected distinct ids")
	}
}

func TestDeviceID(t *testing.T) {
	original := hardwareAddrs
	t.Cleanup(func() { hardwareAddrs = original })

	tc := []struct {
		name     string
		override string
		addrs    []net.HardwareAddr
		addrErr  error
		want     string
		wantUUID bool
	}{
		{
			name:     "override wins",
			override: "  my-device ",
			addrs:    []net.HardwareAddr{{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}},
			want:     "my-device",
		},
		{
			name:  "first hardware address",
			addrs: []net.HardwareAddr{{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, {0x01, 0x02, 0x03, 0x04, 0x05, 0x06}},
			want:  "AA:BB:CC:DD:EE:FF",
		},
		{
			name:     "no hardware address",
			addrs:    nil,
			wantUUID: true,
		},
		{
			name:     "interface lookup fails",
			addrErr:  errors.New("boom"),
			wantUUID: true,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			hardwareAddrs = func() ([]net.HardwareAddr, error) { return tt.addrs, tt.addrErr }

			got := DeviceID(tt.override)
			if tt.wantUUID {
				if _, err := uuid.Parse(got); err != nil {
					t.Errorf("DeviceID() = %q, want uuid fallback", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("DeviceID() = %q, want %q", got, tt.want)
			}
		})
	}
}
