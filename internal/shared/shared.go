// package shared defines shared helpers
package shared

import (
	"io"
	"net"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

var hardwareAddrs = func() ([]net.HardwareAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var addrs []net.HardwareAddr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		addrs = append(addrs, iface.HardwareAddr)
	}
	return addrs, nil
}

// DeviceID returns the device identifier sent on login.
//
// An explicit override wins. Otherwise the first non-loopback MAC address is used, formatted the way
// the service expects (upper case, colon separated). Hosts without one get a random uuid.
func DeviceID(override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}

	addrs, err := hardwareAddrs()
	if err == nil && len(addrs) > 0 {
		return strings.ToUpper(addrs[0].String())
	}

	return GenerateID()
}
