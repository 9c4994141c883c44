// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mirror

import (
	"time"

	zik "github.com/netascode/go-zik"
)

// Mirror configuration options using the functional options pattern

// Username sets the username for gNMI authentication
func Username(username string) func(*Mirror) {
	return func(m *Mirror) {
		m.username = username
	}
}

// Password sets the password for gNMI authentication
func Password(password string) func(*Mirror) {
	return func(m *Mirror) {
		m.password = password
	}
}

// Port sets the target port used when the address carries none
//
// Default: 57400
func Port(port int) func(*Mirror) {
	return func(m *Mirror) {
		m.Port = port
	}
}

// TLS enables or disables TLS
//
// Default: true
func TLS(enabled bool) func(*Mirror) {
	return func(m *Mirror) {
		m.UseTLS = enabled
	}
}

// VerifyCertificate enables or disables TLS certificate verification
//
// Default: true
func VerifyCertificate(verify bool) func(*Mirror) {
	return func(m *Mirror) {
		m.VerifyCertificate = verify
	}
}

// TLSCert sets the client certificate file
func TLSCert(path string) func(*Mirror) {
	return func(m *Mirror) {
		m.tlsCert = path
	}
}

// TLSKey sets the client key file
func TLSKey(path string) func(*Mirror) {
	return func(m *Mirror) {
		m.tlsKey = path
	}
}

// TLSCA sets the CA certificate file
func TLSCA(path string) func(*Mirror) {
	return func(m *Mirror) {
		m.tlsCA = path
	}
}

// ConnectTimeout sets the connection establishment timeout
//
// Default: 30s
func ConnectTimeout(timeout time.Duration) func(*Mirror) {
	return func(m *Mirror) {
		m.ConnectTimeout = timeout
	}
}

// OperationTimeout sets the timeout of a single publish attempt
//
// Default: 15s
func OperationTimeout(timeout time.Duration) func(*Mirror) {
	return func(m *Mirror) {
		m.OperationTimeout = timeout
	}
}

// MaxRetries sets the maximum number of retries for transient errors
//
// Default: 3
func MaxRetries(retries int) func(*Mirror) {
	return func(m *Mirror) {
		m.MaxRetries = retries
	}
}

// BackoffMinDelay sets the minimum backoff delay
//
// Default: 1s
func BackoffMinDelay(delay time.Duration) func(*Mirror) {
	return func(m *Mirror) {
		m.BackoffMinDelay = delay
	}
}

// BackoffMaxDelay sets the maximum backoff delay
//
// Default: 60s
func BackoffMaxDelay(delay time.Duration) func(*Mirror) {
	return func(m *Mirror) {
		m.BackoffMaxDelay = delay
	}
}

// BackoffDelayFactor sets the exponential growth of the backoff delay
//
// Default: 2
func BackoffDelayFactor(factor float64) func(*Mirror) {
	return func(m *Mirror) {
		m.BackoffDelayFactor = factor
	}
}

// Prefix sets the gNMI path every resource path is published under
//
// Example: Prefix("/headsets/zik-livingroom") publishes the battery at
// "/headsets/zik-livingroom/api/system/battery".
func Prefix(prefix string) func(*Mirror) {
	return func(m *Mirror) {
		m.Prefix = prefix
	}
}

// Encoding sets the encoding of published values
//
// Default: json_ietf
func Encoding(encoding string) func(*Mirror) {
	return func(m *Mirror) {
		m.Encoding = encoding
	}
}

// WithLogger configures a logger for the mirror
//
// The mirror shares the engine's Logger interface, so the same
// DefaultLogger or ZapLogger can serve both.
func WithLogger(logger zik.Logger) func(*Mirror) {
	return func(m *Mirror) {
		if logger != nil {
			m.logger = logger
		}
	}
}
