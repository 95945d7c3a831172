package taps

import "github.com/taps-go/taps/internal/core"

// LocalEndpoint describes a local attachment point. See internal/core for
// the field shape and fluent builder methods (WithInterface, WithAddress,
// WithHostName, WithPort); it is defined there so internal/racing and
// internal/transport can consume it without importing this package.
type LocalEndpoint = core.LocalEndpoint

// RemoteEndpoint describes a remote attachment point to connect to.
type RemoteEndpoint = core.RemoteEndpoint
