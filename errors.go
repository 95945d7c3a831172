package taps

import tapserrors "github.com/taps-go/taps/internal/errors"

// Error taxonomy (§7). Every error a Connection or Listener produces is
// one of these concrete types; callers type-assert or errors.As to branch
// on them. Closed is deliberately not here — it is delivered as an event
// (EventHandler.OnClosed), not an error.
type (
	SelectionError    = tapserrors.SelectionError
	InitiateError     = tapserrors.InitiateError
	ListenError       = tapserrors.ListenError
	SendError         = tapserrors.SendError
	ReceiveError      = tapserrors.ReceiveError
	ConnectionError   = tapserrors.ConnectionError
	ExpiredMessage    = tapserrors.ExpiredMessage
	ConstructionError = tapserrors.ConstructionError
)
