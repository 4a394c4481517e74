// pkg/driver/errors.go
package driver

import "errors"

// Sentinel errors for the robot command protocol. Callers distinguish them
// with errors.Is; every wrapped error keeps its sentinel in the chain.
var (
	// ErrConfiguration means the driver was built without a usable endpoint
	// (neither a resolvable name nor a literal IP).
	ErrConfiguration = errors.New("invalid robot configuration")

	// ErrReplyTimeout means a single request went unanswered. Recoverable;
	// the caller may retry at its own pace.
	ErrReplyTimeout = errors.New("no reply before timeout")

	// ErrLinkFault means timeouts are arriving too frequently for the link
	// to be considered alive. The session is unusable until Reset.
	ErrLinkFault = errors.New("communication fault: timeouts too frequent, try resetting the robot")

	// ErrCommandRejected means the robot answered with a NACK.
	ErrCommandRejected = errors.New("command rejected by robot")

	// ErrHardwareNotReady means a sensor failed to initialize on the robot
	// (lidar boot failure).
	ErrHardwareNotReady = errors.New("robot hardware not ready")

	// ErrInvalidParameter means a caller-supplied argument is outside the
	// accepted keyword or range set.
	ErrInvalidParameter = errors.New("invalid parameter")
)
