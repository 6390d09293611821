package config

const (
	Version string = "0.1.0"

	LogLevelDebug   string = "debug"
	LogLevelInfo    string = "info"
	LogLevelWarning string = "warn"
	LogLevelError   string = "error"

	// Name validation, shared by users, disks and DSSes.
	MaxNameLength int = 15

	// Striping unit bounds (bytes), inclusive, must be a power of two.
	MinStripingUnit int = 128
	MaxStripingUnit int = 1 << 20

	// MinDiskCount is the minimum width n of a DSS (n-1 data + 1 parity).
	MinDiskCount int = 3

	// DefaultReadErrorProb is the default per-stripe error-injection
	// probability (percent) used by `user read` when none is given.
	DefaultReadErrorProb int = 10

	// CopySectionTimeout is how long the manager holds the copy critical
	// section before unilaterally releasing it for a stuck caller.
	CopySectionTimeout = 60 // seconds

	// CommandTimeoutSeconds bounds every request/response round trip.
	CommandTimeoutSeconds = 30

	// BackgroundLoopTimeoutSeconds bounds the management/command receive
	// loops so shutdown signals are observed promptly.
	BackgroundLoopTimeoutSeconds = 1

	// MaxReadRetries is the number of attempts (including the first) the
	// user client makes to read a stripe before giving up permanently.
	MaxReadRetries = 3

	// MaxDatagramPayload is the largest payload size sent over the UDP
	// control channel (registration, ls, critical sections). Block
	// transfer uses the stream transport instead (see internal/wire).
	MaxDatagramPayload = 8192
)
