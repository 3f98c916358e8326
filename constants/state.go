package constants

// State is a node of the optimization state machine.
type State string

// Stable values; they show up in logs and run reports.
const (
	StateExtract  State = "EXTRACT"
	StateValidate State = "VALIDATE"
	StateDecide   State = "DECIDE"
	StateOptimize State = "OPTIMIZE"
	StateTerminal State = "TERMINAL"
)

// Defaults for one family run.
const (
	DefaultMaxAttempts  = 5
	DefaultTargetScore  = 98.0
	DefaultWorkers      = 4
	FailureSampleSize   = 5  // mismatches persisted with a failed tactic
	MismatchPromptLimit = 15 // mismatches shown to the optimizer
	RecentFailureLimit  = 5  // failed tactics shown to the optimizer

	// MinRedactLength is the shortest ground-truth value scrubbed from a generated tactic.
	MinRedactLength = 4
	// MinSeedMaskLength is the shortest ground-truth value masked in seed instructions.
	MinSeedMaskLength = 3

	DefaultPercentageThreshold = 0.4
)

// DefaultExpectedStatus is stamped on ground-truth values that carry none.
const DefaultExpectedStatus = "approved"
