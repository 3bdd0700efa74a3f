package exitcodes

// Exit codes for sweeper
// These codes form the operational contract with scripts and operators
const (
	Success        = 0 // All matching files removed (or nothing to remove)
	Declined       = 1 // Operator declined the confirmation prompt
	InvalidConfig  = 2 // Configuration file or pattern invalid
	InvalidRoot    = 3 // Root path missing, not a directory, or protected
	PartialFailure = 4 // One or more matching files could not be deleted
	RuntimeError   = 5 // Runtime error (prompt I/O, database, metrics)
)
