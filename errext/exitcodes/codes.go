// Package exitcodes contains the process exit codes of the pincers CLI.
package exitcodes

// ExitCode is a process exit code.
type ExitCode uint8

// Exit codes used by pincers. 0 is success and -1 (255) is an unclassified
// failure.
const (
	QueryFailed          ExitCode = 100
	EmptyResult          ExitCode = 101
	WaitTimeout          ExitCode = 102
	InvalidConfig        ExitCode = 104
	BackendUnavailable   ExitCode = 105
	UnsupportedByBackend ExitCode = 106
	GoPanic              ExitCode = 110
)
