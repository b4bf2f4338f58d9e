// Package omnierr defines the error kinds shared across Omni's components
// (§7). Each kind is a sentinel value; call sites wrap it with fmt.Errorf's
// %w and callers use errors.Is against the sentinel to decide exit codes and
// whether the error is recoverable.
package omnierr

import "errors"

var (
	// ErrConfigInvalid marks malformed configuration input: bad YAML, a
	// value that fails its schema, or an operation missing a required
	// parameter. Fatal at validation time.
	ErrConfigInvalid = errors.New("config-invalid")

	// ErrConfigDenied marks a supply-chain rule rejecting an operation
	// (e.g. a go-install source not on the allow-list). Fatal.
	ErrConfigDenied = errors.New("config-denied")

	// ErrNotInGitRepo marks a command that requires a git work directory
	// run outside of one.
	ErrNotInGitRepo = errors.New("not-in-git-repo")

	// ErrNotTrusted marks a workdir whose identity has not been trusted,
	// in a non-interactive context where a prompt cannot be shown.
	ErrNotTrusted = errors.New("not-trusted")

	// ErrOperationFailed marks a subprocess that exited non-zero during an
	// up or down operation.
	ErrOperationFailed = errors.New("operation-failed")

	// ErrToolUnavailable marks an or/any composite operation whose
	// alternatives were all exhausted without one succeeding.
	ErrToolUnavailable = errors.New("tool-unavailable")

	// ErrVersionUnresolvable marks a version requirement the version
	// manager could not satisfy from any installed or listable version.
	ErrVersionUnresolvable = errors.New("version-unresolvable")

	// ErrCacheLocked marks a cache file lock acquisition that timed out.
	ErrCacheLocked = errors.New("cache-locked")

	// ErrNetworkFailure marks a failed network call. Recoverable wherever
	// a cached alternative exists (version listings), fatal otherwise.
	ErrNetworkFailure = errors.New("network-failure")

	// ErrUserCancelled marks a prompt the user declined or interrupted.
	// Exits 0: this is an intentional outcome, not a failure.
	ErrUserCancelled = errors.New("user-cancelled")
)

// Kind returns the sentinel among the package's error kinds that err wraps,
// or nil if err does not wrap any of them. Used by the CLI's exit-code
// mapping and by status rendering.
func Kind(err error) error {
	for _, kind := range []error{
		ErrConfigInvalid,
		ErrConfigDenied,
		ErrNotInGitRepo,
		ErrNotTrusted,
		ErrOperationFailed,
		ErrToolUnavailable,
		ErrVersionUnresolvable,
		ErrCacheLocked,
		ErrNetworkFailure,
		ErrUserCancelled,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// ExitCode maps an error kind to the process exit code used by cmd/omni.
func ExitCode(err error) int {
	switch Kind(err) {
	case nil:
		if err == nil {
			return 0
		}
		return 1
	case ErrUserCancelled:
		return 0
	default:
		return 1
	}
}
