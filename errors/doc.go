// Package errors provides standardized error handling patterns for nodegate.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, e.g. a module that is down), Invalid (bad input or
// configuration) and Fatal (unrecoverable, stop the process).
//
// Classification lets outer layers (config loading, registry construction,
// the HTTP listener, the NATS client) decide how to react without matching
// on error strings. The dispatcher has its own result taxonomy for relayed
// requests and uses IsTimeout and IsConnectionRefused from this package to
// tell transport failures apart.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// The generic Wrap() function preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")
//
// # Standard Error Variables
//
//   - Lifecycle: ErrAlreadyStarted, ErrNotStarted
//   - Relay: ErrModuleNotFound, ErrDuplicateModule, ErrNoConnection,
//     ErrConnectionTimeout, ErrRemoteStatus, ErrInvalidResponse
//   - Data: ErrInvalidData, ErrParsingFailed
//   - Configuration: ErrInvalidConfig, ErrMissingConfig, ErrConfigNotFound
//   - Access: ErrUnauthorized, ErrRateLimited
//
// # Integration with errors.As/Is
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    logger.Warn("classified failure", "component", ce.Component, "class", ce.Class)
//	}
//
// Context errors (context.DeadlineExceeded, context.Canceled) are classified
// as Transient.
package errors
