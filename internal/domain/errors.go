package domain

import "errors"

// Failure taxonomy for upstream fetch and download operations. These are
// matched with errors.Is by callers deciding fallback and retry; wrap them
// with fmt.Errorf("...: %w", err) to attach detail.
var (
	// ErrNotFound means the upstream has no such song id.
	ErrNotFound = errors.New("song not found")

	// ErrAccessDenied means the quality or tier is not available to the
	// current credentials, commonly a VIP restriction.
	ErrAccessDenied = errors.New("access denied")

	// ErrTransient covers timeouts and transport failures that are worth
	// retrying from the caller.
	ErrTransient = errors.New("transient failure")

	// ErrPartialWrite means the audio stream was interrupted mid-write.
	ErrPartialWrite = errors.New("partial write")

	// ErrUnrecognizedShape means an upstream response did not match any
	// known envelope layout.
	ErrUnrecognizedShape = errors.New("unrecognized response shape")
)
