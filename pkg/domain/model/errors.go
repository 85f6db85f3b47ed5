package model

import (
	"errors"
	"fmt"
)

// Sentinel errors of the download-and-extract pipeline. Use errors.Is() to
// check for a specific class; goerr values attached by the wrapper carry the
// offending URL, file name or member.
var (
	// ErrInvalidRequest indicates the command-line input could not form a DownloadRequest
	ErrInvalidRequest = errors.New("invalid download request")

	// ErrDownload indicates a network or transport failure while fetching the archive
	ErrDownload = errors.New("download failed")

	// ErrUnsupportedFormat indicates the file name suffix is not .zip, .tar.gz or .tar
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrPathTraversal indicates a member would be written outside the destination directory
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrFileTooLarge indicates a member exceeds the configured decompression limit
	ErrFileTooLarge = errors.New("archive member exceeds size limit")

	// ErrMissingArchive indicates the staged archive was gone at cleanup time.
	// It is logged and never aborts a run.
	ErrMissingArchive = errors.New("staged archive not found at cleanup")
)

// PathTraversalError identifies the archive member that failed the
// containment check.
type PathTraversalError struct {
	Member      string // Member name as stored in the archive
	Target      string // Resolved path the member would be written to or point at
	Destination string // Resolved destination directory
	Reason      string
}

func (e *PathTraversalError) Error() string {
	msg := fmt.Sprintf("%s: member %q resolves to %q outside %q", ErrPathTraversal.Error(), e.Member, e.Target, e.Destination)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Is makes errors.Is(err, ErrPathTraversal) true
func (e *PathTraversalError) Is(target error) bool {
	return target == ErrPathTraversal
}

// Stage names the pipeline step an error originated from
type Stage string

const (
	StageValidate Stage = "validate"
	StageFetch    Stage = "fetch"
	StageClassify Stage = "classify"
	StageExtract  Stage = "extract"
	StageFinalize Stage = "finalize"
)

// StageError records which pipeline stage a failure came from so that
// operators can tell a network problem from a malicious archive
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage recorded in err, if any
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
