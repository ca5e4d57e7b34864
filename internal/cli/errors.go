package cli

import "errors"

var (
	ErrNotInitialized     = errors.New("warehouse not initialized (run 'warehouse init')")
	ErrAlreadyInitialized = errors.New("warehouse already initialized (use --force to overwrite)")
	ErrFlagRequired       = errors.New("flag is required")
	ErrFlagConflict       = errors.New("flags are mutually exclusive")
	ErrArgsMissing        = errors.New("missing arguments")
	ErrArgsExtra          = errors.New("unexpected arguments")
	ErrNestedShell        = errors.New("already in a shell")
)
