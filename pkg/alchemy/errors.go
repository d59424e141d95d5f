package alchemy

import (
	"errors"
	"fmt"
)

// ErrConfig is wrapped by every configuration problem; nothing has
// been decoded when one is returned.
var ErrConfig = errors.New("bad configuration")

type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s='%s': %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// A FileError is a failure that stopped one file's conversion. The
// rest of a batch carries on.
type FileError struct {
	File  string
	Stage Stage // The last stage the file reached
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("[%s] after %s: %v", e.File, e.Stage, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
