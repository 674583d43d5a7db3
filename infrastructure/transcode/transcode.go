// Package transcode wraps the external ffmpeg tool to convert media to
// delivery formats, probe metadata and extract thumbnails.
package transcode

import "fmt"

// Error is a codec process or library failure. Stderr carries the captured
// diagnostic output of the external tool.
type Error struct {
	Op     string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("transcode %s failed: %v: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("transcode %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result describes a produced artifact.
type Result struct {
	OutputPath string
	OutputName string
}

// Metadata is the probed description of a media source.
type Metadata struct {
	Duration float64
	Width    int
	Height   int
	Rotation int
}
