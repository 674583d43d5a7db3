package transcode

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// TargetAudioMime is the single delivery codec for audio sources. Sources
// already in this codec are not re-encoded.
const TargetAudioMime = "audio/mpeg"

// Audio re-encodes sources to MP3.
type Audio struct{}

func NewAudio() *Audio {
	return &Audio{}
}

// NeedsConvert reports whether the source requires re-encoding. The check
// is by mime type, not by probing.
func (a *Audio) NeedsConvert(mimeType string) bool {
	return mimeType != TargetAudioMime && mimeType != "audio/mp3"
}

// Convert re-encodes the source to MP3 next to the source file.
func (a *Audio) Convert(sourcePath string) (*Result, error) {
	outputName := fmt.Sprintf("%d-%s.mp3", time.Now().UnixMilli(), baseName(sourcePath))
	outputPath := filepath.Join(filepath.Dir(sourcePath), outputName)

	var stderr bytes.Buffer
	err := ffmpeg.Input(sourcePath).
		Output(outputPath, ffmpeg.KwArgs{
			"c:a": "libmp3lame",
			"q:a": 2,
			"vn":  "",
		}).
		OverWriteOutput().
		WithErrorOutput(&stderr).
		Run()
	if err != nil {
		_ = os.Remove(outputPath)
		return nil, &Error{Op: "audio convert", Stderr: stderr.String(), Err: err}
	}

	return &Result{OutputPath: outputPath, OutputName: outputName}, nil
}

// Probe returns the duration of the source.
func (a *Audio) Probe(sourcePath string) (*Metadata, error) {
	v := Video{}
	meta, err := v.Probe(sourcePath)
	if err != nil {
		return nil, &Error{Op: "audio probe", Err: err}
	}
	return meta, nil
}
