package transcode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Video converts sources to a fixed delivery profile: H.264 baseline MP4
// with AAC audio and the moov atom up front for streaming.
type Video struct{}

func NewVideo() *Video {
	return &Video{}
}

// Convert re-encodes the source into the delivery profile. The output is
// written next to the source with a generated name.
func (v *Video) Convert(sourcePath string) (*Result, error) {
	outputName := fmt.Sprintf("%d-%s.mp4", time.Now().UnixMilli(), baseName(sourcePath))
	outputPath := filepath.Join(filepath.Dir(sourcePath), outputName)

	var stderr bytes.Buffer
	err := ffmpeg.Input(sourcePath).
		Output(outputPath, ffmpeg.KwArgs{
			"c:v":      "libx264",
			"profile:v": "baseline",
			"level":    "3.0",
			"pix_fmt":  "yuv420p",
			"c:a":      "aac",
			"movflags": "+faststart",
		}).
		OverWriteOutput().
		WithErrorOutput(&stderr).
		Run()
	if err != nil {
		_ = os.Remove(outputPath)
		return nil, &Error{Op: "video convert", Stderr: stderr.String(), Err: err}
	}

	return &Result{OutputPath: outputPath, OutputName: outputName}, nil
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Tags      struct {
		Rotate string `json:"rotate"`
	} `json:"tags"`
	SideDataList []struct {
		Rotation float64 `json:"rotation"`
	} `json:"side_data_list"`
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

// Probe returns duration, dimensions and rotation of the source.
func (v *Video) Probe(sourcePath string) (*Metadata, error) {
	raw, err := ffmpeg.Probe(sourcePath)
	if err != nil {
		return nil, &Error{Op: "video probe", Err: err}
	}

	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &Error{Op: "video probe", Err: err}
	}

	meta := &Metadata{}
	if out.Format.Duration != "" {
		meta.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	}
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		meta.Width = s.Width
		meta.Height = s.Height
		if s.Tags.Rotate != "" {
			r, _ := strconv.Atoi(s.Tags.Rotate)
			meta.Rotation = normalizeRotation(r)
		}
		for _, sd := range s.SideDataList {
			if sd.Rotation != 0 {
				meta.Rotation = normalizeRotation(int(math.Round(sd.Rotation)))
			}
		}
		break
	}
	return meta, nil
}

// ThumbnailOptions controls screenshot extraction.
type ThumbnailOptions struct {
	Count     int
	Width     int
	Height    int
	OutputDir string
}

// CreateThumbnails extracts screenshots at evenly spaced offsets and
// returns the generated filenames.
func (v *Video) CreateThumbnails(sourcePath string, opts ThumbnailOptions) ([]string, error) {
	if opts.Count <= 0 {
		opts.Count = 1
	}

	meta, err := v.Probe(sourcePath)
	if err != nil {
		return nil, err
	}

	w, h := thumbnailSize(meta.Width, meta.Height, meta.Rotation, opts.Width, opts.Height)

	names := make([]string, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		offset := meta.Duration * float64(i+1) / float64(opts.Count+1)
		name := fmt.Sprintf("%d-thumb-%d.jpg", time.Now().UnixMilli(), i)
		outputPath := filepath.Join(opts.OutputDir, name)

		var stderr bytes.Buffer
		err := ffmpeg.Input(sourcePath, ffmpeg.KwArgs{"ss": fmt.Sprintf("%.3f", offset)}).
			Output(outputPath, ffmpeg.KwArgs{
				"vframes": 1,
				"s":       fmt.Sprintf("%dx%d", w, h),
			}).
			OverWriteOutput().
			WithErrorOutput(&stderr).
			Run()
		if err != nil {
			for _, n := range names {
				_ = os.Remove(filepath.Join(opts.OutputDir, n))
			}
			return nil, &Error{Op: "video thumbnail", Stderr: stderr.String(), Err: err}
		}
		names = append(names, name)
	}
	return names, nil
}

// thumbnailSize scales the source dimensions to fit the requested box
// without distortion. Sources rotated a quarter turn present swapped
// dimensions, so width and height trade places first.
func thumbnailSize(srcW, srcH, rotation, maxW, maxH int) (int, int) {
	if rotation == 90 || rotation == 270 {
		srcW, srcH = srcH, srcW
	}
	if srcW <= 0 || srcH <= 0 {
		return maxW, maxH
	}
	if maxW <= 0 {
		maxW = 320
	}
	if maxH <= 0 {
		maxH = 180
	}

	ratio := math.Min(float64(maxW)/float64(srcW), float64(maxH)/float64(srcH))
	if ratio >= 1 {
		return evenDim(srcW), evenDim(srcH)
	}
	return evenDim(int(float64(srcW) * ratio)), evenDim(int(float64(srcH) * ratio))
}

// evenDim rounds down to an even number; yuv420 output needs even sizes.
func evenDim(n int) int {
	if n < 2 {
		return 2
	}
	return n - n%2
}

func normalizeRotation(r int) int {
	r = r % 360
	if r < 0 {
		r += 360
	}
	return r
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
