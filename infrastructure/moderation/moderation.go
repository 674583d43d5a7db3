// Package moderation classifies image bytes for explicit content through
// an external detector.
package moderation

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"
	"github.com/fanserve/media-api/infrastructure/settings"
	"github.com/pkg/errors"
)

// DefaultMinConfidence is the score below which labels are discarded.
const DefaultMinConfidence = 70

// ExplicitLabel is the top-level taxonomy label that makes the verdict.
const ExplicitLabel = "Explicit"

// Label is one classification result.
type Label struct {
	Name       string  `json:"name"`
	ParentName string  `json:"parentName,omitempty"`
	Level      int     `json:"level"`
	Score      float64 `json:"score"`
}

// Result is the structured output of one probe call.
type Result struct {
	// Labels sorted ascending by taxonomy level; index 0 is the top-level
	// verdict label when present.
	Labels   []Label `json:"labels"`
	Explicit bool    `json:"explicit"`
}

// Probe runs explicit-content classification on raw image bytes.
type Probe struct {
	client        rekognitioniface.RekognitionAPI
	minConfidence float64
}

// NewProbe builds a probe against the configured detector. The client is
// created once; the detector endpoint is not runtime-mutable.
func NewProbe(cfg settings.Storage) (*Probe, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(cfg.S3.Region),
		Credentials: credentials.NewStaticCredentials(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create rekognition session")
	}
	return &Probe{
		client:        rekognition.New(sess),
		minConfidence: DefaultMinConfidence,
	}, nil
}

// NewProbeWithClient is used by tests and alternative detectors.
func NewProbeWithClient(client rekognitioniface.RekognitionAPI, minConfidence float64) *Probe {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Probe{client: client, minConfidence: minConfidence}
}

// Scan classifies the image and reports whether its top label is Explicit.
func (p *Probe) Scan(ctx context.Context, imageBytes []byte) (*Result, error) {
	out, err := p.client.DetectModerationLabelsWithContext(ctx, &rekognition.DetectModerationLabelsInput{
		Image:         &rekognition.Image{Bytes: imageBytes},
		MinConfidence: aws.Float64(p.minConfidence),
	})
	if err != nil {
		return nil, errors.Wrap(err, "moderation detection failed")
	}

	labels := make([]Label, 0, len(out.ModerationLabels))
	for _, l := range out.ModerationLabels {
		label := Label{
			Name:       aws.StringValue(l.Name),
			ParentName: aws.StringValue(l.ParentName),
			Score:      aws.Float64Value(l.Confidence),
		}
		// The detector's taxonomy is two levels deep; top-level labels
		// carry no parent.
		label.Level = 1
		if label.ParentName != "" {
			label.Level = 2
		}
		labels = append(labels, label)
	}

	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Level < labels[j].Level
	})

	result := &Result{Labels: labels}
	if len(labels) > 0 && labels[0].Name == ExplicitLabel {
		result.Explicit = true
	}
	return result, nil
}
