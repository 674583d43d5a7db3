package moderation

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRekognition struct {
	rekognitioniface.RekognitionAPI

	labels        []*rekognition.ModerationLabel
	minConfidence float64
}

func (f *fakeRekognition) DetectModerationLabelsWithContext(ctx aws.Context, in *rekognition.DetectModerationLabelsInput, opts ...request.Option) (*rekognition.DetectModerationLabelsOutput, error) {
	f.minConfidence = aws.Float64Value(in.MinConfidence)
	return &rekognition.DetectModerationLabelsOutput{ModerationLabels: f.labels}, nil
}

func label(name, parent string, score float64) *rekognition.ModerationLabel {
	return &rekognition.ModerationLabel{
		Name:       aws.String(name),
		ParentName: aws.String(parent),
		Confidence: aws.Float64(score),
	}
}

func TestScanExplicitVerdict(t *testing.T) {
	fake := &fakeRekognition{labels: []*rekognition.ModerationLabel{
		label("Exposed Genitalia", "Explicit", 97.2),
		label("Explicit", "", 98.1),
	}}

	result, err := NewProbeWithClient(fake, 0).Scan(context.Background(), []byte("img"))
	require.NoError(t, err)

	assert.True(t, result.Explicit)
	require.Len(t, result.Labels, 2)
	assert.Equal(t, "Explicit", result.Labels[0].Name)
	assert.Equal(t, 1, result.Labels[0].Level)
	assert.Equal(t, 2, result.Labels[1].Level)
}

func TestScanNonExplicit(t *testing.T) {
	fake := &fakeRekognition{labels: []*rekognition.ModerationLabel{
		label("Revealing Clothes", "Suggestive", 81.0),
		label("Suggestive", "", 85.0),
	}}

	result, err := NewProbeWithClient(fake, 0).Scan(context.Background(), []byte("img"))
	require.NoError(t, err)

	assert.False(t, result.Explicit)
	assert.Equal(t, "Suggestive", result.Labels[0].Name)
}

func TestScanNoLabels(t *testing.T) {
	fake := &fakeRekognition{}

	result, err := NewProbeWithClient(fake, 0).Scan(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.False(t, result.Explicit)
	assert.Empty(t, result.Labels)
}

func TestScanUsesDefaultConfidenceThreshold(t *testing.T) {
	fake := &fakeRekognition{}

	_, err := NewProbeWithClient(fake, 0).Scan(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultMinConfidence), fake.minConfidence)
}
