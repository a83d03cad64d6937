package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekognitiontypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// AWSDetector calls Rekognition with byte payloads
type AWSDetector struct {
	client *rekognition.Client
}

// NewAWSDetector creates a detector using ambient AWS credentials
func NewAWSDetector(ctx context.Context, region string) (*AWSDetector, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{}
	if r := strings.TrimSpace(region); r != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(r))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &AWSDetector{client: rekognition.NewFromConfig(cfg)}, nil
}

func (d *AWSDetector) DetectModerationLabels(ctx context.Context, imageBytes []byte) ([]Label, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image bytes are required")
	}

	output, err := d.client.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image: &rekognitiontypes.Image{Bytes: imageBytes},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect moderation labels failed: %w", err)
	}

	labels := make([]Label, 0, len(output.ModerationLabels))
	for _, label := range output.ModerationLabels {
		var confidence float64
		if label.Confidence != nil {
			confidence = float64(*label.Confidence)
		}
		labels = append(labels, Label{
			Name:       aws.ToString(label.Name),
			ParentName: aws.ToString(label.ParentName),
			Confidence: confidence,
		})
	}
	return labels, nil
}
