package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/scenarioops/suitescope/pkg/config"
)

// s3Writer writes snapshots to S3-compatible storage.
type s3Writer struct {
	log    logrus.FieldLogger
	cfg    *config.S3ExportConfig
	client *s3.Client
}

// Compile-time interface check.
var _ Writer = (*s3Writer)(nil)

// NewS3Writer creates a writer for the configured bucket. Custom
// endpoints and path-style addressing support S3-compatible stores.
func NewS3Writer(
	log logrus.FieldLogger,
	cfg *config.S3ExportConfig,
) (Writer, error) {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.Region != "" {
				o.Region = cfg.Region
			} else {
				o.Region = "us-east-1"
			}

			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}

			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}

			if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
		},
	}

	return &s3Writer{
		log:    log.WithField("component", "s3-export"),
		cfg:    cfg,
		client: s3.New(s3.Options{}, opts...),
	}, nil
}

// Write marshals the snapshot and puts it under the configured prefix.
func (w *s3Writer) Write(
	ctx context.Context, snapshot *Snapshot,
) (string, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot: %w", err)
	}

	key := snapshotName(snapshot)
	if w.cfg.Prefix != "" {
		key = strings.TrimSuffix(w.cfg.Prefix, "/") + "/" + key
	}

	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("writing snapshot to s3://%s/%s: %w",
			w.cfg.Bucket, key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", w.cfg.Bucket, key)

	w.log.WithField("location", location).Info("Snapshot written")

	return location, nil
}
