package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/WSG23/optimal-build-sub005/internal/exporter"
	"github.com/WSG23/optimal-build-sub005/internal/util"
	"github.com/WSG23/optimal-build-sub005/pkg/export"
	"github.com/WSG23/optimal-build-sub005/pkg/logger"
)

func NewS3Client(ctx context.Context) *s3.Client {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		logger.Fatal("[Storage] Failed to load S3 config", "err", err)
		return nil
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
}

var contentTypes = map[export.Format]string{
	export.FormatDXF: "image/vnd.dxf",
	export.FormatDWG: "image/vnd.dwg",
	export.FormatIFC: "application/x-step",
	export.FormatPDF: "application/pdf",
}

// S3ArtifactStorage implements exporter.ArtifactStorage on an S3 bucket.
// Each artifact is stored as a payload object plus a `.manifest.json`
// sidecar under exports/{project}/{format}/.
type S3ArtifactStorage struct {
	client *s3.Client
	bucket string
}

func NewS3ArtifactStorage(client *s3.Client, bucket string) *S3ArtifactStorage {
	return &S3ArtifactStorage{client: client, bucket: bucket}
}

func (s *S3ArtifactStorage) Store(
	ctx context.Context,
	projectID int64,
	format export.Format,
	payload []byte,
	manifest *export.Manifest,
	filename string,
) (exporter.Artifact, error) {
	key := fmt.Sprintf("exports/%d/%s/%s", projectID, format, filename)

	contentType, ok := contentTypes[format]
	if !ok {
		contentType = "application/octet-stream"
	}
	if manifest.Renderer == export.RendererFallback {
		contentType = "application/json"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload export payload: %w", err)
	}

	manifestData, err := manifest.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest sidecar: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key + ".manifest.json"),
		Body:        bytes.NewReader(manifestData),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload export manifest: %w", err)
	}

	return &s3Artifact{client: s.client, bucket: s.bucket, key: key, filename: filename}, nil
}

type s3Artifact struct {
	client   *s3.Client
	bucket   string
	key      string
	filename string
}

func (a *s3Artifact) Key() string {
	return a.key
}

func (a *s3Artifact) Filename() string {
	return a.filename
}

func (a *s3Artifact) Open(ctx context.Context) (io.ReadCloser, error) {
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact %s: %w", a.key, err)
	}
	return result.Body, nil
}

// GenerateDownloadLink presigns a GET for an artifact key, valid for 15
// minutes.
func GenerateDownloadLink(ctx context.Context, client *s3.Client, bucket, key string) (string, error) {
	presigner := s3.NewPresignClient(client)
	out, err := presigner.PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(15*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate download link: %w", err)
	}
	return out.URL, nil
}
