// Package service contains the service layer for the Marketplace API
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/tigerpop/marketplaceapi/internal/config"
)

const presignExpiry = 15 * time.Minute

// UploadTarget is one presigned image upload: the client PUTs the image
// bytes to PutURL and stores GetURL on the listing.
type UploadTarget struct {
	Key    string `json:"key"`
	PutURL string `json:"put_url"`
	GetURL string `json:"get_url"`
}

// UploadService hands out presigned object-storage URLs for listing images
type UploadService struct {
	cfg *config.Config
}

// NewUploadService creates a new service for image uploads
func NewUploadService(cfg *config.Config) *UploadService {
	return &UploadService{cfg: cfg}
}

func storageKey() string {
	d := time.Now()
	return fmt.Sprintf("listings/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *UploadService) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.S3AccessKey,
			s.cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.cfg.S3BaseEndpoint)
	})

	return s3.NewPresignClient(client), nil
}

// PresignUploads returns count presigned PUT/GET URL pairs
func (s *UploadService) PresignUploads(ctx context.Context, count int) ([]UploadTarget, error) {
	presignClient, err := s.presignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create presign client: %w", err)
	}

	bucket := s.cfg.S3Bucket
	targets := make([]UploadTarget, 0, count)
	for i := 0; i < count; i++ {
		key := storageKey()

		putReq, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(presignExpiry))
		if err != nil {
			return nil, fmt.Errorf("failed to presign put: %w", err)
		}

		getReq, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(presignExpiry))
		if err != nil {
			return nil, fmt.Errorf("failed to presign get: %w", err)
		}

		targets = append(targets, UploadTarget{
			Key:    key,
			PutURL: putReq.URL,
			GetURL: getReq.URL,
		})
	}
	return targets, nil
}
