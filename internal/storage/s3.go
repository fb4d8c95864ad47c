package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssession "github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const defaultURLTTL = 15 * time.Minute

// s3Resolver emite URLs presignadas de lectura con TTL corto.
type s3Resolver struct {
	svc    *s3.S3
	bucket string
	ttl    time.Duration
}

func newS3(cfg Config) (Resolver, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.S3.Region)
	if cfg.S3.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.S3.Endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := awssession.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: aws session: %w", err)
	}

	ttl := cfg.S3.URLTTL
	if ttl <= 0 {
		ttl = defaultURLTTL
	}
	return &s3Resolver{svc: s3.New(sess), bucket: cfg.S3.Bucket, ttl: ttl}, nil
}

func (r *s3Resolver) ResolveURL(_ context.Context, path string) (string, error) {
	req, _ := r.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(path),
	})
	url, err := req.Presign(r.ttl)
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", path, err)
	}
	return url, nil
}
