package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/diewo77/go-facturas/internal/config"
)

// NewSession builds an AWS session for cfg. Static keys are used when set,
// otherwise the SDK's default credential chain applies.
func NewSession(cfg config.StorageConfig) (*session.Session, error) {
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.PathStyle),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return sess, nil
}

// S3Presigner signs GET URLs for stored objects.
type S3Presigner struct {
	client *s3.S3
}

func NewS3Presigner(sess *session.Session) *S3Presigner {
	return &S3Presigner{client: s3.New(sess)}
}

func (p *S3Presigner) Presign(ctx context.Context, loc Locator, ttl time.Duration) (string, error) {
	req, _ := p.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	req.SetContext(ctx)
	return req.Presign(ttl)
}
