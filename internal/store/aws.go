package store

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmorgan81/qrgen/internal/config"
	"github.com/dmorgan81/qrgen/internal/log"
	"github.com/samber/do"
)

type PutObjectAPI interface {
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type CreateInvalidationAPI interface {
	CreateInvalidation(context.Context, *cloudfront.CreateInvalidationInput, ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

type S3Saver struct {
	Client PutObjectAPI
	Bucket string
	// Invalidator is optional; when set the saved key is refreshed at the edge.
	Invalidator Invalidator
}

func NewS3Saver(i *do.Injector) (Saver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	saver := &S3Saver{
		Client: do.MustInvoke[*s3.Client](i),
		Bucket: cfg.S3Bucket,
	}
	if cfg.CloudFrontDistribution != "" {
		saver.Invalidator = do.MustInvoke[Invalidator](i)
	}
	return saver, nil
}

func (u *S3Saver) Save(ctx context.Context, params SaveParams) (string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("s3").With(
		"name", params.Name,
		"content-type", params.ContentType,
		"bucket", u.Bucket,
	)
	log.Info("uploading to s3")

	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.Bucket),
		Key:          aws.String(params.Name),
		ContentType:  aws.String(params.ContentType),
		Body:         bytes.NewReader(params.Data),
		Metadata:     params.Metadata,
		StorageClass: s3types.StorageClassIntelligentTiering,
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", u.Bucket, params.Name, err)
	}

	if u.Invalidator != nil {
		if err := u.Invalidator.Invalidate(ctx, []string{"/" + params.Name}); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("s3://%s/%s", u.Bucket, params.Name), nil
}

type CloudFrontInvalidator struct {
	Client       CreateInvalidationAPI
	Distribution string
}

func NewCloudFrontInvalidator(i *do.Injector) (Invalidator, error) {
	return &CloudFrontInvalidator{
		Client:       do.MustInvoke[*cloudfront.Client](i),
		Distribution: do.MustInvoke[*config.Config](i).CloudFrontDistribution,
	}, nil
}

func (i *CloudFrontInvalidator) Invalidate(ctx context.Context, paths []string) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("cloudfront").With("paths", paths, "distribution", i.Distribution)
	log.Info("invalidating paths in cloudfront")

	_, err := i.Client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(i.Distribution),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(time.Now().UTC().Format("20060102150405.000000000")),
			Paths: &cftypes.Paths{
				Quantity: aws.Int32(int32(len(paths))),
				Items:    paths,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("invalidate %v: %w", paths, err)
	}
	return nil
}
