package objectclient

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/markdave123-py/contexta-sources/internal/config"
	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

var _ core.ObjectClient = (*S3Client)(nil)

// S3API is the subset of *s3.Client used here.
type S3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Client struct {
	api        S3API
	downloader *manager.Downloader
	region     string
}

func NewS3Client(ctx context.Context, c *cfg.Config) (*S3Client, error) {
	if c.AwsRegion == "" {
		return nil, fmt.Errorf("AWS_REGION not set")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(c.AwsRegion)}
	if c.AwsAccessKey != "" && c.AwsSecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AwsAccessKey, c.AwsSecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.AwsEndpoint != "" {
			o.BaseEndpoint = aws.String(c.AwsEndpoint)
			o.UsePathStyle = true
		}
	})
	logger.FromContext(ctx).Info("s3 client ready", "region", c.AwsRegion)

	return &S3Client{
		api:        client,
		downloader: manager.NewDownloader(client),
		region:     c.AwsRegion,
	}, nil
}

// NewS3ClientFromAPI wraps an existing API implementation. DownloadFile falls back
// to GetFile when api is not a *s3.Client.
func NewS3ClientFromAPI(api S3API, region string) *S3Client {
	c := &S3Client{api: api, region: region}
	if client, ok := api.(*s3.Client); ok {
		c.downloader = manager.NewDownloader(client)
	}
	return c
}

// ListObjects returns one page of keys under prefix. An empty token starts the listing.
func (c *S3Client) ListObjects(ctx context.Context, bucket, prefix, token string, maxKeys int32) (*models.ObjectPage, error) {
	ctxList, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	in := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}
	if token != "" {
		in.ContinuationToken = aws.String(token)
	}
	if maxKeys > 0 {
		in.MaxKeys = aws.Int32(maxKeys)
	}

	out, err := c.api.ListObjectsV2(ctxList, in)
	if err != nil {
		return nil, fmt.Errorf("s3 list failed: %w", err)
	}

	page := &models.ObjectPage{Keys: make([]string, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if key == "" || key[len(key)-1] == '/' {
			continue
		}
		page.Keys = append(page.Keys, key)
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextToken = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

func (c *S3Client) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.api.GetObject(ctxGet, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// DownloadFile fetches one object with the concurrent range downloader.
func (c *S3Client) DownloadFile(ctx context.Context, bucket, key string) ([]byte, error) {
	if c.downloader == nil {
		return c.GetFile(ctx, bucket, key)
	}

	ctxGet, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	buf := manager.NewWriteAtBuffer(nil)
	if _, err := c.downloader.Download(ctxGet, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, fmt.Errorf("s3 download failed: %w", err)
	}
	return buf.Bytes(), nil
}
