package objectclient

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	lastList *s3.ListObjectsV2Input
	listOut  *s3.ListObjectsV2Output
	objects  map[string]string
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.lastList = in
	return f.listOut, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Client_ListObjects(t *testing.T) {
	t.Run("Should pass token and page size and skip folder markers", func(t *testing.T) {
		api := &fakeS3{listOut: &s3.ListObjectsV2Output{
			Contents: []types.Object{
				{Key: aws.String("docs/")},
				{Key: aws.String("docs/a.txt")},
				{Key: aws.String("docs/b.txt")},
			},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("tok-2"),
		}}
		c := NewS3ClientFromAPI(api, "us-east-2")

		page, err := c.ListObjects(context.Background(), "bucket", "docs/", "tok-1", 100)

		require.NoError(t, err)
		assert.Equal(t, []string{"docs/a.txt", "docs/b.txt"}, page.Keys)
		assert.Equal(t, "tok-2", page.NextToken)
		assert.Equal(t, "tok-1", aws.ToString(api.lastList.ContinuationToken))
		assert.Equal(t, int32(100), aws.ToInt32(api.lastList.MaxKeys))
		assert.Equal(t, "docs/", aws.ToString(api.lastList.Prefix))
	})

	t.Run("Should drop the token on the last page", func(t *testing.T) {
		api := &fakeS3{listOut: &s3.ListObjectsV2Output{
			Contents:              []types.Object{{Key: aws.String("z.txt")}},
			IsTruncated:           aws.Bool(false),
			NextContinuationToken: aws.String("stale"),
		}}
		c := NewS3ClientFromAPI(api, "us-east-2")

		page, err := c.ListObjects(context.Background(), "bucket", "", "", 0)

		require.NoError(t, err)
		assert.Empty(t, page.NextToken)
		assert.Nil(t, api.lastList.ContinuationToken)
		assert.Nil(t, api.lastList.MaxKeys)
	})
}

func TestS3Client_GetFile(t *testing.T) {
	api := &fakeS3{objects: map[string]string{"a.txt": "alpha"}}
	c := NewS3ClientFromAPI(api, "us-east-2")

	t.Run("Should read the object body", func(t *testing.T) {
		body, err := c.GetFile(context.Background(), "bucket", "a.txt")

		require.NoError(t, err)
		assert.Equal(t, "alpha", string(body))
	})

	t.Run("Should fall back to GetFile for downloads without a concrete client", func(t *testing.T) {
		body, err := c.DownloadFile(context.Background(), "bucket", "a.txt")

		require.NoError(t, err)
		assert.Equal(t, "alpha", string(body))
	})

	t.Run("Should wrap missing objects", func(t *testing.T) {
		_, err := c.GetFile(context.Background(), "bucket", "missing")
		assert.ErrorContains(t, err, "s3 get failed")
	})
}
