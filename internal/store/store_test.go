package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSaver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	saver := &FileSaver{Dir: dir}

	path, err := saver.Save(context.Background(), SaveParams{Name: DefaultName, Data: []byte("png-bytes")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "qrcode.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestFileSaverStaysInDir(t *testing.T) {
	dir := t.TempDir()
	path, err := (&FileSaver{Dir: dir}).Save(context.Background(), SaveParams{Name: "../escape.png"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.png"), path)
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

type fakeCloudFront struct {
	input *cloudfront.CreateInvalidationInput
	err   error
}

func (f *fakeCloudFront) CreateInvalidation(_ context.Context, in *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
	f.input = in
	return &cloudfront.CreateInvalidationOutput{}, f.err
}

func TestS3Saver(t *testing.T) {
	client := &fakeS3{}
	cf := &fakeCloudFront{}
	saver := &S3Saver{
		Client:      client,
		Bucket:      "codes",
		Invalidator: &CloudFrontInvalidator{Client: cf, Distribution: "E123"},
	}

	loc, err := saver.Save(context.Background(), SaveParams{
		Name:        DefaultName,
		Data:        []byte("png-bytes"),
		ContentType: "image/png",
		Metadata:    map[string]string{"text": "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s3://codes/qrcode.png", loc)

	require.NotNil(t, client.input)
	assert.Equal(t, "codes", aws.ToString(client.input.Bucket))
	assert.Equal(t, "qrcode.png", aws.ToString(client.input.Key))
	assert.Equal(t, "image/png", aws.ToString(client.input.ContentType))
	assert.Equal(t, map[string]string{"text": "hello"}, client.input.Metadata)
	assert.Equal(t, []byte("png-bytes"), client.body)

	require.NotNil(t, cf.input)
	assert.Equal(t, "E123", aws.ToString(cf.input.DistributionId))
	assert.Equal(t, []string{"/qrcode.png"}, cf.input.InvalidationBatch.Paths.Items)
	assert.EqualValues(t, 1, aws.ToInt32(cf.input.InvalidationBatch.Paths.Quantity))
}

func TestS3SaverErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := (&S3Saver{Client: &fakeS3{err: boom}, Bucket: "codes"}).Save(context.Background(), SaveParams{Name: DefaultName})
	assert.ErrorIs(t, err, boom)

	cf := &fakeCloudFront{err: boom}
	saver := &S3Saver{Client: &fakeS3{}, Bucket: "codes", Invalidator: &CloudFrontInvalidator{Client: cf}}
	_, err = saver.Save(context.Background(), SaveParams{Name: DefaultName})
	assert.ErrorIs(t, err, boom)
}
