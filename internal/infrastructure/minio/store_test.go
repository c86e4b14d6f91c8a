package minioinfra

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct{ mock.Mock }

func (m *mockClient) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}
func (m *mockClient) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}
func (m *mockClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return minio.UploadInfo{Key: objectName}, args.Error(0)
}
func (m *mockClient) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expires, reqParams)
	if u, _ := args.Get(0).(*url.URL); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockClient) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}

func TestUpload_PassesContentType(t *testing.T) {
	mc := &mockClient{}
	body := bytes.NewReader([]byte("hello"))
	mc.On("PutObject", mock.Anything, "capsule-media", "u1/c1/a.txt", body, int64(5),
		minio.PutObjectOptions{ContentType: "text/plain"}).Return(nil)

	s := &Store{client: mc, bucket: "capsule-media"}
	require.NoError(t, s.Upload(context.Background(), "u1/c1/a.txt", body, 5, "text/plain"))
	mc.AssertExpectations(t)
}

func TestPresignedURL(t *testing.T) {
	mc := &mockClient{}
	signed, _ := url.Parse("http://minio:9000/capsule-media/u1/c1/a.png?X-Amz-Signature=abc")
	mc.On("PresignedGetObject", mock.Anything, "capsule-media", "u1/c1/a.png", time.Hour, url.Values(nil)).Return(signed, nil)

	s := &Store{client: mc, bucket: "capsule-media"}
	got, err := s.PresignedURL(context.Background(), "u1/c1/a.png", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, signed.String(), got)
}

func TestDelete_WrapsError(t *testing.T) {
	mc := &mockClient{}
	mc.On("RemoveObject", mock.Anything, "capsule-media", "k", minio.RemoveObjectOptions{}).Return(errors.New("boom"))

	s := &Store{client: mc, bucket: "capsule-media"}
	err := s.Delete(context.Background(), "k")
	assert.ErrorContains(t, err, "minio remove object")
}

func TestEnsureBucket_CreatesWhenMissing(t *testing.T) {
	mc := &mockClient{}
	mc.On("BucketExists", mock.Anything, "capsule-media").Return(false, nil)
	mc.On("MakeBucket", mock.Anything, "capsule-media", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

	s := &Store{client: mc, bucket: "capsule-media", region: "us-east-1"}
	require.NoError(t, s.EnsureBucket(context.Background()))
	mc.AssertExpectations(t)
}

func TestEnsureBucket_Exists(t *testing.T) {
	mc := &mockClient{}
	mc.On("BucketExists", mock.Anything, "capsule-media").Return(true, nil)

	s := &Store{client: mc, bucket: "capsule-media"}
	require.NoError(t, s.EnsureBucket(context.Background()))
	mc.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}
