package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisk_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(dir)
	require.NoError(t, err)

	ref, err := d.Save(context.Background(), ".PNG", "image/png", strings.NewReader("png-bytes"), 9)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, PublicPrefix))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(ref, PublicPrefix)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, d.Delete(context.Background(), ref))
	_, err = os.Stat(filepath.Join(dir, strings.TrimPrefix(ref, PublicPrefix)))
	assert.True(t, os.IsNotExist(err))

	// already gone, foreign URLs and traversal attempts are no-ops
	assert.NoError(t, d.Delete(context.Background(), ref))
	assert.NoError(t, d.Delete(context.Background(), "https://lh3.googleusercontent.com/a/pic"))
	assert.NoError(t, d.Delete(context.Background(), "/uploads/../config.toml"))
	assert.NoError(t, d.Delete(context.Background(), ""))
}

type fakeObjects struct {
	put     map[string][]byte
	deleted []string
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, _ := io.ReadAll(in.Body)
	f.put[*in.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_SaveAndDelete(t *testing.T) {
	api := &fakeObjects{put: map[string][]byte{}}
	s := newS3(api, S3Config{Bucket: "pics", Endpoint: "http://minio:9000"})

	ref, err := s.Save(context.Background(), "jpg", "image/jpeg", bytes.NewReader([]byte("jpeg")), 4)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, "http://minio:9000/pics/profile/"))
	key := strings.TrimPrefix(ref, "http://minio:9000/pics/")
	assert.Equal(t, []byte("jpeg"), api.put[key])

	require.NoError(t, s.Delete(context.Background(), ref))
	require.NoError(t, s.Delete(context.Background(), "/uploads/other.png"))
	assert.Equal(t, []string{key}, api.deleted)
}

func TestS3_DefaultPublicURL(t *testing.T) {
	s := newS3(&fakeObjects{}, S3Config{Bucket: "pics", Region: "eu-west-1"})
	assert.Equal(t, "https://pics.s3.eu-west-1.amazonaws.com/", s.publicURL)
}
