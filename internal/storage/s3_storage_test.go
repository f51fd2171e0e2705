package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/batgear/batstore-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(baseURL string) *S3Storage {
	return NewS3Storage(&config.S3Config{
		Region:          "us-east-1",
		Bucket:          "batstore-products",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY",
		BaseURL:         baseURL,
	})
}

func TestS3Storage_PresignProductImage(t *testing.T) {
	s := newTestStorage("")

	upload, err := s.PresignProductImage(context.Background(), "Batarang.PNG", "image/png", 1024)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(upload.Key, "products/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".png"))
	assert.Contains(t, upload.UploadURL, "batstore-products")
	assert.Contains(t, upload.UploadURL, "X-Amz-Signature")
	assert.Equal(t, "https://batstore-products.s3.us-east-1.amazonaws.com/"+upload.Key, upload.FileURL)
}

func TestS3Storage_PresignProductImage_BaseURL(t *testing.T) {
	s := newTestStorage("https://cdn.batstore.test/")

	upload, err := s.PresignProductImage(context.Background(), "cowl.jpg", "image/jpeg", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.batstore.test/"+upload.Key, upload.FileURL)
}

func TestS3Storage_PresignProductImage_Rejects(t *testing.T) {
	s := newTestStorage("")

	_, err := s.PresignProductImage(context.Background(), "plans.pdf", "application/pdf", 10)
	assert.ErrorIs(t, err, ErrContentTypeNotAllowed)

	_, err = s.PresignProductImage(context.Background(), "huge.png", "image/png", MaxImageSize+1)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}
