package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/huddle/client/internal/config"
)

type fakeS3 struct {
	err         error
	key         string
	bucket      string
	contentType string
	body        []byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = aws.ToString(in.Key)
	f.bucket = aws.ToString(in.Bucket)
	f.contentType = aws.ToString(in.ContentType)
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestSaveReturnsPublicURL(t *testing.T) {
	client := &fakeS3{}
	store := newS3Storage(client, config.AvatarConfig{Bucket: "avatars", PublicBaseURL: "https://cdn.example.com/"})

	location, err := store.Save(context.Background(), "/avatars/1/a.jpg", "image/jpeg", bytes.NewReader([]byte("jpeg")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if location != "https://cdn.example.com/avatars/1/a.jpg" {
		t.Fatalf("unexpected location %q", location)
	}
	if client.bucket != "avatars" || client.key != "avatars/1/a.jpg" || client.contentType != "image/jpeg" {
		t.Fatalf("unexpected upload %+v", client)
	}
	if string(client.body) != "jpeg" {
		t.Fatalf("unexpected body %q", client.body)
	}
}

func TestSaveWithoutBaseURLReturnsKey(t *testing.T) {
	store := newS3Storage(&fakeS3{}, config.AvatarConfig{Bucket: "avatars"})
	location, err := store.Save(context.Background(), "avatars/1/a.jpg", "", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if location != "avatars/1/a.jpg" {
		t.Fatalf("unexpected location %q", location)
	}
}

func TestSaveErrors(t *testing.T) {
	store := newS3Storage(&fakeS3{}, config.AvatarConfig{Bucket: "avatars"})
	if _, err := store.Save(context.Background(), "/", "", strings.NewReader("x")); err == nil {
		t.Fatal("expected empty key error")
	}

	failing := newS3Storage(&fakeS3{err: errors.New("denied")}, config.AvatarConfig{Bucket: "avatars"})
	if _, err := failing.Save(context.Background(), "k", "", strings.NewReader("x")); err == nil || !strings.Contains(err.Error(), "denied") {
		t.Fatalf("expected upload error, got %v", err)
	}

	if _, err := NewS3Storage(context.Background(), config.AvatarConfig{}); err == nil {
		t.Fatal("expected missing bucket error")
	}
}
