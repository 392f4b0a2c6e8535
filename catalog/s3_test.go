package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// stubS3 serves objects from an in-memory map.
type stubS3 struct {
	objects map[string][]byte
	lastKey string
}

func (s *stubS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	s.lastKey = *params.Key
	data, ok := s.objects[*params.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Store_LoadImage(t *testing.T) {
	stub := &stubS3{objects: map[string][]byte{
		"images/pla001.bin": bytes.Repeat([]byte{0xAB}, 1024),
	}}
	store := &S3Store{client: stub, bucket: "filatag", prefix: "images"}

	data, err := store.LoadImage(context.Background(), "pla001.bin")
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if len(data) != 1024 {
		t.Errorf("len(data) = %d, want 1024", len(data))
	}
	if stub.lastKey != "images/pla001.bin" {
		t.Errorf("requested key = %q, want images/pla001.bin", stub.lastKey)
	}
}

func TestS3Store_LoadImage_NoPrefix(t *testing.T) {
	stub := &stubS3{objects: map[string][]byte{"abs002.bin": {1, 2, 3}}}
	store := &S3Store{client: stub, bucket: "filatag"}

	if _, err := store.LoadImage(context.Background(), "abs002.bin"); err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if stub.lastKey != "abs002.bin" {
		t.Errorf("requested key = %q, want abs002.bin", stub.lastKey)
	}
}

func TestS3Store_LoadImage_Missing(t *testing.T) {
	store := &S3Store{client: &stubS3{objects: map[string][]byte{}}, bucket: "filatag"}

	_, err := store.LoadImage(context.Background(), "missing.bin")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadImage(missing) = %v, want ErrNotFound", err)
	}
}
