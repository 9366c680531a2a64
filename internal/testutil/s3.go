// Package testutil provides in-memory doubles of external services for tests.
package testutil

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/samber/lo"
)

type Object struct {
	Body        []byte
	ContentType string
}

// MemoryS3 is an in-memory bucket implementing the calls the publisher makes.
type MemoryS3 struct {
	mu      sync.Mutex
	Objects map[string]Object

	// PutObjectFunc, when set, is consulted before storing an object; a
	// non-nil error fails the upload.
	PutObjectFunc func(key string) error
	// DeleteObjectsFunc, when set, can fail a DeleteObjects call.
	DeleteObjectsFunc func(keys []string) error
	// PageSize limits the keys returned per ListObjectsV2 call (default 1000).
	PageSize int

	Puts    int
	Deletes int
}

func NewMemoryS3() *MemoryS3 {
	return &MemoryS3{Objects: map[string]Object{}}
}

func (m *MemoryS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(params.Key)
	if m.PutObjectFunc != nil {
		if err := m.PutObjectFunc(key); err != nil {
			return nil, err
		}
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = Object{Body: body, ContentType: aws.ToString(params.ContentType)}
	m.Puts++
	return &s3.PutObjectOutput{}, nil
}

func (m *MemoryS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := aws.ToString(params.Prefix)
	keys := lo.Filter(lo.Keys(m.Objects), func(k string, _ int) bool { return strings.HasPrefix(k, prefix) })
	slices.Sort(keys)

	if start := aws.ToString(params.ContinuationToken); start != "" {
		keys = lo.Filter(keys, func(k string, _ int) bool { return k >= start })
	}

	limit := m.PageSize
	if limit <= 0 {
		limit = 1000
	}
	if params.MaxKeys != nil && int(*params.MaxKeys) < limit {
		limit = int(*params.MaxKeys)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if len(keys) > limit {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[limit])
		keys = keys[:limit]
	}
	out.Contents = lo.Map(keys, func(k string, _ int) types.Object { return types.Object{Key: aws.String(k)} })
	out.KeyCount = aws.Int32(int32(len(keys)))
	return out, nil
}

func (m *MemoryS3) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	if m.DeleteObjectsFunc != nil {
		keys := lo.Map(params.Delete.Objects, func(o types.ObjectIdentifier, _ int) string { return aws.ToString(o.Key) })
		if err := m.DeleteObjectsFunc(keys); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := &s3.DeleteObjectsOutput{}
	for _, obj := range params.Delete.Objects {
		key := aws.ToString(obj.Key)
		delete(m.Objects, key)
		out.Deleted = append(out.Deleted, types.DeletedObject{Key: aws.String(key)})
	}
	m.Deletes++
	return out, nil
}

// Keys returns the stored keys in lexical order.
func (m *MemoryS3) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := lo.Keys(m.Objects)
	slices.Sort(keys)
	return keys
}

func (m *MemoryS3) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.Objects[key]
	return obj, ok
}
