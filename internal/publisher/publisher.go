// Package publisher uploads built sites to object storage and removes them again.
package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/yz4230/sitehost/internal/entity"
)

// maxDeleteBatch is the S3 limit of keys per DeleteObjects call.
const maxDeleteBatch = 1000

// S3API is the subset of the S3 client the publisher uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

var _ S3API = (*s3.Client)(nil)

type Config struct {
	Bucket    string
	Region    string
	CDNDomain string
}

type Publisher interface {
	// Publish uploads every file below localDir to {keyPrefix}/{relative path}
	// and returns the number of uploaded objects. It stops at the first
	// failed upload, which may leave the prefix partially written.
	Publish(ctx context.Context, localDir, keyPrefix string) (int, error)
	// DeletePrefix removes every object below keyPrefix and returns the number of deleted objects.
	DeletePrefix(ctx context.Context, keyPrefix string) (int, error)
	// PrefixExists reports whether any object is stored below keyPrefix.
	PrefixExists(ctx context.Context, keyPrefix string) (bool, error)
	GenerateDeploymentURL(subdomain string) string
}

type publisherImpl struct {
	client S3API
	fs     billy.Filesystem
	config Config
	log    zerolog.Logger
}

// Publish implements Publisher.
func (p *publisherImpl) Publish(ctx context.Context, localDir, keyPrefix string) (int, error) {
	uploaded := 0
	err := p.walk(localDir, "", func(file, rel string) error {
		key := path.Join(keyPrefix, rel)
		if err := p.upload(ctx, file, key); err != nil {
			return fmt.Errorf("upload %s: %w: %w", key, entity.ErrPublishFailed, err)
		}
		uploaded++
		return nil
	})
	if err != nil {
		p.log.Error().Err(err).Str("prefix", keyPrefix).Int("uploaded", uploaded).Msg("publish aborted")
		return uploaded, err
	}
	p.log.Info().Str("bucket", p.config.Bucket).Str("prefix", keyPrefix).Int("objects", uploaded).Msg("published artifacts")
	return uploaded, nil
}

func (p *publisherImpl) walk(dir, rel string, fn func(file, rel string) error) error {
	entries, err := p.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w: %w", dir, entity.ErrPublishFailed, err)
	}
	for _, entry := range entries {
		file := filepath.Join(dir, entry.Name())
		entryRel := path.Join(rel, entry.Name())
		if entry.IsDir() {
			if err := p.walk(file, entryRel, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(file, entryRel); err != nil {
			return err
		}
	}
	return nil
}

func (p *publisherImpl) upload(ctx context.Context, file, key string) error {
	f, err := p.fs.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.config.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(ContentType(file, body)),
	})
	if err != nil {
		return err
	}
	p.log.Debug().Str("key", key).Msg("uploaded object")
	return nil
}

// DeletePrefix implements Publisher.
func (p *publisherImpl) DeletePrefix(ctx context.Context, keyPrefix string) (int, error) {
	keys, err := p.listKeys(ctx, dirPrefix(keyPrefix))
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", keyPrefix, err)
	}

	deleted := 0
	for _, batch := range lo.Chunk(keys, maxDeleteBatch) {
		out, err := p.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(p.config.Bucket),
			Delete: &types.Delete{
				Objects: lo.Map(batch, func(key string, _ int) types.ObjectIdentifier {
					return types.ObjectIdentifier{Key: aws.String(key)}
				}),
				Quiet: aws.Bool(true),
			},
		})
		if err != nil {
			return deleted, fmt.Errorf("delete objects: %w", err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return deleted, fmt.Errorf("delete %s: %s (%d objects not deleted)",
				aws.ToString(first.Key), aws.ToString(first.Message), len(out.Errors))
		}
		deleted += len(batch)
	}

	p.log.Info().Str("bucket", p.config.Bucket).Str("prefix", keyPrefix).Int("objects", deleted).Msg("deleted artifacts")
	return deleted, nil
}

func (p *publisherImpl) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.config.Bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// PrefixExists implements Publisher.
func (p *publisherImpl) PrefixExists(ctx context.Context, keyPrefix string) (bool, error) {
	out, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.config.Bucket),
		Prefix:  aws.String(dirPrefix(keyPrefix)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("list %s: %w", keyPrefix, err)
	}
	return len(out.Contents) > 0, nil
}

// GenerateDeploymentURL implements Publisher.
func (p *publisherImpl) GenerateDeploymentURL(subdomain string) string {
	return DeploymentURL(p.config, subdomain)
}

// DeploymentURL returns the public URL of a published site: the CDN domain
// when one is configured, the bucket's index document otherwise.
func DeploymentURL(config Config, subdomain string) string {
	if cdn := strings.TrimSuffix(stripScheme(config.CDNDomain), "/"); cdn != "" {
		return fmt.Sprintf("https://%s/%s", cdn, subdomain)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s/index.html", config.Bucket, config.Region, subdomain)
}

func stripScheme(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "https://")
	return strings.TrimPrefix(s, "http://")
}

// dirPrefix makes sure a listing of "site" does not match "site-2/...".
func dirPrefix(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/"
}

func NewPublisher(client S3API, fs billy.Filesystem, config Config, log zerolog.Logger) Publisher {
	return &publisherImpl{client: client, fs: fs, config: config, log: log}
}
