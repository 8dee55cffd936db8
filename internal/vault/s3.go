package vault

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"curator-go/internal/config"
	"curator-go/internal/curator"
)

// S3Vault stores export archives in an S3 bucket under an optional key
// prefix. It works against AWS or any S3-compatible endpoint (MinIO etc.)
// via the s3_endpoint config field.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Vault creates a new S3 vault from configuration.
func NewS3Vault(cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Vault{
		name:     cfg.Name,
		bucket:   cfg.S3Bucket,
		prefix:   strings.TrimSuffix(cfg.S3Prefix, "/"),
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// key maps an archive name to its object key under the configured prefix.
func (v *S3Vault) key(name string) string {
	if v.prefix == "" {
		return name
	}
	return v.prefix + "/" + name
}

// PutArchive uploads an archive, replacing any object with the same key.
// The multipart uploader streams from r without buffering the whole
// archive in memory.
func (v *S3Vault) PutArchive(name string, r io.Reader, size int64) error {
	if err := validateName(name); err != nil {
		return err
	}

	_, err := v.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(name)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("uploading archive to s3: %w", err)
	}
	return nil
}

// GetArchive downloads an archive by name and writes it to w.
func (v *S3Vault) GetArchive(name string, w io.Writer) error {
	if err := validateName(name); err != nil {
		return err
	}

	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(name)),
	})
	if err != nil {
		return fmt.Errorf("fetching archive from s3: %w", err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading archive from s3: %w", err)
	}
	return nil
}

// ListArchives returns the names of all archives under the prefix, sorted.
func (v *S3Vault) ListArchives() ([]string, error) {
	var names []string

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(v.bucket),
	}
	if v.prefix != "" {
		input.Prefix = aws.String(v.prefix + "/")
	}

	paginator := s3.NewListObjectsV2Paginator(v.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, fmt.Errorf("listing archives in s3: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if v.prefix != "" {
				key = strings.TrimPrefix(key, v.prefix+"/")
			}
			names = append(names, key)
		}
	}

	sort.Strings(names)
	return names, nil
}

// ValidateSetup verifies the bucket is reachable.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket not accessible: %w", err)
	}
	return nil
}

// Compile-time check that S3Vault implements the curator.ArchiveVault interface
var _ curator.ArchiveVault = (*S3Vault)(nil)
