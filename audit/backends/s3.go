package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/orglens/orgsync/audit"
)

// S3Store persists records in Amazon S3, one object per record
type S3Store struct {
	s3Client   *s3.Client
	config     *S3Config
	configured bool
}

// S3Config contains S3 store configuration
type S3Config struct {
	Region               string `json:"region"`
	Bucket               string `json:"bucket"`
	KeyPrefix            string `json:"key_prefix"`
	Encrypt              bool   `json:"encrypt"`
	KMSKeyID             string `json:"kms_key_id"`
	ServerSideEncryption string `json:"server_side_encryption"`
	StorageClass         string `json:"storage_class"`
	MaxRetries           int    `json:"max_retries"`
	SkipCredentials      bool   `json:"skip_credentials"`
	AccessKey            string `json:"access_key"`
	SecretKey            string `json:"secret_key"`
	SessionToken         string `json:"session_token"`
	Endpoint             string `json:"endpoint"` // For S3-compatible services
	ForcePathStyle       bool   `json:"force_path_style"`
}

// NewS3Store creates a new S3 store
func NewS3Store() *S3Store {
	return &S3Store{}
}

// Configure sets up the S3 store
func (s *S3Store) Configure(ctx context.Context, config map[string]interface{}) error {
	s3Config, err := parseS3Config(config)
	if err != nil {
		return fmt.Errorf("invalid S3 configuration: %w", err)
	}

	s.config = s3Config

	var cfg aws.Config
	if s3Config.SkipCredentials {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(s3Config.Region),
			awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
		)
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(s3Config.Region),
		)
	}
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	if s3Config.AccessKey != "" && s3Config.SecretKey != "" {
		cfg.Credentials = aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     s3Config.AccessKey,
				SecretAccessKey: s3Config.SecretKey,
				SessionToken:    s3Config.SessionToken,
			}, nil
		})
	}

	var s3Options []func(*s3.Options)
	if s3Config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s3Config.Endpoint)
		})
	}

	if s3Config.ForcePathStyle {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	if s3Config.MaxRetries > 0 {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.RetryMaxAttempts = s3Config.MaxRetries
		})
	}

	s.s3Client = s3.NewFromConfig(cfg, s3Options...)

	if err := s.validateBucket(ctx); err != nil {
		return fmt.Errorf("bucket validation failed: %w", err)
	}

	s.configured = true
	return nil
}

// Put stores a record by id
func (s *S3Store) Put(ctx context.Context, record *audit.Record) error {
	if !s.configured {
		return fmt.Errorf("store not configured")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(s.recordKey(record.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"orgsync-kind":    string(record.Kind),
			"orgsync-subject": record.Subject,
		},
	}

	if s.config.Encrypt {
		if s.config.KMSKeyID != "" {
			input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
			input.SSEKMSKeyId = aws.String(s.config.KMSKeyID)
		} else {
			input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
		}
	}

	if s.config.StorageClass != "" {
		input.StorageClass = s3types.StorageClass(s.config.StorageClass)
	}

	if _, err := s.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to save record to S3: %w", err)
	}

	return nil
}

// Get retrieves a record by id
func (s *S3Store) Get(ctx context.Context, id string) (*audit.Record, error) {
	if !s.configured {
		return nil, fmt.Errorf("store not configured")
	}

	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.recordKey(id)),
	})
	if err != nil {
		if s.isNoSuchKeyError(err) {
			return nil, fmt.Errorf("record '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to load record from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read record data: %w", err)
	}

	var record audit.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse record JSON: %w", err)
	}

	return &record, nil
}

// List lists all stored record ids
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	if !s.configured {
		return nil, fmt.Errorf("store not configured")
	}

	prefix := s.config.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var ids []string
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.Bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list records: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}

			key := strings.TrimPrefix(*obj.Key, prefix)
			key = strings.TrimSuffix(key, ".json")
			if key != "" {
				ids = append(ids, key)
			}
		}
	}

	return ids, nil
}

// Delete removes a record by id
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if !s.configured {
		return fmt.Errorf("store not configured")
	}

	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.recordKey(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete record from S3: %w", err)
	}

	return nil
}

func (s *S3Store) validateBucket(ctx context.Context) error {
	_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket '%s' not accessible: %w", s.config.Bucket, err)
	}

	return nil
}

func (s *S3Store) recordKey(id string) string {
	key := id
	if !strings.HasSuffix(key, ".json") {
		key += ".json"
	}

	if s.config.KeyPrefix != "" {
		prefix := s.config.KeyPrefix
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		key = prefix + key
	}

	return key
}

func (s *S3Store) isNoSuchKeyError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "NoSuchKey") || strings.Contains(errStr, "NotFound")
}

func parseS3Config(config map[string]interface{}) (*S3Config, error) {
	cfg := &S3Config{
		Region:       "us-east-1",
		MaxRetries:   3,
		StorageClass: "STANDARD",
	}

	if region, ok := config["region"].(string); ok {
		cfg.Region = region
	}

	if bucket, ok := config["bucket"].(string); ok {
		cfg.Bucket = bucket
	}

	if keyPrefix, ok := config["key_prefix"].(string); ok {
		cfg.KeyPrefix = keyPrefix
	}

	if encrypt, ok := config["encrypt"].(bool); ok {
		cfg.Encrypt = encrypt
	}

	if kmsKeyID, ok := config["kms_key_id"].(string); ok {
		cfg.KMSKeyID = kmsKeyID
	}

	if serverSideEncryption, ok := config["server_side_encryption"].(string); ok {
		cfg.ServerSideEncryption = serverSideEncryption
	}

	if storageClass, ok := config["storage_class"].(string); ok {
		cfg.StorageClass = storageClass
	}

	if maxRetries, ok := config["max_retries"].(float64); ok {
		cfg.MaxRetries = int(maxRetries)
	} else if maxRetries, ok := config["max_retries"].(int); ok {
		cfg.MaxRetries = maxRetries
	}

	if skipCredentials, ok := config["skip_credentials"].(bool); ok {
		cfg.SkipCredentials = skipCredentials
	}

	if accessKey, ok := config["access_key"].(string); ok {
		cfg.AccessKey = accessKey
	}

	if secretKey, ok := config["secret_key"].(string); ok {
		cfg.SecretKey = secretKey
	}

	if sessionToken, ok := config["session_token"].(string); ok {
		cfg.SessionToken = sessionToken
	}

	if endpoint, ok := config["endpoint"].(string); ok {
		cfg.Endpoint = endpoint
	}

	if forcePathStyle, ok := config["force_path_style"].(bool); ok {
		cfg.ForcePathStyle = forcePathStyle
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	return cfg, nil
}
