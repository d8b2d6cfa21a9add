package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"
	"tutorlink_go/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// AvatarSize is the bounding box avatars are scaled into.
const AvatarSize = 512

var (
	ErrFileTooLarge     = errors.New("file exceeds maximum upload size")
	ErrInvalidExtension = errors.New("file type not allowed")
	ErrNotConfigured    = errors.New("object storage not configured")
)

// ObjectStore is the subset of S3 the service needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type StorageService struct {
	client *s3.Client
	bucket string
	region string
}

// NewStorageService loads the AWS config. Static keys from config win over
// the default credential chain.
func NewStorageService(ctx context.Context) (*StorageService, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(config.AppConfig.AWSRegion)}
	if config.AppConfig.AWSAccessKeyID != "" && config.AppConfig.AWSSecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.AppConfig.AWSAccessKeyID,
			config.AppConfig.AWSSecretAccessKey,
			"",
		)))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}
	if config.AppConfig.S3BucketName == "" {
		return nil, ErrNotConfigured
	}
	return &StorageService{
		client: s3.NewFromConfig(cfg),
		bucket: config.AppConfig.S3BucketName,
		region: config.AppConfig.AWSRegion,
	}, nil
}

func (s *StorageService) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %v", err)
	}
	return nil
}

func (s *StorageService) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *StorageService) URL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// UploadAvatar validates, scales and stores an avatar, returning its public URL.
func UploadAvatar(ctx context.Context, store ObjectStore, file *multipart.FileHeader, userID uint) (string, error) {
	if store == nil {
		return "", ErrNotConfigured
	}
	if config.AppConfig != nil && config.AppConfig.MaxFileSize > 0 && file.Size > config.AppConfig.MaxFileSize {
		return "", ErrFileTooLarge
	}
	allowed := "jpg,jpeg,png,webp,gif"
	if config.AppConfig != nil && config.AppConfig.AllowedExtensions != "" {
		allowed = config.AppConfig.AllowedExtensions
	}
	if !IsAllowedExtension(file.Filename, strings.Split(allowed, ",")) {
		return "", ErrInvalidExtension
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %v", err)
	}
	defer src.Close()

	raw, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}

	out, err := ProcessAvatar(raw)
	if err != nil {
		return "", err
	}

	key := AvatarKey(userID, time.Now())
	if err := store.Put(ctx, key, out, "image/jpeg"); err != nil {
		return "", err
	}
	return store.URL(key), nil
}

// ProcessAvatar decodes an image, fits it inside AvatarSize and re-encodes as JPEG.
func ProcessAvatar(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("invalid image: %v", err)
	}
	var resized image.Image = img
	b := img.Bounds()
	if b.Dx() > AvatarSize || b.Dy() > AvatarSize {
		resized = imaging.Fit(img, AvatarSize, AvatarSize, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %v", err)
	}
	return buf.Bytes(), nil
}

// AvatarKey builds avatars/<user>/<yyyy>/<mm>/<dd>/<random>.jpg
func AvatarKey(userID uint, now time.Time) string {
	return fmt.Sprintf("avatars/%d/%d/%02d/%02d/%s.jpg",
		userID, now.Year(), now.Month(), now.Day(), uuid.New().String()[:16])
}

// IsAllowedExtension checks the filename extension against a list, case-insensitively.
func IsAllowedExtension(filename string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == strings.ToLower(strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

// KeyFromURL extracts the object key from a public S3 URL.
func KeyFromURL(url string) string {
	parts := strings.Split(url, ".amazonaws.com/")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
