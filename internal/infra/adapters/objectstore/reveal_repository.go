// Package objectstore хранит архив раскрытий в S3 совместимом бакете.
//
// Одно раскрытие - один JSON объект <prefix><room>/<инвертированные наносекунды>-<id>.json,
// поэтому обычный листинг по префиксу отдаёт раскрытия комнаты от новых к старым.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/qrave1/RoomPoint/internal/application/config"
	"github.com/qrave1/RoomPoint/internal/domain/models"
)

type RevealRepository struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewRevealRepo(client *s3.Client, bucket, prefix string) *RevealRepository {
	return &RevealRepository{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// NewClient собирает клиент без внешних файлов конфигурации AWS
func NewClient(cfg config.S3Config) *s3.Client {
	opts := s3.Options{
		Region:                     cfg.Region,
		UsePathStyle:               cfg.UsePathStyle,
		Credentials:                aws.AnonymousCredentials{},
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	}

	if cfg.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Source:          "RoomPointEnv",
		}

		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				return creds, nil
			},
		))
	}

	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return s3.New(opts)
}

func (r *RevealRepository) Save(ctx context.Context, record models.RevealRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal reveal: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(objectKey(r.prefix, record.RoomID, record.RevealedAt, record.ID.String())),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put reveal object: %w", err)
	}

	return nil
}

func (r *RevealRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]models.RevealRecord, error) {
	if limit <= 0 {
		limit = models.DefaultRevealListLimit
	}

	page, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(r.bucket),
		Prefix:  aws.String(roomPrefix(r.prefix, roomID)),
		MaxKeys: aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("list reveal objects: %w", err)
	}

	records := make([]models.RevealRecord, 0, len(page.Contents))

	for _, obj := range page.Contents {
		if obj.Key == nil {
			continue
		}

		record, err := r.get(ctx, *obj.Key)
		if err != nil {
			return nil, err
		}

		records = append(records, record)

		if len(records) == limit {
			break
		}
	}

	return records, nil
}

func (r *RevealRepository) get(ctx context.Context, key string) (models.RevealRecord, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return models.RevealRecord{}, fmt.Errorf("get reveal object %s: %w", key, err)
	}
	defer out.Body.Close()

	var record models.RevealRecord
	if err := json.NewDecoder(out.Body).Decode(&record); err != nil {
		return models.RevealRecord{}, fmt.Errorf("decode reveal object %s: %w", key, err)
	}

	return record, nil
}

func roomPrefix(prefix, roomID string) string {
	return prefix + url.PathEscape(roomID) + "/"
}

// objectKey инвертирует время, чтобы лексикографический порядок шёл от новых к старым
func objectKey(prefix, roomID string, at time.Time, id string) string {
	return fmt.Sprintf("%s%019d-%s.json", roomPrefix(prefix, roomID), math.MaxInt64-at.UnixNano(), id)
}
