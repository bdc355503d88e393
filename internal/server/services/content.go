package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/server/config"
	"github.com/sciencehabits/sciencehabits/internal/server/repositories/repomanager"
)

// cacheEntry is one cached content document with its expiry deadline.
type cacheEntry struct {
	body      json.RawMessage
	expiresAt time.Time
}

// ContentMetrics is a snapshot of the service counters.
type ContentMetrics struct {
	ContentRequests int64
	CacheHits       int64
	CacheMisses     int64
	UpstreamFetches int64
	Errors          int64
}

// ContentService serves catalog documents through a read-through chain:
// in-memory TTL cache, then PostgreSQL, then the S3 content bucket. Bucket
// hits are written back to PostgreSQL so the database stays the warm copy.
type ContentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config

	mu    sync.Mutex
	cache map[string]cacheEntry

	contentRequests atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
	upstreamFetches atomic.Int64
	errorCount      atomic.Int64

	now func() time.Time
}

// NewContentService constructs a ContentService using repositories and server config.
func NewContentService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *ContentService {
	return &ContentService{
		db:          db,
		repomanager: m,
		config:      cfg,
		cache:       make(map[string]cacheEntry),
		now:         time.Now,
	}
}

func cacheKey(contentType, language string) string {
	return contentType + "/" + language
}

// Get returns the document body for a content type and language. Misses walk
// down the chain; an absent document on every level yields common.ErrorNotFound.
func (s *ContentService) Get(ctx context.Context, contentType string, language string) (json.RawMessage, error) {
	s.contentRequests.Add(1)

	key := cacheKey(contentType, language)
	if body, ok := s.cacheGet(key); ok {
		s.cacheHits.Add(1)
		return body, nil
	}
	s.cacheMisses.Add(1)

	repo := s.repomanager.Content(s.db)
	doc, err := repo.Get(ctx, contentType, language)
	if err == nil {
		s.cachePut(key, doc.Body)
		return doc.Body, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		s.errorCount.Add(1)
		return nil, err
	}

	body, err := s.fetchFromBucket(ctx, contentType, language)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.errorCount.Add(1)
		return nil, err
	}
	if err := repo.Upsert(ctx, contentType, language, body); err != nil {
		s.errorCount.Add(1)
		return nil, err
	}
	s.cachePut(key, body)
	return body, nil
}

// Publish stores a document directly and invalidates its cache entry. Used
// by the admin publish flow when the bundle is pushed through the API rather
// than the bucket.
func (s *ContentService) Publish(ctx context.Context, contentType string, language string, body json.RawMessage) error {
	if !json.Valid(body) {
		return fmt.Errorf("%w: body is not valid JSON", common.ErrorValidation)
	}
	if err := s.repomanager.Content(s.db).Upsert(ctx, contentType, language, body); err != nil {
		s.errorCount.Add(1)
		return err
	}
	s.mu.Lock()
	delete(s.cache, cacheKey(contentType, language))
	s.mu.Unlock()
	return nil
}

// GetPresignedPutUrl returns a bucket key and a presigned PUT URL so a
// publisher can upload a content bundle without holding bucket credentials.
func (s *ContentService) GetPresignedPutUrl(ctx context.Context, contentType string, language string) (string, string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := bucketKey(contentType, language)

	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", err
	}
	return key, req.URL, nil
}

// ClearCache drops every cached document and returns how many were held.
func (s *ContentService) ClearCache() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.cache)
	s.cache = make(map[string]cacheEntry)
	return n
}

// CacheStats returns the live entry count and sorted keys.
func (s *ContentService) CacheStats() (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.cache))
	for k := range s.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return len(s.cache), keys
}

// Metrics returns a counter snapshot.
func (s *ContentService) Metrics() ContentMetrics {
	return ContentMetrics{
		ContentRequests: s.contentRequests.Load(),
		CacheHits:       s.cacheHits.Load(),
		CacheMisses:     s.cacheMisses.Load(),
		UpstreamFetches: s.upstreamFetches.Load(),
		Errors:          s.errorCount.Load(),
	}
}

func (s *ContentService) cacheGet(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[key]
	if !ok {
		return nil, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.cache, key)
		return nil, false
	}
	return entry.body, true
}

func (s *ContentService) cachePut(key string, body json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{body: body, expiresAt: s.now().Add(s.config.CacheTTL)}
}

// bucketKey maps a content type and language to its object key.
func bucketKey(contentType, language string) string {
	return fmt.Sprintf("content/%s.%s.json", contentType, language)
}

// getObject is a seam for testing the bucket fetch path.
var getObject = func(ctx context.Context, client *s3.Client, input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	return client.GetObject(ctx, input)
}

func (s *ContentService) fetchFromBucket(ctx context.Context, contentType string, language string) (json.RawMessage, error) {
	s.upstreamFetches.Add(1)

	client, err := s.getS3Client()
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := bucketKey(contentType, language)

	out, err := getObject(ctx, client, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error fetching object %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading object %s: %w", key, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("object %s is not valid JSON", key)
	}
	return body, nil
}

func (s *ContentService) loadAWSConfig(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
}

func (s *ContentService) getS3Client() (*s3.Client, error) {
	cfg, err := s.loadAWSConfig(context.Background())
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

func (s *ContentService) getPresignClient() (*s3.PresignClient, error) {
	client, err := s.getS3Client()
	if err != nil {
		return nil, err
	}
	return s3.NewPresignClient(client), nil
}
