package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/tailor/internal/apperror"
	"github.com/sakif/tailor/internal/storage"
)

// DefaultMaxUploadBytes is the upload ceiling when none is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

const (
	uploadPutPath  = "/api/uploads/put"
	uploadFilePath = "/api/uploads/file/"
)

// allowedImageTypes maps each accepted content type to the extension its
// keys get.
var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadService issues upload targets for part images and stores the bytes.
//
// Uploading is two requests: Presign hands out a key under the caller's
// prefix, then the client PUTs the bytes to the returned URL, which lands
// in Put. Both the byte ceiling and the content type are checked on the
// bytes themselves, not on what the client declared.
type UploadService struct {
	store    storage.Storage
	maxBytes int64
	logger   *slog.Logger
}

// NewUploadService creates an UploadService. A non-positive maxBytes means
// DefaultMaxUploadBytes.
func NewUploadService(store storage.Storage, maxBytes int64, logger *slog.Logger) *UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadService{store: store, maxBytes: maxBytes, logger: logger}
}

// MaxBytes is the per-upload byte ceiling.
func (s *UploadService) MaxBytes() int64 { return s.maxBytes }

// PresignResult is the upload target handed to the client.
type PresignResult struct {
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
	MaxBytes  int64  `json:"maxBytes"`
	CDNURL    string `json:"cdnUrl"`
}

// UploadResult describes a stored upload.
type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Presign reserves a fresh key under the caller's prefix. contentType may
// be empty, in which case it is guessed from the filename.
func (s *UploadService) Presign(_ context.Context, userID int64, filename, contentType string) (*PresignResult, error) {
	filename = sanitizeFilename(filename)

	ct := baseMediaType(contentType)
	if ct == "" {
		ct = baseMediaType(mime.TypeByExtension(path.Ext(filename)))
	}
	ext, ok := allowedImageTypes[ct]
	if !ok {
		return nil, apperror.ValidationFailed("contentType", "unsupported file type; use PNG, JPEG or WebP")
	}

	key := fmt.Sprintf("%s%s%s", userPrefix(userID), strings.ReplaceAll(uuid.NewString(), "-", ""), ext)

	s.logger.Debug("upload presigned",
		slog.Int64("user_id", userID),
		slog.String("key", key),
		slog.String("filename", filename),
	)

	return &PresignResult{
		Key:       key,
		UploadURL: uploadPutPath + "?key=" + key,
		MaxBytes:  s.maxBytes,
		CDNURL:    PublicURL(key),
	}, nil
}

// Put stores the body under key. The key must lie under the caller's
// prefix and carry the extension matching the sniffed image type.
func (s *UploadService) Put(ctx context.Context, userID int64, key string, body io.Reader) (*UploadResult, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(key, userPrefix(userID)) {
		return nil, apperror.Forbidden("upload key belongs to another user")
	}

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("service/uploads: reading body: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperror.TooLarge(s.maxBytes)
	}
	if len(data) == 0 {
		return nil, apperror.ValidationFailed("body", "upload is empty")
	}

	ct := baseMediaType(http.DetectContentType(data))
	ext, ok := allowedImageTypes[ct]
	if !ok {
		return nil, apperror.ValidationFailed("contentType", "unsupported file type; use PNG, JPEG or WebP")
	}
	if !strings.EqualFold(path.Ext(key), ext) {
		return nil, apperror.ValidationFailed("key", fmt.Sprintf("file content is %s but the key ends in %q", ct, path.Ext(key)))
	}

	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), ct); err != nil {
		return nil, fmt.Errorf("service/uploads: storing %q: %w", key, err)
	}

	s.logger.Info("upload stored",
		slog.Int64("user_id", userID),
		slog.String("key", key),
		slog.Int("bytes", len(data)),
		slog.String("backend", s.store.Backend()),
	)

	return &UploadResult{Key: key, URL: PublicURL(key), Size: int64(len(data)), ContentType: ct}, nil
}

// Open returns a stored upload for public serving.
func (s *UploadService) Open(ctx context.Context, key string) (*storage.Object, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	obj, err := s.store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperror.NotFound("upload", key)
		}
		return nil, fmt.Errorf("service/uploads: opening %q: %w", key, err)
	}
	return obj, nil
}

// PublicURL is the path an upload is served from.
func PublicURL(key string) string {
	return uploadFilePath + key
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("parts/%d/", userID)
}

func checkKey(key string) error {
	if key == "" {
		return apperror.ValidationFailed("key", "key is required")
	}
	if storage.ValidateKey(key) != nil {
		return apperror.ValidationFailed("key", "invalid key")
	}
	return nil
}

// sanitizeFilename keeps the last path element and replaces runs of
// unsafe characters with "_", capped at 80 characters.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = "upload"
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}

func baseMediaType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}
