package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"amor/internal/middleware"
	"amor/internal/models"
	"amor/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	MasterMaxSize = 1024
	JPEGQuality   = 85
	WebPQuality   = 75
)

var keyPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.jpg$`)

// DiskStore keeps objects on the local filesystem: a JPEG master named by
// key plus a WebP sibling sharing the key's stem.
type DiskStore struct {
	dir         string
	baseURL     string
	constraints Constraints
}

// NewDiskStore returns a DiskStore rooted at dir whose URLs are baseURL/<key>.
func NewDiskStore(dir, baseURL string, constraints Constraints) *DiskStore {
	return &DiskStore{
		dir:         dir,
		baseURL:     strings.TrimRight(baseURL, "/"),
		constraints: constraints,
	}
}

// Dir returns the filesystem root served under the base URL.
func (s *DiskStore) Dir() string {
	return s.dir
}

type encoded struct {
	jpg  []byte
	webp []byte
}

// Upload validates every file before writing any of them. A failed write removes the batch.
func (s *DiskStore) Upload(ctx context.Context, files []File) (objects []Object, err error) {
	ctx, span := observability.GetTraceLayer().TraceObjectStore(ctx, "upload", len(files))
	defer func() {
		observability.RecordErrorInContext(ctx, err)
		span.End()
		observability.ObjectStoreOperations.WithLabelValues("upload", observability.Outcome(err)).Inc()
	}()

	if err := s.constraints.Check(files); err != nil {
		return nil, err
	}

	prepared := make([]encoded, 0, len(files))
	for _, f := range files {
		enc, err := prepare(f)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, enc)
	}

	var written []string
	for _, enc := range prepared {
		key := uuid.NewString() + ".jpg"
		jpgPath := filepath.Join(s.dir, key)
		webpPath := filepath.Join(s.dir, webpSibling(key))

		if err := writeBytesToFile(jpgPath, enc.jpg); err != nil {
			removeFiles(written)
			return nil, models.NewInternalError(err)
		}
		written = append(written, jpgPath)
		if err := writeBytesToFile(webpPath, enc.webp); err != nil {
			removeFiles(written)
			return nil, models.NewInternalError(err)
		}
		written = append(written, webpPath)

		objects = append(objects, Object{Key: key, URL: s.URL(key)})
	}

	middleware.Logger.DebugContext(ctx, "objects stored", slog.Int("count", len(objects)))
	return objects, nil
}

// Delete removes every key it can. Missing objects are not an error.
func (s *DiskStore) Delete(ctx context.Context, keys []string) (err error) {
	ctx, span := observability.GetTraceLayer().TraceObjectStore(ctx, "delete", len(keys))
	defer func() {
		observability.RecordErrorInContext(ctx, err)
		span.End()
		observability.ObjectStoreOperations.WithLabelValues("delete", observability.Outcome(err)).Inc()
	}()

	var errs []error
	for _, key := range keys {
		if !keyPattern.MatchString(key) {
			errs = append(errs, fmt.Errorf("invalid object key %q", key))
			continue
		}
		for _, p := range []string{filepath.Join(s.dir, key), filepath.Join(s.dir, webpSibling(key))} {
			if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				errs = append(errs, rmErr)
			}
		}
	}
	if len(errs) > 0 {
		middleware.Logger.WarnContext(ctx, "object delete incomplete", slog.Int("failed", len(errs)))
	}
	return errors.Join(errs...)
}

// URL returns the public URL of key.
func (s *DiskStore) URL(key string) string {
	return s.baseURL + "/" + key
}

func prepare(f File) (encoded, error) {
	detected := http.DetectContentType(f.Content)
	if !isAllowedImageMIME(detected) {
		return encoded{}, models.NewValidationError(fmt.Sprintf("file %q is not a supported image", f.Name))
	}
	if provided := normalizeContentType(f.ContentType); strings.HasPrefix(provided, "image/") && !isAllowedImageMIME(provided) {
		return encoded{}, models.NewValidationError(fmt.Sprintf("file %q has unsupported content type %s", f.Name, provided))
	}

	decoded, _, err := image.Decode(bytes.NewReader(f.Content))
	if err != nil {
		return encoded{}, models.NewValidationError(fmt.Sprintf("file %q is not a valid image", f.Name))
	}

	master := resizeToFit(decoded, MasterMaxSize, MasterMaxSize)
	jpg, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return encoded{}, models.NewInternalError(err)
	}
	wp, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return encoded{}, models.NewInternalError(err)
	}
	return encoded{jpg: jpg, webp: wp}, nil
}

func webpSibling(key string) string {
	return strings.TrimSuffix(key, ".jpg") + ".webp"
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func removeFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
