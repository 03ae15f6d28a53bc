package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/validation"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultAvatarUploadDir       = "static/uploads/avatars"
	DefaultAvatarMaxUploadSizeMB = 5
	AvatarSize                   = 300
	JPEGQuality                  = 90
	WebPQuality                  = 80

	// Uploads are rejected on their header before any pixels are decoded.
	MaxAvatarSide   = 10000
	MaxAvatarPixels = 40_000_000
)

// AvatarUpload is a profile picture as received from the client.
type AvatarUpload struct {
	Filename string
	Content  []byte
}

// AvatarStore keeps resized profile pictures on local disk.
type AvatarStore struct {
	dir                string
	maxUploadSizeBytes int64
}

func NewAvatarStore(cfg *config.Config) *AvatarStore {
	dir := DefaultAvatarUploadDir
	maxUploadSizeMB := DefaultAvatarMaxUploadSizeMB

	if cfg != nil {
		if cfg.UploadDir != "" {
			dir = cfg.UploadDir
		}
		if cfg.AvatarMaxUploadMB > 0 {
			maxUploadSizeMB = cfg.AvatarMaxUploadMB
		}
	}

	return &AvatarStore{
		dir:                dir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Dir is the directory avatars are written to.
func (s *AvatarStore) Dir() string {
	return s.dir
}

// EnsureDir creates the upload directory if it is missing.
func (s *AvatarStore) EnsureDir() error {
	return os.MkdirAll(s.dir, 0o750)
}

// Save validates, shrinks and stores an avatar. It returns the stored filename.
func (s *AvatarStore) Save(ctx context.Context, in AvatarUpload) (filename string, err error) {
	_, span := observability.StartSpan(ctx, "avatar.save", attribute.Int("avatar.bytes", len(in.Content)))
	defer func() {
		result := "stored"
		if err != nil {
			result = "rejected"
		}
		observability.AvatarUploads.WithLabelValues(result).Inc()
		observability.EndSpan(span, err)
	}()

	if err := validation.ValidateAvatarFilename(in.Filename); err != nil {
		return "", models.NewFieldError("avatar", "Images only!")
	}
	if len(in.Content) == 0 {
		return "", models.NewFieldError("avatar", "No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", models.NewFieldError("avatar", fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return "", models.NewFieldError("avatar", "Invalid image type")
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewFieldError("avatar", "Invalid image file")
	}
	if !withinPixelBudget(header.Width, header.Height) {
		return "", models.NewFieldError("avatar", "Image too large")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewFieldError("avatar", "Invalid image file")
	}

	ext := validation.AvatarExtension(in.Filename)
	encoded, err := encodeAvatar(resizeToFit(decoded, AvatarSize, AvatarSize), ext)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	filename = randomAvatarName() + filepath.Ext(in.Filename)
	if err := writeBytesToFile(filepath.Join(s.dir, filename), encoded); err != nil {
		return "", models.NewInternalError(err)
	}
	return filename, nil
}

// Remove deletes a stored avatar. The default avatar and missing files are ignored.
func (s *AvatarStore) Remove(filename string) error {
	if filename == "" || filename == models.DefaultAvatar {
		return nil
	}
	if !isPlainFilename(filename) {
		return fmt.Errorf("invalid avatar filename %q", filename)
	}
	if err := os.Remove(filepath.Join(s.dir, filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether filename is present in the upload directory.
func (s *AvatarStore) Exists(filename string) bool {
	if filename == "" || !isPlainFilename(filename) {
		return false
	}
	info, err := os.Stat(filepath.Join(s.dir, filename))
	return err == nil && !info.IsDir()
}

func isPlainFilename(name string) bool {
	return name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// randomAvatarName returns 16 hex characters.
func randomAvatarName() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:8])
}

func withinPixelBudget(width, height int) bool {
	if width <= 0 || height <= 0 || width > MaxAvatarSide || height > MaxAvatarSide {
		return false
	}
	return int64(width)*int64(height) <= MaxAvatarPixels
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

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// encodeAvatar writes img in the format named by the upload's extension.
func encodeAvatar(img image.Image, ext string) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	var err error
	switch ext {
	case "jpg", "jpeg":
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality})
	case "png":
		err = png.Encode(buf, img)
	case "gif":
		err = gif.Encode(buf, img, nil)
	case "webp":
		err = webp.Encode(buf, img, &webp.Options{Quality: WebPQuality})
	default:
		err = fmt.Errorf("unsupported avatar format %q", ext)
	}
	if err != nil {
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
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
