// Package image provides utilities for loading and processing images.
package image

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format
	_ "image/jpeg" // Register JPEG format
	_ "image/png"  // Register PNG format
	"io"
	"math/big"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "github.com/gen2brain/avif" // Register AVIF format
	_ "golang.org/x/image/webp"   // Register WebP format

	httputil "github.com/jmylchreest/palettepeek/internal/util/http"
)

// Loader handles loading images from various sources.
type Loader interface {
	// Load loads an image from the given path.
	Load(ctx context.Context, path string) (image.Image, error)
}

// FileLoader loads images from the local filesystem.
type FileLoader struct{}

// NewFileLoader creates a new FileLoader instance.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load loads an image from a file path.
// Supported formats: JPEG, PNG, GIF, WebP, AVIF.
func (l *FileLoader) Load(_ context.Context, path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("image path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat image file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path) // #nosec G304 - User-specified image path, intended to be read
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode decodes an image in any registered format.
func Decode(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image (format: %s): %w", format, err)
	}
	return img, nil
}

// IsURL reports whether path is an HTTP(S) URL.
func IsURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// IsDataURL reports whether path is a "data:" URL.
func IsDataURL(path string) bool {
	return strings.HasPrefix(path, "data:")
}

// ValidateImagePath checks if the given path is valid and points to a supported image file or directory.
// HTTP(S) and data URLs are accepted as-is; they are fetched or decoded later.
func ValidateImagePath(path string) error {
	if path == "" {
		return fmt.Errorf("image path cannot be empty")
	}
	if IsURL(path) || IsDataURL(path) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("image file or directory not found: %s", path)
		}
		return fmt.Errorf("failed to access image path: %w", err)
	}
	if info.IsDir() {
		return nil
	}

	file, err := os.Open(path) // #nosec G304 - User-specified image path, intended to be read
	if err != nil {
		return fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	if _, _, err := image.DecodeConfig(file); err != nil {
		return fmt.Errorf("unsupported or invalid image format: %w", err)
	}

	return nil
}

// SupportedImageExtensions returns a list of supported image file extensions.
func SupportedImageExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif"}
}

// isImageFile checks if a file has a supported image extension.
func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(SupportedImageExtensions(), ext)
}

// ScanDirectoryForImages scans a directory and returns all valid image files.
// It does not recurse into subdirectories, but follows symlinks.
func ScanDirectoryForImages(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var imageFiles []string
	for _, entry := range entries {
		fullPath := filepath.Join(dirPath, entry.Name())

		// Stat the target so symlinks resolve.
		info, err := os.Stat(fullPath)
		if err != nil {
			continue
		}
		if info.IsDir() {
			continue
		}
		if isImageFile(entry.Name()) {
			imageFiles = append(imageFiles, fullPath)
		}
	}

	if len(imageFiles) == 0 {
		return nil, fmt.Errorf("no supported image files found in directory: %s", dirPath)
	}

	return imageFiles, nil
}

// SelectRandomImage selects a random image from a list of image paths.
func SelectRandomImage(imagePaths []string) (string, error) {
	if len(imagePaths) == 0 {
		return "", fmt.Errorf("image path list is empty")
	}

	maxIndex := big.NewInt(int64(len(imagePaths)))
	randomIndex, err := rand.Int(rand.Reader, maxIndex)
	if err != nil {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		index := int(binary.LittleEndian.Uint64(buf[:]) % uint64(len(imagePaths)))
		return imagePaths[index], nil
	}

	return imagePaths[randomIndex.Int64()], nil
}

// ResolveImagePath resolves a path that could be a file or directory.
// Directories resolve to a random image inside them; files and URLs are
// returned unchanged.
func ResolveImagePath(path string) (string, error) {
	if IsURL(path) || IsDataURL(path) {
		return path, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to access path: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}

	imageFiles, err := ScanDirectoryForImages(path)
	if err != nil {
		return "", err
	}
	return SelectRandomImage(imageFiles)
}

// SmartLoader loads images from local files, HTTP(S) URLs and base64 data URLs.
type SmartLoader struct {
	fileLoader   *FileLoader
	fetchOptions httputil.FetchOptions
}

// NewSmartLoader creates a new SmartLoader instance.
func NewSmartLoader() *SmartLoader {
	return &SmartLoader{
		fileLoader: NewFileLoader(),
	}
}

// WithFetchOptions sets the options used for HTTP(S) sources.
func (l *SmartLoader) WithFetchOptions(opts httputil.FetchOptions) *SmartLoader {
	l.fetchOptions = opts
	return l
}

// Load loads an image from a local path, an HTTP(S) URL or a data URL.
func (l *SmartLoader) Load(ctx context.Context, path string) (image.Image, error) {
	switch {
	case IsURL(path):
		return l.loadFromURL(ctx, path)
	case IsDataURL(path):
		return loadFromDataURL(path)
	default:
		return l.fileLoader.Load(ctx, path)
	}
}

// loadFromURL fetches and decodes an image from an HTTP(S) URL.
func (l *SmartLoader) loadFromURL(ctx context.Context, rawURL string) (image.Image, error) {
	data, err := httputil.Fetch(ctx, rawURL, l.fetchOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image from URL: %w", err)
	}
	return Decode(bytes.NewReader(data))
}

// loadFromDataURL decodes a "data:[<mediatype>][;base64],<data>" URL, the
// form screenshots are usually handed over in.
func loadFromDataURL(dataURL string) (image.Image, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URL: missing ','")
	}

	var data []byte
	if strings.HasSuffix(header, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 data URL: %w", err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to unescape data URL: %w", err)
		}
		data = []byte(unescaped)
	}

	return Decode(bytes.NewReader(data))
}
