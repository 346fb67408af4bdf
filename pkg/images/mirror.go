package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Mirror copies remote images into a local media directory, downscaling
// wide images. Provider URLs expire; mirrored ones do not.
type Mirror struct {
	dir        string
	publicBase string
	maxWidth   int
	quality    int
	maxBytes   int64
	client     *http.Client
}

// MirrorConfig configures the mirror.
type MirrorConfig struct {
	Dir        string
	PublicBase string // URL prefix the media dir is served under
	MaxWidth   int
	Quality    int
	Timeout    time.Duration
}

// NewMirror creates a mirror writing to cfg.Dir.
func NewMirror(cfg MirrorConfig) (*Mirror, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("mirror dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror dir: %w", err)
	}
	if cfg.MaxWidth == 0 {
		cfg.MaxWidth = 1600
	}
	if cfg.Quality == 0 {
		cfg.Quality = 85
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Mirror{
		dir:        cfg.Dir,
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
		maxWidth:   cfg.MaxWidth,
		quality:    cfg.Quality,
		maxBytes:   25 << 20,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Store downloads src and writes it as JPEG. It returns the public URL.
func (m *Mirror) Store(ctx context.Context, src string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}

	out, err := m.encode(data)
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + ".jpg"
	if err := os.WriteFile(filepath.Join(m.dir, name), out, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return m.publicBase + "/" + name, nil
}

func (m *Mirror) encode(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Dx() > m.maxWidth {
		img = scaleToWidth(img, m.maxWidth)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: m.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// scaleToWidth resizes img to width, keeping the aspect ratio.
func scaleToWidth(img image.Image, width int) image.Image {
	b := img.Bounds()
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
