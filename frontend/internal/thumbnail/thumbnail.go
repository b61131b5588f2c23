// Package thumbnail scales image message media down for the dashboard grid.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"sync"

	"golang.org/x/image/draw"
)

const (
	DefaultMaxSide = 320

	// 50 megapixels of RGBA
	maxDecodedBytes = 50_000_000 * 4
	jpegQuality     = 80
)

// ErrMediaLoad is returned when fetched media cannot be decoded as an image.
var ErrMediaLoad = errors.New("media could not be loaded")

// Generate decodes an image and returns a JPEG that fits in a maxSide box.
// Images already small enough are re-encoded without scaling.
func Generate(r io.Reader, maxSide int) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaLoad, err)
	}

	// reject crafted headers before allocating the full bitmap
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaLoad, err)
	}
	if int64(cfg.Width)*int64(cfg.Height)*4 > maxDecodedBytes {
		return nil, fmt.Errorf("%w: image too large: %dx%d", ErrMediaLoad, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaLoad, err)
	}

	b := src.Bounds()
	w, h := fit(b.Dx(), b.Dy(), maxSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return out.Bytes(), nil
}

func fit(w, h, maxSide int) (int, int) {
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return w, h
	}
	if w >= h {
		return maxSide, max(1, h*maxSide/w)
	}
	return max(1, w*maxSide/h), maxSide
}

// Cache keeps generated thumbnails by message id. Gateway messages never
// change their media, so entries are only evicted for space.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]byte
	order   []string
	limit   int
}

func NewCache(limit int) *Cache {
	return &Cache{entries: make(map[string][]byte), limit: limit}
}

func (c *Cache) Get(id string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[id]
	return data, ok
}

// Put stores data, evicting the oldest entry when full.
func (c *Cache) Put(id string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; ok {
		c.entries[id] = data
		return
	}
	if c.limit > 0 && len(c.order) >= c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[id] = data
	c.order = append(c.order, id)
}
