// Package imaging turns a captured label photo into a small JPEG thumbnail
// stored alongside the scan record.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/dmitrijs2005/foodie/internal/common"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 300
	DefaultQuality      = 70
	// DefaultMaxPixels bounds the decoded size of an input image (about a
	// 48 MP camera frame).
	DefaultMaxPixels = 48_000_000

	dataURLPrefix = "data:image/jpeg;base64,"
)

// Thumbnail is a re-encoded, size-bounded copy of an image.
type Thumbnail struct {
	DataURL string
	Width   int
	Height  int
}

type Compressor struct {
	maxDimension int
	quality      int
	maxPixels    int
}

// NewCompressor returns a Compressor that scales images so their larger side
// equals maxDimension and encodes them as JPEG at quality (1..100).
// Zero values select the defaults.
func NewCompressor(maxDimension, quality int) *Compressor {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Compressor{maxDimension: maxDimension, quality: quality, maxPixels: DefaultMaxPixels}
}

// Compress decodes data (JPEG, PNG, GIF or WebP), honours its EXIF
// orientation, scales it and re-encodes it. Any decode or encode failure is
// reported as common.ErrImageDecode, as is an image whose header declares
// more than the pixel budget; such images are rejected before decoding.
func (c *Compressor) Compress(ctx context.Context, data []byte) (*Thumbnail, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", common.ErrImageDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrImageDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(c.maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", common.ErrImageDecode, cfg.Width, cfg.Height, c.maxPixels)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrImageDecode, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if format == "jpeg" {
		src = applyOrientation(src, orientation(data))
	}

	w, h := fit(src.Bounds().Dx(), src.Bounds().Dy(), c.maxDimension)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: degenerate %dx%d image", common.ErrImageDecode, src.Bounds().Dx(), src.Bounds().Dy())
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", common.ErrImageDecode, err)
	}

	return &Thumbnail{
		DataURL: dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   w,
		Height:  h,
	}, nil
}

// fit scales w×h proportionally so that the larger side equals bound.
func fit(w, h, bound int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w >= h {
		return bound, max(1, h*bound/w)
	}
	return max(1, w*bound/h), bound
}

// DecodeDataURL returns the JPEG bytes of a thumbnail data URL.
func DecodeDataURL(dataURL string) ([]byte, error) {
	if len(dataURL) < len(dataURLPrefix) || dataURL[:len(dataURLPrefix)] != dataURLPrefix {
		return nil, fmt.Errorf("%w: not a jpeg data url", common.ErrImageDecode)
	}
	return base64.StdEncoding.DecodeString(dataURL[len(dataURLPrefix):])
}
