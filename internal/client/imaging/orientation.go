package imaging

import (
	"image"
	"strconv"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// orientation reads the EXIF Orientation tag (1..8). It returns 1 when the
// image carries no usable EXIF block.
func orientation(data []byte) int {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return 1
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 1
	}

	for _, entry := range entries {
		if entry.TagName != "Orientation" {
			continue
		}
		switch v := entry.Value.(type) {
		case []uint16:
			if len(v) > 0 && v[0] >= 1 && v[0] <= 8 {
				return int(v[0])
			}
		default:
			s := strings.Trim(entry.Formatted, "[] ")
			if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 8 {
				return n
			}
		}
	}
	return 1
}

// applyOrientation returns src transformed so that it displays upright for
// the given EXIF orientation.
func applyOrientation(src image.Image, o int) image.Image {
	if o <= 1 || o > 8 {
		return src
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	dw, dh := w, h
	if o >= 5 {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch o {
			case 2: // mirror horizontal
				dx, dy = w-1-x, y
			case 3: // rotate 180
				dx, dy = w-1-x, h-1-y
			case 4: // mirror vertical
				dx, dy = x, h-1-y
			case 5: // transpose
				dx, dy = y, x
			case 6: // rotate 90 CW
				dx, dy = h-1-y, x
			case 7: // transverse
				dx, dy = h-1-y, w-1-x
			case 8: // rotate 90 CCW
				dx, dy = y, w-1-x
			}
			dst.Set(dx, dy, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
