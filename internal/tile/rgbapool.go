package tile

import (
	"image"
	"sync"
)

// poolKey identifies an image pool by its dimensions.
type poolKey struct {
	w, h int
}

// rgbaPools maps (width, height) to a *sync.Pool of *image.RGBA. A run uses
// a single tile size, so the map stays tiny and sync.Map keeps the hot path
// lock-free.
var rgbaPools sync.Map

// GetRGBA returns a zeroed *image.RGBA from the pool, allocating when the
// pool is empty.
func GetRGBA(w, h int) *image.RGBA {
	key := poolKey{w, h}
	if p, ok := rgbaPools.Load(key); ok {
		if v := p.(*sync.Pool).Get(); v != nil {
			img := v.(*image.RGBA)
			clear(img.Pix)
			return img
		}
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// PutRGBA returns an image to the pool for reuse. Nil is ignored.
func PutRGBA(img *image.RGBA) {
	if img == nil {
		return
	}
	key := poolKey{img.Rect.Dx(), img.Rect.Dy()}
	p, _ := rgbaPools.LoadOrStore(key, &sync.Pool{})
	p.(*sync.Pool).Put(img)
}
