// Package images stores uploaded pictures, scaled down to a bounding
// box. Callers only ever see the returned reference name; nothing else
// in the system touches image bytes.
package images

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Save decodes r, scales it to fit maxW x maxH preserving aspect and
// writes it under a random name. Returns the reference to store.
func (s *Store) Save(r io.Reader, maxW, maxH int) (string, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxW || h > maxH {
		scale := float64(maxW) / float64(w)
		if hs := float64(maxH) / float64(h); hs < scale {
			scale = hs
		}
		dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		src = dst
	}

	name := uuid.New().String() + ".jpg"
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := jpeg.Encode(f, src, &jpeg.Options{Quality: 85}); err != nil {
		return "", err
	}
	return name, nil
}

// Path resolves a stored reference back to a file path.
func (s *Store) Path(ref string) string {
	return filepath.Join(s.dir, filepath.Base(ref))
}
