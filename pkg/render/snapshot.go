package render

import (
	"fmt"
	"os"

	"github.com/HugoSmits86/nativewebp"
)

// SaveWebP writes the framebuffer to path as a lossless WebP image.
func (fb *Framebuffer) SaveWebP(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, fb.ToImage(), nil); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}
