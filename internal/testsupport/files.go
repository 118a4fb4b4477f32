package testsupport

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// WritePNG writes a small opaque PNG with the given dimensions.
func WritePNG(t testing.TB, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png %s: %v", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("encode png %s: %v", path, err)
	}
}

// WriteStoryFolder lays out a synced story directory under root: an
// article.txt plus decodable images. Returns the story directory.
func WriteStoryFolder(t testing.TB, root, storyID, article string, imageCount int) string {
	t.Helper()
	dir := filepath.Join(root, storyID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir story dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "article.txt"), []byte(article), 0o644); err != nil {
		t.Fatalf("write article: %v", err)
	}
	for i := 0; i < imageCount; i++ {
		WritePNG(t, filepath.Join(dir, fmt.Sprintf("image_%02d.png", i+1)), 1080, 1920)
	}
	return dir
}
