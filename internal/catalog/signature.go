package catalog

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

const (
	hashCols = 9
	hashRows = 8
)

// signatureFile decodes the image and derives a 64-bit difference hash:
// the image is reduced to a 9x8 grayscale grid and each bit records
// whether a cell is brighter than its right neighbour. Visually similar
// images land within a few bits of each other.
func signatureFile(path string) (signature string, width, height int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, 0, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return "", 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width = bounds.Dx()
	height = bounds.Dy()
	if width == 0 || height == 0 {
		return "", 0, 0, fmt.Errorf("empty image %dx%d", width, height)
	}

	grid := downsample(img, hashCols, hashRows)

	var bits uint64
	for row := 0; row < hashRows; row++ {
		for col := 0; col < hashCols-1; col++ {
			bits <<= 1
			if grid[row][col] > grid[row][col+1] {
				bits |= 1
			}
		}
	}
	return fmt.Sprintf("%016x", bits), width, height, nil
}

// downsample box-averages the image luminance into a cols x rows grid.
func downsample(img image.Image, cols, rows int) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	grid := make([][]float64, rows)
	for row := range grid {
		grid[row] = make([]float64, cols)
	}

	for row := 0; row < rows; row++ {
		y0 := bounds.Min.Y + row*height/rows
		y1 := bounds.Min.Y + (row+1)*height/rows
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for col := 0; col < cols; col++ {
			x0 := bounds.Min.X + col*width/cols
			x1 := bounds.Min.X + (col+1)*width/cols
			if x1 <= x0 {
				x1 = x0 + 1
			}

			var sum float64
			var count int
			for y := y0; y < y1 && y < bounds.Max.Y; y++ {
				for x := x0; x < x1 && x < bounds.Max.X; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					// ITU-R BT.601 luminance on 16-bit channels.
					sum += 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
					count++
				}
			}
			if count > 0 {
				grid[row][col] = sum / float64(count)
			}
		}
	}
	return grid
}
