package render

import "image"

// channelThreshold is how far apart a channel value must be before the
// pixel counts as changed. Rasterizer antialiasing wobbles channels by a
// couple of counts; real color edits move them by dozens.
const channelThreshold = 5

// PixelDiff returns the percentage of pixels that differ between two
// renders. A pixel differs when any RGB channel differs by more than the
// channel threshold; alpha is ignored. Images of different dimensions are
// maximally different.
func PixelDiff(a, b *image.RGBA) float64 {
	if a == nil || b == nil {
		return 100.0
	}
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 100.0
	}
	total := ab.Dx() * ab.Dy()
	if total == 0 {
		return 0
	}
	changed := 0
	for y := 0; y < ab.Dy(); y++ {
		ao := a.PixOffset(ab.Min.X, ab.Min.Y+y)
		bo := b.PixOffset(bb.Min.X, bb.Min.Y+y)
		for x := 0; x < ab.Dx(); x++ {
			for c := 0; c < 3; c++ {
				if absDiff(a.Pix[ao+c], b.Pix[bo+c]) > channelThreshold {
					changed++
					break
				}
			}
			ao += 4
			bo += 4
		}
	}
	return float64(changed) / float64(total) * 100.0
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
