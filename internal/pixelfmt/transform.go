// SPDX-License-Identifier: Apache-2.0

// Package pixelfmt applies the RGB-to-wire-format transform a worker
// runs on a pixel buffer just before handing it to a codec. Three-byte
// reorderings mutate in place; RGBW/GRBW allocate a new, wider buffer.
package pixelfmt

import "github.com/ledbridge/opcbridge/internal/config"

// Transform converts an RGB pixel buffer (stride 3) to the wire layout
// named by format. The RGB/GRB/BGR/passthrough paths return data
// itself, reordered in place where needed; RGBW/GRBW paths return a
// freshly allocated buffer and leave data unchanged.
func Transform(data []byte, format config.PixelFormat) []byte {
	switch format {
	case config.PixelFormatPassthrough, config.PixelFormatRGB:
		return data
	case config.PixelFormatGRB:
		return swapPairs(data, 0, 1)
	case config.PixelFormatBGR:
		return swapPairs(data, 0, 2)
	case config.PixelFormatRGBW:
		return expandW(data, false)
	case config.PixelFormatGRBW:
		return expandW(data, true)
	default:
		return data
	}
}

// swapPairs swaps byte offsets a and b within every 3-byte pixel,
// in place.
func swapPairs(data []byte, a, b int) []byte {
	for i := 0; i+2 < len(data); i += 3 {
		data[i+a], data[i+b] = data[i+b], data[i+a]
	}
	return data
}

// expandW builds a new stride-4 buffer with W = min(R,G,B) appended
// after R,G,B (swapped to G,R,B first when grb is set). R, G and B
// pass through unchanged; only W is derived.
func expandW(data []byte, grb bool) []byte {
	pixelCount := len(data) / 3
	out := make([]byte, pixelCount*4)
	for i := 0; i < pixelCount; i++ {
		src := i * 3
		dst := i * 4
		r, g, b := data[src], data[src+1], data[src+2]
		w := min3(r, g, b)
		if grb {
			out[dst], out[dst+1], out[dst+2], out[dst+3] = g, r, b, w
		} else {
			out[dst], out[dst+1], out[dst+2], out[dst+3] = r, g, b, w
		}
	}
	return out
}

func min3(a, b, c byte) byte {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
