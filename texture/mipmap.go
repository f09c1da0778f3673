package texture

func buildTexture(layers []*ImageData, mipmaps bool) *TextureData {
	w, h := layers[0].Width, layers[0].Height
	base := make([][]byte, len(layers))
	for i, l := range layers {
		base[i] = l.Pixels
	}
	d := &TextureData{Format: RGBA8, Width: w, Height: h, Mips: [][][]byte{base}}
	if !mipmaps {
		return d
	}
	for w > 1 || h > 1 {
		nw, nh := max(w/2, 1), max(h/2, 1)
		prev := d.Mips[len(d.Mips)-1]
		next := make([][]byte, len(prev))
		for i, px := range prev {
			next[i] = downsample(px, w, h, nw, nh)
		}
		d.Mips = append(d.Mips, next)
		w, h = nw, nh
	}
	return d
}

// downsample box-filters an RGBA8 image of w x h to nw x nh, where each
// target dimension is half the source (or 1).
func downsample(src []byte, w, h, nw, nh int) []byte {
	dst := make([]byte, nw*nh*4)
	for y := 0; y < nh; y++ {
		y0 := min(2*y, h-1)
		y1 := min(2*y+1, h-1)
		for x := 0; x < nw; x++ {
			x0 := min(2*x, w-1)
			x1 := min(2*x+1, w-1)
			for c := 0; c < 4; c++ {
				sum := int(src[(y0*w+x0)*4+c]) +
					int(src[(y0*w+x1)*4+c]) +
					int(src[(y1*w+x0)*4+c]) +
					int(src[(y1*w+x1)*4+c])
				dst[(y*nw+x)*4+c] = byte((sum + 2) / 4)
			}
		}
	}
	return dst
}
