package texture

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Stack places images top to bottom on one canvas as wide as the widest.
func Stack(faces []*image.NRGBA) *image.NRGBA {
	if len(faces) == 1 {
		return faces[0]
	}
	w, h := 0, 0
	for _, f := range faces {
		b := f.Bounds()
		w = max(w, b.Dx())
		h += b.Dy()
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	y := 0
	for _, f := range faces {
		draw.Copy(dst, image.Pt(0, y), f, f.Bounds(), draw.Src, nil)
		y += f.Bounds().Dy()
	}
	return dst
}

// FlipVertical returns img mirrored top to bottom.
func FlipVertical(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(b)
	row := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		src := img.PixOffset(b.Min.X, b.Max.Y-1-y)
		di := dst.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dst.Pix[di:di+row], img.Pix[src:src+row])
	}
	return dst
}

// Fit scales img down so neither side exceeds limit, keeping the aspect
// ratio. Scaling runs on premultiplied alpha so transparent texels do not
// darken their neighbours. Images already within limit are returned as is.
func Fit(img *image.NRGBA, limit int) *image.NRGBA {
	b := img.Bounds()
	if limit <= 0 || (b.Dx() <= limit && b.Dy() <= limit) {
		return img
	}
	w, h := limit, limit
	if b.Dx() > b.Dy() {
		h = max(1, b.Dy()*limit/b.Dx())
	} else {
		w = max(1, b.Dx()*limit/b.Dy())
	}

	premul := image.NewRGBA(b)
	draw.Draw(premul, b, img, b.Min, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, b, draw.Src, nil)

	out := image.NewNRGBA(dst.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetNRGBA(x, y, color.NRGBAModel.Convert(dst.RGBAAt(x, y)).(color.NRGBA))
		}
	}
	return out
}
