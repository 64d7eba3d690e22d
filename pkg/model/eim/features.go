package eim

import (
	"image"

	"github.com/disintegration/imaging"
)

// Features converts img into the runner's input: scaled to cover
// width x height, center-cropped, and packed one int per pixel as
// (r<<16)|(g<<8)|b. Grey models get the luma replicated in all three bytes.
func Features(img image.Image, width, height int, grey bool) []int {
	fitted := imaging.Fill(img, width, height, imaging.Center, imaging.Box)
	if grey {
		fitted = imaging.Grayscale(fitted)
	}

	features := make([]int, 0, width*height)
	pix := fitted.Pix
	for y := 0; y < height; y++ {
		row := pix[y*fitted.Stride:]
		for x := 0; x < width; x++ {
			p := row[x*4 : x*4+3]
			r, g, b := int(p[0]), int(p[1]), int(p[2])
			if grey {
				g, b = r, r
			}
			features = append(features, r<<16|g<<8|b)
		}
	}
	return features
}
