package voxel

import "image/color"

// TsdfKind is the kind name of Tsdf voxels.
const TsdfKind = "tsdf"

// Tsdf is a truncated signed distance voxel with an integration weight and color.
type Tsdf struct {
	Distance float32
	Weight   float32
	Color    color.NRGBA
}

// Kind implements Voxel.
func (Tsdf) Kind() string { return TsdfKind }

// Words implements Voxel.
func (Tsdf) Words() int { return 3 }

// AppendWords implements Voxel.
func (v Tsdf) AppendWords(dst []uint32) []uint32 {
	rgba := uint32(v.Color.R)<<24 | uint32(v.Color.G)<<16 | uint32(v.Color.B)<<8 | uint32(v.Color.A)
	return append(dst, wordFromFloat(v.Distance), wordFromFloat(v.Weight), rgba)
}

// FromWords implements Voxel.
func (v Tsdf) FromWords(words []uint32) (Tsdf, error) {
	if err := checkWords(TsdfKind, v.Words(), words); err != nil {
		return Tsdf{}, err
	}
	rgba := words[2]
	return Tsdf{
		Distance: floatFromWord(words[0]),
		Weight:   floatFromWord(words[1]),
		Color: color.NRGBA{
			R: uint8(rgba >> 24),
			G: uint8(rgba >> 16),
			B: uint8(rgba >> 8),
			A: uint8(rgba),
		},
	}, nil
}

// MergeInto computes the weighted average of distance and color and sums the weights.
func (v Tsdf) MergeInto(dst Tsdf) Tsdf {
	combined := v.Weight + dst.Weight
	if combined <= 0 {
		return dst
	}
	dst.Distance = (v.Distance*v.Weight + dst.Distance*dst.Weight) / combined
	dst.Color = blendColors(v.Color, v.Weight, dst.Color, dst.Weight)
	dst.Weight = combined
	return dst
}

func blendColors(a color.NRGBA, weightA float32, b color.NRGBA, weightB float32) color.NRGBA {
	total := weightA + weightB
	mix := func(x, y uint8) uint8 {
		return uint8((float32(x)*weightA+float32(y)*weightB)/total + 0.5)
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
