package voxel

// EsdfKind is the kind name of Esdf voxels.
const EsdfKind = "esdf"

const (
	esdfObserved uint32 = 1 << iota
	esdfHallucinated
	esdfInQueue
	esdfFixed
)

// Esdf is a Euclidean signed distance voxel. Distance is in meters, positive in free space.
type Esdf struct {
	Distance     float32
	Observed     bool
	Hallucinated bool
	InQueue      bool
	Fixed        bool
}

// Kind implements Voxel.
func (Esdf) Kind() string { return EsdfKind }

// Words implements Voxel.
func (Esdf) Words() int { return 2 }

// AppendWords implements Voxel.
func (v Esdf) AppendWords(dst []uint32) []uint32 {
	var flags uint32
	if v.Observed {
		flags |= esdfObserved
	}
	if v.Hallucinated {
		flags |= esdfHallucinated
	}
	if v.InQueue {
		flags |= esdfInQueue
	}
	if v.Fixed {
		flags |= esdfFixed
	}
	return append(dst, wordFromFloat(v.Distance), flags)
}

// FromWords implements Voxel.
func (v Esdf) FromWords(words []uint32) (Esdf, error) {
	if err := checkWords(EsdfKind, v.Words(), words); err != nil {
		return Esdf{}, err
	}
	flags := words[1]
	return Esdf{
		Distance:     floatFromWord(words[0]),
		Observed:     flags&esdfObserved != 0,
		Hallucinated: flags&esdfHallucinated != 0,
		InQueue:      flags&esdfInQueue != 0,
		Fixed:        flags&esdfFixed != 0,
	}, nil
}

// MergeInto averages distances when both voxels are observed and otherwise keeps
// whichever one was observed.
func (v Esdf) MergeInto(dst Esdf) Esdf {
	switch {
	case v.Observed && dst.Observed:
		dst.Distance = (v.Distance + dst.Distance) / 2
	case v.Observed:
		dst.Distance = v.Distance
	}
	dst.Observed = dst.Observed || v.Observed
	dst.Hallucinated = dst.Hallucinated || v.Hallucinated
	dst.Fixed = dst.Fixed || v.Fixed
	return dst
}
