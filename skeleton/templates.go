package skeleton

import "go.viam.com/voxmap/layer"

// VoxelTemplate matches a neighborhood in which every Present bit is set and every
// Absent bit is clear. Other bits are ignored.
type VoxelTemplate struct {
	Present Neighborhood
	Absent  Neighborhood
}

// Matches reports whether n fits the template.
func (t VoxelTemplate) Matches(n Neighborhood) bool {
	return n&t.Present == t.Present && n&t.Absent == 0
}

// VoxelTemplateMatcher is a fixed set of templates.
type VoxelTemplateMatcher []VoxelTemplate

// Matches reports whether any template fits n.
func (m VoxelTemplateMatcher) Matches(n Neighborhood) bool {
	for _, t := range m {
		if t.Matches(n) {
			return true
		}
	}
	return false
}

// CornerTemplates recognize a right-angle turn made through face neighbors a and b whose
// diagonal a+b is empty. The center can be cut because a and b already touch.
var CornerTemplates = buildCornerTemplates()

func buildCornerTemplates() VoxelTemplateMatcher {
	axes := [3]layer.Index{{X: 1}, {Y: 1}, {Z: 1}}
	var templates VoxelTemplateMatcher
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			for _, signA := range []int{-1, 1} {
				for _, signB := range []int{-1, 1} {
					a := axes[i].Scale(signA)
					b := axes[j].Scale(signB)
					templates = append(templates, VoxelTemplate{
						Present: NeighborhoodFromOffsets(layer.Index{}, a, b),
						Absent:  NeighborhoodFromOffsets(a.Scale(-1), b.Scale(-1), a.Add(b)),
					})
				}
			}
		}
	}
	return templates
}

// PruningTemplates recognize voxels that only thicken the skeleton. For a face offset a
// and a face offset b perpendicular to it, a tip touches nothing but a and a+b, and a
// bump touches nothing but a, a+b and a-b.
var PruningTemplates = buildPruningTemplates()

func buildPruningTemplates() VoxelTemplateMatcher {
	all := Neighborhood(1<<NeighborhoodSize - 1)
	faces := layer.NeighborOffsets[:6]
	var templates VoxelTemplateMatcher
	for _, a := range faces {
		for _, b := range faces {
			if b == a || b == a.Scale(-1) {
				continue
			}
			tip := NeighborhoodFromOffsets(layer.Index{}, a, a.Add(b))
			templates = append(templates, VoxelTemplate{Present: tip, Absent: all &^ tip})
			if b.X+b.Y+b.Z > 0 {
				bump := NeighborhoodFromOffsets(layer.Index{}, a, a.Add(b), a.Sub(b))
				templates = append(templates, VoxelTemplate{Present: bump, Absent: all &^ bump})
			}
		}
	}
	return templates
}
