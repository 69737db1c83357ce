package voxel

import (
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestKindNames(t *testing.T) {
	test.That(t, KindOf[Esdf](), test.ShouldEqual, "esdf")
	test.That(t, KindOf[Tsdf](), test.ShouldEqual, "tsdf")
	test.That(t, KindOf[Skeleton](), test.ShouldEqual, "skeleton")
	test.That(t, WordsOf[Esdf](), test.ShouldEqual, 2)
	test.That(t, WordsOf[Tsdf](), test.ShouldEqual, 3)
}

func TestEsdfWords(t *testing.T) {
	v := Esdf{Distance: -0.25, Observed: true, Fixed: true}
	words := v.AppendWords(nil)
	test.That(t, words, test.ShouldHaveLength, 2)
	test.That(t, words[1], test.ShouldEqual, uint32(0b1001))

	decoded, err := Esdf{}.FromWords(words)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, v)

	_, err = Esdf{}.FromWords(words[:1])
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "needs 2 words")
}

func TestEsdfMerge(t *testing.T) {
	t.Run("both observed averages", func(t *testing.T) {
		merged := Esdf{Distance: 1, Observed: true}.MergeInto(Esdf{Distance: 3, Observed: true})
		test.That(t, merged.Distance, test.ShouldEqual, float32(2))
		test.That(t, merged.Observed, test.ShouldBeTrue)
	})
	t.Run("incoming observed wins", func(t *testing.T) {
		merged := Esdf{Distance: 1, Observed: true}.MergeInto(Esdf{Distance: 3})
		test.That(t, merged.Distance, test.ShouldEqual, float32(1))
		test.That(t, merged.Observed, test.ShouldBeTrue)
	})
	t.Run("unobserved incoming is ignored", func(t *testing.T) {
		merged := Esdf{Distance: 7}.MergeInto(Esdf{Distance: 3, Observed: true})
		test.That(t, merged.Distance, test.ShouldEqual, float32(3))
	})
}

func TestTsdfWordsAndMerge(t *testing.T) {
	v := Tsdf{Distance: 0.5, Weight: 2, Color: color.NRGBA{R: 10, G: 20, B: 30, A: 255}}
	decoded, err := Tsdf{}.FromWords(v.AppendWords(nil))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, v)

	other := Tsdf{Distance: 2, Weight: 6, Color: color.NRGBA{R: 50, G: 20, B: 30, A: 255}}
	merged := v.MergeInto(other)
	test.That(t, merged.Weight, test.ShouldEqual, float32(8))
	test.That(t, merged.Distance, test.ShouldAlmostEqual, 1.625, 1e-6)
	test.That(t, merged.Color.R, test.ShouldEqual, uint8(40))

	test.That(t, Tsdf{}.MergeInto(Tsdf{Distance: 4}), test.ShouldResemble, Tsdf{Distance: 4})
}

func TestSkeletonWordsAndMerge(t *testing.T) {
	v := Skeleton{Distance: 0.4, NumBasisPoints: 3, Class: SkeletonVertex}
	decoded, err := Skeleton{}.FromWords(v.AppendWords(nil))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, v)
	test.That(t, decoded.IsSkeleton(), test.ShouldBeTrue)
	test.That(t, SkeletonEdge.String(), test.ShouldEqual, "edge")

	_, err = Skeleton{}.FromWords([]uint32{0, 0, 9})
	test.That(t, err, test.ShouldNotBeNil)

	merged := Skeleton{Distance: 0.2}.MergeInto(Skeleton{Distance: 0.3, Class: SkeletonEdge})
	test.That(t, merged.Class, test.ShouldEqual, SkeletonEdge)
	merged = Skeleton{Distance: 0.5, Class: SkeletonVertex}.MergeInto(Skeleton{Distance: 0.3, Class: SkeletonEdge})
	test.That(t, merged.Class, test.ShouldEqual, SkeletonVertex)
	test.That(t, merged.Distance, test.ShouldEqual, float32(0.5))
}
