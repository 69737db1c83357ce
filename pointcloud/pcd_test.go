package pointcloud

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

var testPoints = []Point{
	{Position: r3.Vector{X: 0.25, Y: 0.85, Z: 0.85}, Distance: 1},
	{Position: r3.Vector{X: -1, Y: 2, Z: 0.5}, Distance: 0.125},
}

func TestToPCDAscii(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, ToPCD(testPoints, &buf, PCDAscii), test.ShouldBeNil)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	test.That(t, lines, test.ShouldHaveLength, 12)
	test.That(t, lines[1], test.ShouldEqual, "FIELDS x y z distance")
	test.That(t, lines[5], test.ShouldEqual, "WIDTH 2")
	test.That(t, lines[8], test.ShouldEqual, "POINTS 2")
	test.That(t, lines[9], test.ShouldEqual, "DATA ascii")
	test.That(t, lines[10], test.ShouldEqual, "0.250000 0.850000 0.850000 1.000000")
	test.That(t, lines[11], test.ShouldEqual, "-1.000000 2.000000 0.500000 0.125000")
}

func TestToPCDBinary(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, ToPCD(testPoints, &buf, PCDBinary), test.ShouldBeNil)

	header, data, found := strings.Cut(buf.String(), "DATA binary\n")
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, header, test.ShouldContainSubstring, "TYPE F F F F\n")
	test.That(t, len(data), test.ShouldEqual, 32)

	raw := []byte(data)
	word := func(i int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:])) }
	test.That(t, word(0), test.ShouldEqual, float32(0.25))
	test.That(t, word(3), test.ShouldEqual, float32(1))
	test.That(t, word(4), test.ShouldEqual, float32(-1))
	test.That(t, word(7), test.ShouldEqual, float32(0.125))
}

func TestToPCDEmptyAndUnsupported(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, ToPCD(nil, &buf, PCDAscii), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "POINTS 0\n")

	test.That(t, ToPCD(testPoints, &bytes.Buffer{}, PCDType(7)), test.ShouldNotBeNil)
}
