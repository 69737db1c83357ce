// Package pointcloud writes skeleton points as PCD files for viewing in point cloud tools.
package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
)

// Point is a position in meters and the ESDF distance stored with it.
type Point struct {
	Position r3.Vector
	Distance float64
}

// ToPCD writes points with fields x, y, z and distance, all 32 bit floats.
func ToPCD(points []Point, out io.Writer, outputType PCDType) error {
	var data string
	switch outputType {
	case PCDAscii:
		data = "ascii"
	case PCDBinary:
		data = "binary"
	default:
		return errors.Errorf("unsupported pcd type %d", outputType)
	}

	w := bufio.NewWriter(out)
	if _, err := fmt.Fprintf(w, "VERSION .7\n"+
		"FIELDS x y z distance\n"+
		"SIZE 4 4 4 4\n"+
		"TYPE F F F F\n"+
		"COUNT 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n",
		len(points), len(points), data); err != nil {
		return err
	}
	if err := writePCDData(points, w, outputType); err != nil {
		return err
	}
	return w.Flush()
}

func writePCDData(points []Point, out io.Writer, pcdtype PCDType) error {
	buf := make([]byte, 16)
	for _, p := range points {
		var err error
		switch pcdtype {
		case PCDBinary:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.Position.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Position.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Position.Z)))
			binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(float32(p.Distance)))
			_, err = out.Write(buf)
		case PCDAscii:
			_, err = fmt.Fprintf(out, "%f %f %f %f\n", p.Position.X, p.Position.Y, p.Position.Z, p.Distance)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
