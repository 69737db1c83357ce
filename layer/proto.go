package layer

import (
	"math"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"go.viam.com/voxmap/voxel"
)

// Header message fields.
const (
	headerVoxelSizeField     protowire.Number = 1
	headerVoxelsPerSideField protowire.Number = 2
	headerTypeField          protowire.Number = 3
)

// Block message fields.
const (
	blockVoxelsPerSideField protowire.Number = 1
	blockVoxelSizeField     protowire.Number = 2
	blockOriginXField       protowire.Number = 3
	blockOriginYField       protowire.Number = 4
	blockOriginZField       protowire.Number = 5
	blockHasDataField       protowire.Number = 6
	blockVoxelDataField     protowire.Number = 7
	blockIndexXField        protowire.Number = 8
	blockIndexYField        protowire.Number = 9
	blockIndexZField        protowire.Number = 10
)

// MarshalHeader encodes the header message.
func MarshalHeader(h Header) []byte {
	var b []byte
	b = protowire.AppendTag(b, headerVoxelSizeField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(h.VoxelSize))
	b = protowire.AppendTag(b, headerVoxelsPerSideField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.VoxelsPerSide))
	b = protowire.AppendTag(b, headerTypeField, protowire.BytesType)
	b = protowire.AppendString(b, h.Kind)
	return b
}

// UnmarshalHeader decodes a header message.
func UnmarshalHeader(msg []byte) (Header, error) {
	var h Header
	var seenSize, seenSide bool
	err := walkFields(msg, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		switch {
		case num == headerVoxelSizeField && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(value)
			h.VoxelSize = math.Float64frombits(v)
			seenSize = true
			return n, nil
		case num == headerVoxelsPerSideField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(value)
			if v > math.MaxInt32 {
				return 0, errors.Errorf("voxels_per_side %d out of range", v)
			}
			h.VoxelsPerSide = int(v)
			seenSide = true
			return n, nil
		case num == headerTypeField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(value)
			h.Kind = v
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, value), nil
	})
	if err != nil {
		return Header{}, err
	}
	if !seenSize || !seenSide {
		return Header{}, errors.New("header is missing voxel_size or voxels_per_side")
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// MarshalBlock encodes a block message.
func MarshalBlock[V voxel.Voxel[V]](blk *Block[V]) []byte {
	var b []byte
	b = protowire.AppendTag(b, blockVoxelsPerSideField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(blk.voxelsPerSide))
	b = protowire.AppendTag(b, blockVoxelSizeField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(blk.voxelSize))
	for i, coord := range []float64{blk.origin.X, blk.origin.Y, blk.origin.Z} {
		b = protowire.AppendTag(b, blockOriginXField+protowire.Number(i), protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(coord))
	}
	b = protowire.AppendTag(b, blockHasDataField, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(blk.hasData))

	words := make([]uint32, 0, len(blk.voxels)*voxel.WordsOf[V]())
	for _, v := range blk.voxels {
		words = v.AppendWords(words)
	}
	var packed []byte
	for _, w := range words {
		packed = protowire.AppendVarint(packed, uint64(w))
	}
	b = protowire.AppendTag(b, blockVoxelDataField, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)

	for i, coord := range []int{blk.index.X, blk.index.Y, blk.index.Z} {
		b = protowire.AppendTag(b, blockIndexXField+protowire.Number(i), protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(coord)))
	}
	return b
}

// UnmarshalBlock decodes a block message sized for this layer. The block is not inserted.
func (l *Layer[V]) UnmarshalBlock(msg []byte) (*Block[V], error) {
	var (
		voxelsPerSide int
		voxelSize     float64
		origin        [3]float64
		index         [3]int
		seenIndex     [3]bool
		hasData       bool
		words         []uint32
	)
	err := walkFields(msg, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		switch {
		case num == blockVoxelsPerSideField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(value)
			voxelsPerSide = int(int32(v))
			return n, nil
		case num == blockVoxelSizeField && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(value)
			voxelSize = math.Float64frombits(v)
			return n, nil
		case num >= blockOriginXField && num <= blockOriginZField && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(value)
			origin[num-blockOriginXField] = math.Float64frombits(v)
			return n, nil
		case num == blockHasDataField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(value)
			hasData = protowire.DecodeBool(v)
			return n, nil
		case num == blockVoxelDataField && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(value)
			if n < 0 {
				return n, nil
			}
			for len(packed) > 0 {
				w, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return 0, protowire.ParseError(m)
				}
				words = append(words, uint32(w))
				packed = packed[m:]
			}
			return n, nil
		case num == blockVoxelDataField && typ == protowire.VarintType:
			w, n := protowire.ConsumeVarint(value)
			words = append(words, uint32(w))
			return n, nil
		case num >= blockIndexXField && num <= blockIndexZField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(value)
			index[num-blockIndexXField] = int(protowire.DecodeZigZag(v))
			seenIndex[num-blockIndexXField] = true
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, value), nil
	})
	if err != nil {
		return nil, err
	}

	if voxelsPerSide != l.voxelsPerSide {
		return nil, errors.Errorf("block voxels_per_side %d does not match layer %d", voxelsPerSide, l.voxelsPerSide)
	}
	if voxelSize != l.voxelSize {
		return nil, errors.Errorf("block voxel_size %g does not match layer %g", voxelSize, l.voxelSize)
	}

	blockIdx := Index{index[0], index[1], index[2]}
	if !(seenIndex[0] && seenIndex[1] && seenIndex[2]) {
		// Older producers only wrote the origin; blocks sit on exact multiples of the block size.
		blockIdx = Index{
			int(math.Round(origin[0] / l.blockSize)),
			int(math.Round(origin[1] / l.blockSize)),
			int(math.Round(origin[2] / l.blockSize)),
		}
	}

	// checked before allocating so the block size comes from data actually present
	perVoxel := voxel.WordsOf[V]()
	numVoxels := l.voxelsPerSide * l.voxelsPerSide * l.voxelsPerSide
	if len(words) != numVoxels*perVoxel {
		return nil, errors.Errorf("block %v holds %d voxel words, expected %d", blockIdx, len(words), numVoxels*perVoxel)
	}
	blk := newBlock[V](blockIdx, l.voxelsPerSide, l.voxelSize)
	var zero V
	for i := range blk.voxels {
		v, err := zero.FromWords(words[i*perVoxel : (i+1)*perVoxel])
		if err != nil {
			return nil, errors.Wrapf(err, "voxel %d of block %v", i, blockIdx)
		}
		blk.voxels[i] = v
	}
	blk.hasData = hasData
	return blk, nil
}

// walkFields iterates over the top-level fields of msg. fn consumes the value bytes and
// returns how many it used, or a negative protowire error code.
func walkFields(msg []byte, fn func(num protowire.Number, typ protowire.Type, value []byte) (int, error)) error {
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return protowire.ParseError(n)
		}
		msg = msg[n:]
		m, err := fn(num, typ, msg)
		if err != nil {
			return err
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		msg = msg[m:]
	}
	return nil
}
