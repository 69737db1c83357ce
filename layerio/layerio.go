// Package layerio persists layers as a stream of length-delimited messages: a message
// count, one header message, then one message per block.
//
// Entry points taking a path log one diagnostic line on failure and return the error.
// Paths ending in ".zst" are zstd compressed.
package layerio

import (
	"io"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/voxmap/layer"
	"go.viam.com/voxmap/protoutils"
	"go.viam.com/voxmap/voxel"
)

// ReadLayer decodes a whole layer stream. Blocks are inserted with layer.Prohibit,
// and no layer is returned if any message fails.
func ReadLayer[V voxel.Voxel[V]](r io.Reader) (*layer.Layer[V], error) {
	return readLayer[V](protoutils.NewDelimitedProtoReader(r), "")
}

// ReadBlocks decodes a layer stream into an existing layer using strategy. The header
// must be compatible with l; otherwise l is left untouched. Blocks inserted before a
// failing message stay in l.
func ReadBlocks[V voxel.Voxel[V]](r io.Reader, strategy layer.MergeStrategy, l *layer.Layer[V]) error {
	return readBlocksInto(protoutils.NewDelimitedProtoReader(r), "", strategy, l)
}

// WriteLayer encodes every block of l.
func WriteLayer[V voxel.Voxel[V]](w io.Writer, l *layer.Layer[V]) error {
	return writeLayer(w, "", l, l.BlockIndices())
}

type stream struct {
	reader *protoutils.DelimitedProtoReader
	name   string
	count  uint32
	// next is the position of the next message, header included.
	next int
}

// openStream reads the message count and the header message.
func openStream(reader *protoutils.DelimitedProtoReader, name string) (*stream, layer.Header, error) {
	s := &stream{reader: reader, name: name}
	count, err := reader.ReadCount()
	switch {
	case errors.Is(err, io.EOF):
		return nil, layer.Header{}, layer.ErrEmptyInput
	case err != nil:
		return nil, layer.Header{}, s.messageError(err)
	case count == 0:
		return nil, layer.Header{}, layer.ErrEmptyInput
	}
	s.count = count

	msg, err := s.nextMessage()
	if err != nil {
		return nil, layer.Header{}, err
	}
	header, err := layer.UnmarshalHeader(msg)
	if err != nil {
		return nil, layer.Header{}, layer.NewCorruptMessageError(0, "header: %v", err)
	}
	return s, header, nil
}

func (s *stream) remaining() int {
	return int(s.count) - s.next
}

func (s *stream) nextMessage() ([]byte, error) {
	msg, err := s.reader.Next()
	if err != nil {
		return nil, s.messageError(err)
	}
	s.next++
	return msg, nil
}

// messageError classifies a framing failure at the current stream position.
func (s *stream) messageError(err error) error {
	if errors.Is(err, protoutils.ErrTruncated) || errors.Is(err, protoutils.ErrMalformed) {
		return layer.NewCorruptMessageError(s.next, "%v", err)
	}
	return layer.NewIOError("read", s.name, err)
}

// addBlocks decodes every remaining block message into l.
func addBlocks[V voxel.Voxel[V]](s *stream, l *layer.Layer[V], strategy layer.MergeStrategy) error {
	for s.remaining() > 0 {
		position := s.next
		msg, err := s.nextMessage()
		if err != nil {
			return err
		}
		blk, err := l.UnmarshalBlock(msg)
		if err != nil {
			return layer.NewCorruptMessageError(position, "block: %v", err)
		}
		if err := l.AddBlock(blk, strategy); err != nil {
			return err
		}
	}
	return nil
}

func readLayer[V voxel.Voxel[V]](reader *protoutils.DelimitedProtoReader, name string) (*layer.Layer[V], error) {
	s, header, err := openStream(reader, name)
	if err != nil {
		return nil, err
	}
	l, err := layer.NewFromHeader[V](header)
	if err != nil {
		return nil, err
	}
	if err := addBlocks(s, l, layer.Prohibit); err != nil {
		return nil, err
	}
	return l, nil
}

func readHeader[V voxel.Voxel[V]](reader *protoutils.DelimitedProtoReader, name string) (*layer.Layer[V], error) {
	_, header, err := openStream(reader, name)
	if err != nil {
		return nil, err
	}
	return layer.NewFromHeader[V](header)
}

func readBlocksInto[V voxel.Voxel[V]](
	reader *protoutils.DelimitedProtoReader,
	name string,
	strategy layer.MergeStrategy,
	l *layer.Layer[V],
) error {
	s, header, err := openStream(reader, name)
	if err != nil {
		return err
	}
	if header.Kind == "" {
		// Streams without a kind are taken to hold the layer's own kind.
		header.Kind = voxel.KindOf[V]()
	}
	if !l.Compatible(header) {
		return &layer.IncompatibleLayerError{Want: l.Header(), Got: header}
	}
	return addBlocks(s, l, strategy)
}

func writeLayer[V voxel.Voxel[V]](w io.Writer, name string, l *layer.Layer[V], indices []layer.BlockIndex) error {
	if uint64(len(indices)) >= math.MaxUint32 {
		return errors.Errorf("cannot write %d blocks in one stream", len(indices))
	}
	writer := protoutils.NewDelimitedProtoWriter(w)
	if err := writer.WriteCount(uint32(len(indices) + 1)); err != nil {
		return layer.NewIOError("write", name, err)
	}
	if err := writer.Append(layer.MarshalHeader(l.Header())); err != nil {
		return layer.NewIOError("write", name, err)
	}
	for _, idx := range indices {
		blk, ok := l.Block(idx)
		if !ok {
			return errors.Errorf("block %v is not in the layer", idx)
		}
		if err := writer.Append(layer.MarshalBlock(blk)); err != nil {
			return layer.NewIOError("write", name, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return layer.NewIOError("write", name, err)
	}
	return nil
}
