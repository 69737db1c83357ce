package layerio

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/voxmap/layer"
	"go.viam.com/voxmap/logging"
	"go.viam.com/voxmap/protoutils"
	"go.viam.com/voxmap/voxel"
)

// CompressedExtension marks layer files that are zstd compressed.
const CompressedExtension = ".zst"

func isCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedExtension)
}

// LoadLayer reads a whole layer file. Duplicate blocks and malformed messages fail the
// load and no layer is returned.
func LoadLayer[V voxel.Voxel[V]](path string, logger logging.Logger) (*layer.Layer[V], error) {
	var l *layer.Layer[V]
	err := withFileReader(path, func(reader *protoutils.DelimitedProtoReader) error {
		var err error
		l, err = readLayer[V](reader, path)
		return err
	})
	if err != nil {
		logger.Errorw("could not load layer", "path", path, "error", err)
		return nil, err
	}
	logger.Debugw("loaded layer", "path", path, "blocks", l.NumBlocks())
	return l, nil
}

// LoadLayerHeader creates an empty layer from the header of a layer file.
func LoadLayerHeader[V voxel.Voxel[V]](path string, logger logging.Logger) (*layer.Layer[V], error) {
	l, err := loadLayerHeader[V](path)
	if err != nil {
		logger.Errorw("could not load layer header", "path", path, "error", err)
		return nil, err
	}
	return l, nil
}

// LoadOrCreateLayerHeader is the lenient form of LoadLayerHeader. Any failure to read the
// header (missing file, empty or corrupt stream, other voxel kind) is logged and an empty
// layer with the given parameters is returned instead. It only fails if those parameters
// are invalid.
func LoadOrCreateLayerHeader[V voxel.Voxel[V]](
	path string,
	voxelSize float64,
	voxelsPerSide int,
	logger logging.Logger,
) (*layer.Layer[V], error) {
	l, err := loadLayerHeader[V](path)
	if err == nil {
		return l, nil
	}
	logger.Warnw("could not load layer header, creating an empty layer",
		"path", path, "voxel_size", voxelSize, "voxels_per_side", voxelsPerSide, "error", err)
	return layer.New[V](voxelSize, voxelsPerSide)
}

func loadLayerHeader[V voxel.Voxel[V]](path string) (*layer.Layer[V], error) {
	var l *layer.Layer[V]
	err := withFileReader(path, func(reader *protoutils.DelimitedProtoReader) error {
		var err error
		l, err = readHeader[V](reader, path)
		return err
	})
	return l, err
}

// LoadBlocksFromFile adds the blocks of a layer file to l using strategy. The file header
// is checked against l before l is touched. A failing block aborts the load; blocks
// added before it are kept.
func LoadBlocksFromFile[V voxel.Voxel[V]](
	path string,
	strategy layer.MergeStrategy,
	l *layer.Layer[V],
	logger logging.Logger,
) error {
	before := l.NumBlocks()
	err := withFileReader(path, func(reader *protoutils.DelimitedProtoReader) error {
		return readBlocksInto(reader, path, strategy, l)
	})
	if err != nil {
		logger.Errorw("could not load blocks", "path", path, "strategy", strategy, "error", err)
		return err
	}
	logger.Debugw("loaded blocks", "path", path, "strategy", strategy, "new_blocks", l.NumBlocks()-before)
	return nil
}

// SaveLayer writes every block of l to path.
func SaveLayer[V voxel.Voxel[V]](l *layer.Layer[V], path string, logger logging.Logger) error {
	return SaveLayerSubset(l, path, nil, true, logger)
}

// SaveLayerSubset writes the header of l and either all of its blocks (includeAll) or only
// those listed in blocks. Listed blocks that l does not hold are skipped. Blocks are
// written in ascending index order, so equal layers produce equal files.
func SaveLayerSubset[V voxel.Voxel[V]](
	l *layer.Layer[V],
	path string,
	blocks []layer.BlockIndex,
	includeAll bool,
	logger logging.Logger,
) error {
	indices := selectBlocks(l, blocks, includeAll, logger)
	err := withFileWriter(path, func(w io.Writer) error {
		return writeLayer(w, path, l, indices)
	})
	if err != nil {
		logger.Errorw("could not save layer", "path", path, "error", err)
		return err
	}
	logger.Debugw("saved layer", "path", path, "blocks", len(indices))
	return nil
}

func selectBlocks[V voxel.Voxel[V]](
	l *layer.Layer[V],
	blocks []layer.BlockIndex,
	includeAll bool,
	logger logging.Logger,
) []layer.BlockIndex {
	if includeAll {
		return l.BlockIndices()
	}
	requested := slices.Clone(blocks)
	slices.SortFunc(requested, layer.BlockIndex.Compare)
	requested = slices.Compact(requested)

	indices := requested[:0]
	for _, idx := range requested {
		if _, ok := l.Block(idx); !ok {
			logger.Warnw("skipping block that is not in the layer", "block", idx)
			continue
		}
		indices = append(indices, idx)
	}
	return indices
}

// FileInfo summarizes a layer file without decoding its blocks.
type FileInfo struct {
	Header    layer.Header
	NumBlocks int
}

// Stat reads the message count and header of a layer file of any voxel kind.
func Stat(path string) (FileInfo, error) {
	var info FileInfo
	err := withFileReader(path, func(reader *protoutils.DelimitedProtoReader) error {
		s, header, err := openStream(reader, path)
		if err != nil {
			return err
		}
		info = FileInfo{Header: header, NumBlocks: s.remaining()}
		return nil
	})
	return info, err
}

func withFileReader(path string, read func(*protoutils.DelimitedProtoReader) error) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return layer.NewIOError("open", path, err)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	var r io.Reader = f
	if isCompressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return layer.NewIOError("open", path, err)
		}
		defer dec.Close()
		r = dec
	}
	return read(protoutils.NewDelimitedProtoReader(r))
}

// withFileWriter writes to a temporary file next to path and renames it into place once
// everything is flushed and closed.
func withFileWriter(path string, write func(io.Writer) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return layer.NewIOError("create", path, err)
	}
	tmpPath := f.Name()
	defer func() {
		if err != nil {
			utils.UncheckedError(os.Remove(tmpPath))
		}
	}()

	var w io.Writer = f
	var enc *zstd.Encoder
	if isCompressed(path) {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			return multierr.Combine(layer.NewIOError("create", path, err), f.Close())
		}
		w = enc
	}

	err = write(w)
	if enc != nil {
		err = multierr.Combine(err, ioError("write", path, enc.Close()))
	}
	err = multierr.Combine(err, ioError("close", path, f.Close()))
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return layer.NewIOError("rename", path, err)
	}
	return nil
}

func ioError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return layer.NewIOError(op, path, err)
}
