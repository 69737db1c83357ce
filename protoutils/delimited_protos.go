// Package protoutils frames protobuf messages on a byte stream.
//
// A stream starts with the number of messages it holds as a little-endian uint32,
// followed by each message prefixed by its size in bytes as a varint, matching
// protobuf's own delimited encoding.
package protoutils

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"iter"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// 2 GiB, as defined by the protobuf spec.
const protoMaxBytes = 1024 * 1024 * 1024 * 2

var (
	// ErrTruncated is returned when the stream ends inside a count, size or message.
	ErrTruncated = errors.New("delimited stream is truncated")
	// ErrMalformed is returned for an unparsable size varint or an oversized message.
	ErrMalformed = errors.New("delimited stream is malformed")
)

// DelimitedProtoWriter writes a message count and length-prefixed messages to an
// [io.Writer]. See also: [DelimitedProtoReader].
type DelimitedProtoWriter struct {
	writer *bufio.Writer
	closer io.Closer
}

// NewDelimitedProtoWriter creates a [DelimitedProtoWriter]. Writes are buffered until Flush or Close.
func NewDelimitedProtoWriter(writer io.Writer) *DelimitedProtoWriter {
	closer, _ := writer.(io.Closer)
	return &DelimitedProtoWriter{writer: bufio.NewWriter(writer), closer: closer}
}

// WriteCount writes the leading message count. It must be called once, before any Append.
func (o *DelimitedProtoWriter) WriteCount(count uint32) error {
	_, err := o.writer.Write(binary.LittleEndian.AppendUint32(nil, count))
	return err
}

// Append writes one encoded message prefixed by its size.
func (o *DelimitedProtoWriter) Append(message []byte) error {
	if len(message) > protoMaxBytes {
		return errors.Errorf("message of %d bytes exceeds the protobuf limit", len(message))
	}
	if _, err := o.writer.Write(protowire.AppendVarint(nil, uint64(len(message)))); err != nil {
		return err
	}
	_, err := o.writer.Write(message)
	return err
}

// Flush writes any buffered data to the underlying [io.Writer].
func (o *DelimitedProtoWriter) Flush() error {
	return o.writer.Flush()
}

// Close flushes and closes the underlying writer if it is an [io.Closer].
func (o *DelimitedProtoWriter) Close() error {
	if err := o.Flush(); err != nil {
		return err
	}
	if o.closer != nil {
		return o.closer.Close()
	}
	return nil
}

// DelimitedProtoReader reads streams created by [DelimitedProtoWriter] and returns
// the encoded messages as byte slices.
type DelimitedProtoReader struct {
	reader *bufio.Reader
	closer io.Closer
}

// NewDelimitedProtoReader creates a [DelimitedProtoReader].
func NewDelimitedProtoReader(reader io.Reader) *DelimitedProtoReader {
	closer, _ := reader.(io.Closer)
	return &DelimitedProtoReader{reader: bufio.NewReader(reader), closer: closer}
}

// Close will close the underlying reader if it is a [io.Closer]. Otherwise it
// is a noop.
func (o *DelimitedProtoReader) Close() error {
	if o.closer != nil {
		return o.closer.Close()
	}
	return nil
}

// ReadCount reads the leading message count. An empty stream returns [io.EOF].
func (o *DelimitedProtoReader) ReadCount() (uint32, error) {
	var countBytes [4]byte
	n, err := io.ReadFull(o.reader, countBytes[:])
	switch {
	case n == 0 && errors.Is(err, io.EOF):
		return 0, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return 0, ErrTruncated
	case err != nil:
		return 0, err
	}
	return binary.LittleEndian.Uint32(countBytes[:]), nil
}

// Next reads the next message. The returned slice is owned by the caller.
func (o *DelimitedProtoReader) Next() ([]byte, error) {
	size, err := o.readVarint()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	if size > protoMaxBytes {
		return nil, errors.Wrapf(ErrMalformed, "message size %d exceeds the protobuf limit", size)
	}
	// the buffer grows with the bytes actually read so a corrupt size cannot force a large allocation
	var message bytes.Buffer
	if _, err := io.CopyN(&message, o.reader, int64(size)); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return message.Bytes(), nil
}

// Messages returns an [iter.Seq2] over the next count messages. Iteration stops
// after the first error, which is yielded alongside a nil message.
func (o *DelimitedProtoReader) Messages(count int) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for i := 0; i < count; i++ {
			message, err := o.Next()
			if !yield(message, err) || err != nil {
				return
			}
		}
	}
}

func (o *DelimitedProtoReader) readVarint() (uint64, error) {
	var buf [binary.MaxVarintLen64]byte
	for i := range buf {
		b, err := o.reader.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if i == 0 {
					return 0, io.EOF
				}
				return 0, ErrTruncated
			}
			return 0, err
		}
		buf[i] = b
		if b < 0x80 {
			v, n := protowire.ConsumeVarint(buf[:i+1])
			if n < 0 {
				return 0, errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
			}
			return v, nil
		}
	}
	return 0, errors.Wrap(ErrMalformed, "varint longer than 10 bytes")
}
