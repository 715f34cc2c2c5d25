// Package nbt walks uncompressed Named Binary Tag data without building a
// tree, and decodes the block compounds found in structure files and chunk
// section palettes.
package nbt

import (
	"bytes"
	"encoding/binary"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

type Type int

const (
	TagEnd Type = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

var tagNames = []string{"end", "byte", "short", "int", "long", "float", "double",
	"byte_array", "string", "list", "compound", "int_array", "long_array"}

func (t Type) String() string {
	if t < 0 {
		return "list of " + (-t).String()
	}
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "tag(" + strconv.Itoa(int(t)) + ")"
}

// sizes of the fixed-width payloads
var fixedSize = map[Type]int{
	TagByte:   1,
	TagShort:  2,
	TagInt:    4,
	TagLong:   8,
	TagFloat:  4,
	TagDouble: 8,
}

const maxDepth = 512

var ErrTruncated = errors.New("truncated nbt data")

// Visitor receives every tag in document order. path holds the names of the
// enclosing tags below the root (list elements are named by their index),
// and idxes holds the element index of every enclosing list.
//
// Lists of fixed-width numbers and lists of strings are not descended into:
// they are reported once with ty set to the negated element type and value
// set to the raw concatenated payload. Other lists are reported as TagList
// with a nil value before their elements.
//
// path, idxes and value alias internal buffers and the input, and are only
// valid until the callback returns.
type Visitor func(path []string, idxes []int, ty Type, value []byte)

type walker struct {
	buf   []byte
	o     int
	path  []string
	idxes []int
	cb    Visitor
}

// Walk is a stream-oriented zero-copy nbt parser. The buffer must hold an
// uncompressed root compound; see Inflate for compressed files.
func Walk(buf []byte, cb Visitor) error {
	w := &walker{buf: buf, cb: cb}
	tb, err := w.take(1)
	if err != nil {
		return err
	}
	if Type(tb[0]) != TagCompound {
		return errors.Errorf("root tag must be a compound, got %s", Type(tb[0]))
	}
	if _, err := w.str(); err != nil {
		return err
	}
	w.cb(nil, nil, TagCompound, nil)
	return w.compound(1)
}

func (w *walker) take(n int) ([]byte, error) {
	if n < 0 || len(w.buf)-w.o < n {
		return nil, errors.Wrapf(ErrTruncated, "need %d bytes at offset %d of %d", n, w.o, len(w.buf))
	}
	b := w.buf[w.o : w.o+n]
	w.o += n
	return b, nil
}

func (w *walker) str() ([]byte, error) {
	lb, err := w.take(2)
	if err != nil {
		return nil, err
	}
	return w.take(int(binary.BigEndian.Uint16(lb)))
}

func (w *walker) length() (int, error) {
	lb, err := w.take(4)
	if err != nil {
		return 0, err
	}
	n := int32(binary.BigEndian.Uint32(lb))
	if n < 0 {
		return 0, errors.Errorf("negative length %d at %s", n, w.jpath())
	}
	return int(n), nil
}

func (w *walker) jpath() string {
	if len(w.path) == 0 {
		return "<root>"
	}
	return strings.Join(w.path, ".")
}

func (w *walker) compound(depth int) error {
	if depth > maxDepth {
		return errors.Errorf("nbt nested deeper than %d at %s", maxDepth, w.jpath())
	}
	for {
		tb, err := w.take(1)
		if err != nil {
			return err
		}
		ty := Type(tb[0])
		if ty == TagEnd {
			return nil
		}
		name, err := w.str()
		if err != nil {
			return err
		}
		w.path = append(w.path, string(name))
		if err := w.payload(ty, depth); err != nil {
			return err
		}
		w.path = w.path[:len(w.path)-1]
	}
}

func (w *walker) payload(ty Type, depth int) error {
	if size, ok := fixedSize[ty]; ok {
		value, err := w.take(size)
		if err != nil {
			return err
		}
		w.cb(w.path, w.idxes, ty, value)
		return nil
	}
	switch ty {
	case TagCompound:
		w.cb(w.path, w.idxes, ty, nil)
		return w.compound(depth + 1)
	case TagString:
		value, err := w.str()
		if err != nil {
			return err
		}
		w.cb(w.path, w.idxes, ty, value)
	case TagByteArray, TagIntArray, TagLongArray:
		n, err := w.length()
		if err != nil {
			return err
		}
		width := map[Type]int{TagByteArray: 1, TagIntArray: 4, TagLongArray: 8}[ty]
		value, err := w.take(n * width)
		if err != nil {
			return err
		}
		w.cb(w.path, w.idxes, ty, value)
	case TagList:
		return w.list(depth)
	default:
		return errors.Errorf("unhandled nbt tag type: %d at %s", ty, w.jpath())
	}
	return nil
}

func (w *walker) list(depth int) error {
	tb, err := w.take(1)
	if err != nil {
		return err
	}
	lty := Type(tb[0])
	n, err := w.length()
	if err != nil {
		return err
	}
	if size, ok := fixedSize[lty]; ok {
		value, err := w.take(n * size)
		if err != nil {
			return err
		}
		w.cb(w.path, w.idxes, -lty, value)
		return nil
	}
	switch {
	case n == 0:
		// empty lists are often typed TagEnd
		w.cb(w.path, w.idxes, TagList, nil)
		return nil
	case lty == TagString:
		// e.g. the pages of a book
		start := w.o
		for i := 0; i < n; i++ {
			if _, err := w.str(); err != nil {
				return err
			}
		}
		w.cb(w.path, w.idxes, -lty, w.buf[start:w.o])
		return nil
	case lty == TagEnd || lty > TagLongArray:
		return errors.Errorf("unhandled TAG_List type: %d at %s (len %d)", lty, w.jpath(), n)
	}
	if depth+1 > maxDepth {
		return errors.Errorf("nbt nested deeper than %d at %s", maxDepth, w.jpath())
	}
	w.cb(w.path, w.idxes, TagList, nil)
	for i := 0; i < n; i++ {
		w.path = append(w.path, strconv.Itoa(i))
		w.idxes = append(w.idxes, i)
		if err := w.payload(lty, depth+1); err != nil {
			return err
		}
		w.path = w.path[:len(w.path)-1]
		w.idxes = w.idxes[:len(w.idxes)-1]
	}
	return nil
}

// Inflate returns the uncompressed form of an nbt file. Structure files are
// gzipped and region chunks are zlib streams; anything else is returned as is.
func Inflate(buf []byte) ([]byte, error) {
	var r io.Reader
	var err error
	switch {
	case len(buf) >= 2 && buf[0] == 0x1f && buf[1] == 0x8b:
		r, err = gzip.NewReader(bytes.NewReader(buf))
	case len(buf) >= 2 && buf[0] == 0x78 && (uint16(buf[0])<<8|uint16(buf[1]))%31 == 0:
		r, err = zlib.NewReader(bytes.NewReader(buf))
	default:
		return buf, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to open compressed nbt")
	}
	out, err := io.ReadAll(r)
	return out, errors.Wrap(err, "unable to inflate nbt")
}
