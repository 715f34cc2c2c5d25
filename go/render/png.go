package render

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

const (
	colorGray      = 0
	colorRGB       = 2
	colorIndexed   = 3
	colorGrayAlpha = 4
	colorRGBA      = 6
)

var channels = map[uint8]int{
	colorGray:      1,
	colorRGB:       3,
	colorIndexed:   1,
	colorGrayAlpha: 2,
	colorRGBA:      4,
}

var validDepths = map[uint8][]uint8{
	colorGray:      {1, 2, 4, 8, 16},
	colorRGB:       {8, 16},
	colorIndexed:   {1, 2, 4, 8},
	colorGrayAlpha: {8, 16},
	colorRGBA:      {8, 16},
}

// maxPNGBytes caps the inflated image data, filter bytes included.
const maxPNGBytes = 64 << 20

// adam7 lists the start and step of each interlace pass.
var adam7 = [7]struct{ x, y, dx, dy int }{
	{0, 0, 8, 8},
	{4, 0, 8, 8},
	{0, 4, 4, 8},
	{2, 0, 4, 4},
	{0, 2, 2, 4},
	{1, 0, 2, 2},
	{0, 1, 1, 2},
}

// pngImage is a decoded, unfiltered PNG. Rows are byte aligned and stored
// back to back without their filter bytes, in row-major order even when the
// file was interlaced.
type pngImage struct {
	Width, Height uint32
	Depth         uint8
	ColorType     uint8
	Interlaced    bool
	Palette       [][3]byte
	Trns          []byte
	data          []byte
}

func (p *pngImage) bitsPerPixel() int {
	return channels[p.ColorType] * int(p.Depth)
}

func (p *pngImage) rowBytes(width int) int {
	return (width*p.bitsPerPixel() + 7) / 8
}

func (p *pngImage) stride() int {
	return p.rowBytes(int(p.Width))
}

// passSize is the width and height of an interlace pass, which may be empty.
func (p *pngImage) passSize(pass int) (int, int) {
	a := adam7[pass]
	w := (int(p.Width) - a.x + a.dx - 1) / a.dx
	h := (int(p.Height) - a.y + a.dy - 1) / a.dy
	return max(w, 0), max(h, 0)
}

// walkChunks verifies the signature and every CRC, calling cb for each chunk
// until it returns false or IEND is reached.
func walkChunks(data []byte, cb func(typ string, body []byte) (bool, error)) (bool, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return false, errors.New("not a PNG file")
	}
	data = data[len(pngSignature):]
	for {
		if len(data) < 12 {
			return false, errors.New("truncated PNG chunk")
		}
		n := binary.BigEndian.Uint32(data)
		if n > 1<<31-1 || int(n) > len(data)-12 {
			return false, errors.New("truncated PNG chunk")
		}
		typ := string(data[4:8])
		body := data[8 : 8+n]
		if crc32.ChecksumIEEE(data[4:8+n]) != binary.BigEndian.Uint32(data[8+n:]) {
			return false, errors.Errorf("PNG chunk %s has a bad checksum", typ)
		}
		data = data[12+n:]
		more, err := cb(typ, body)
		if err != nil || !more {
			return more, err
		}
		if typ == "IEND" {
			return true, nil
		}
	}
}

func (p *pngImage) parseHeader(body []byte) error {
	if len(body) != 13 {
		return errors.Errorf("IHDR has length %d, expected 13", len(body))
	}
	p.Width = binary.BigEndian.Uint32(body)
	p.Height = binary.BigEndian.Uint32(body[4:])
	p.Depth = body[8]
	p.ColorType = body[9]
	if p.Width == 0 || p.Height == 0 {
		return errors.Errorf("invalid PNG dimensions %dx%d", p.Width, p.Height)
	}
	depths, ok := validDepths[p.ColorType]
	if !ok {
		return errors.Errorf("invalid PNG color type %d", p.ColorType)
	}
	if !bytes.Contains(depths, []byte{p.Depth}) {
		return errors.Errorf("invalid bit depth %d for PNG color type %d", p.Depth, p.ColorType)
	}
	if body[10] != 0 || body[11] != 0 {
		return errors.New("unknown PNG compression or filter method")
	}
	switch body[12] {
	case 0:
	case 1:
		p.Interlaced = true
	default:
		return errors.Errorf("unknown PNG interlace method %d", body[12])
	}
	// the slack covers the filter bytes of interlace passes
	stride := (uint64(p.Width)*uint64(p.bitsPerPixel()) + 7) / 8
	if stride > maxPNGBytes || (stride+8)*uint64(p.Height) > maxPNGBytes {
		return errors.Errorf("PNG dimensions %dx%d exceed the %d byte limit", p.Width, p.Height, maxPNGBytes)
	}
	return nil
}

func decodePNG(data []byte) (*pngImage, error) {
	img := &pngImage{}
	var idat bytes.Buffer
	seenHeader := false
	ended, err := walkChunks(data, func(typ string, body []byte) (bool, error) {
		if !seenHeader {
			if typ != "IHDR" {
				return false, errors.Errorf("expected IHDR as the first chunk, got %s", typ)
			}
			seenHeader = true
			return true, img.parseHeader(body)
		}
		switch typ {
		case "PLTE":
			if len(body)%3 != 0 || len(body) == 0 || len(body)/3 > 256 {
				return false, errors.Errorf("PLTE has invalid length %d", len(body))
			}
			img.Palette = make([][3]byte, len(body)/3)
			for i := range img.Palette {
				copy(img.Palette[i][:], body[3*i:])
			}
		case "tRNS":
			img.Trns = append([]byte(nil), body...)
		case "IDAT":
			idat.Write(body)
		case "IEND":
		default:
			if typ[0]&0x20 == 0 {
				return false, errors.Errorf("unknown critical PNG chunk %s", typ)
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !ended {
		return nil, errors.New("PNG is missing IEND")
	}
	if img.ColorType == colorIndexed && img.Palette == nil {
		return nil, errors.New("indexed PNG is missing PLTE")
	}

	zr, err := zlib.NewReader(&idat)
	if err != nil {
		return nil, errors.Wrap(err, "failed to inflate IDAT")
	}
	defer zr.Close()
	if !img.Interlaced {
		if img.data, err = img.readPass(zr, int(img.Width), int(img.Height)); err != nil {
			return nil, err
		}
		return img, nil
	}
	img.data = make([]byte, img.stride()*int(img.Height))
	for pass := range adam7 {
		w, h := img.passSize(pass)
		if w == 0 || h == 0 {
			continue
		}
		sub, err := img.readPass(zr, w, h)
		if err != nil {
			return nil, errors.Wrapf(err, "interlace pass %d", pass+1)
		}
		img.scatter(pass, sub, w, h)
	}
	return img, nil
}

// readPass inflates and unfilters w by h pixels of scanlines.
func (p *pngImage) readPass(r io.Reader, w, h int) ([]byte, error) {
	stride := p.rowBytes(w)
	raw := make([]byte, (stride+1)*h)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(err, "failed to inflate IDAT")
	}
	return unfilter(raw, stride, max(1, p.bitsPerPixel()/8))
}

// scatter copies the pixels of an interlace pass to their place in data.
func (p *pngImage) scatter(pass int, sub []byte, w, h int) {
	a := adam7[pass]
	stride, subStride := p.stride(), p.rowBytes(w)
	bpp := p.bitsPerPixel()
	for y := 0; y < h; y++ {
		src := sub[y*subStride:]
		dst := p.data[(a.y+y*a.dy)*stride:]
		for x := 0; x < w; x++ {
			dx := a.x + x*a.dx
			if bpp >= 8 {
				n := bpp / 8
				copy(dst[dx*n:dx*n+n], src[x*n:])
			} else {
				setSample(dst, dx, p.Depth, sample(src, x, p.Depth))
			}
		}
	}
}

// unfilter undoes the per-scanline filters in place and strips the filter
// bytes.
func unfilter(raw []byte, stride, bpp int) ([]byte, error) {
	out := make([]byte, 0, len(raw)/(stride+1)*stride)
	prev := make([]byte, stride)
	for row := 0; len(raw) > 0; row++ {
		filter, cur := raw[0], raw[1:stride+1]
		raw = raw[stride+1:]
		switch filter {
		case 0:
		case 1:
			for i := bpp; i < stride; i++ {
				cur[i] += cur[i-bpp]
			}
		case 2:
			for i := range cur {
				cur[i] += prev[i]
			}
		case 3:
			for i := range cur {
				var left byte
				if i >= bpp {
					left = cur[i-bpp]
				}
				cur[i] += byte((int(left) + int(prev[i])) / 2)
			}
		case 4:
			for i := range cur {
				var left, upLeft byte
				if i >= bpp {
					left, upLeft = cur[i-bpp], prev[i-bpp]
				}
				cur[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, errors.Errorf("unknown filter type %d on row %d", filter, row)
		}
		out = append(out, cur...)
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// sample reads the i-th sub-byte sample of a row.
func sample(row []byte, i int, depth uint8) byte {
	perByte := 8 / int(depth)
	shift := 8 - int(depth)*(i%perByte+1)
	return byte(int(row[i/perByte]) >> shift & (1<<int(depth) - 1))
}

func setSample(row []byte, i int, depth uint8, v byte) {
	perByte := 8 / int(depth)
	shift := 8 - int(depth)*(i%perByte+1)
	row[i/perByte] |= v << shift
}

// normalize expands the image into RGBA8 pixels.
func (p *pngImage) normalize(dst [][4]byte) error {
	w, h := int(p.Width), int(p.Height)
	if len(dst) != w*h {
		return errors.Errorf("upload buffer holds %d pixels, image has %d", len(dst), w*h)
	}
	if p.Depth == 16 {
		return errors.Errorf("found unsupported bit depth `%d`, only a bit depth of up to `8` is supported", p.Depth)
	}
	stride := p.stride()
	if len(p.data) != stride*h {
		return errors.Errorf("image data holds %d bytes, expected %d", len(p.data), stride*h)
	}

	switch p.ColorType {
	case colorRGBA:
		for i := range dst {
			copy(dst[i][:], p.data[4*i:])
		}
	case colorGrayAlpha:
		for i := range dst {
			l, a := p.data[2*i], p.data[2*i+1]
			dst[i] = [4]byte{l, l, l, a}
		}
	case colorRGB:
		var key []byte
		if p.Trns != nil {
			if len(p.Trns) != 6 {
				return errors.Errorf("tRNS for an RGB image has length %d, expected 6", len(p.Trns))
			}
			key = p.Trns
		}
		for i := range dst {
			r, g, b := p.data[3*i], p.data[3*i+1], p.data[3*i+2]
			a := byte(255)
			if key != nil &&
				binary.BigEndian.Uint16(key) == uint16(r) &&
				binary.BigEndian.Uint16(key[2:]) == uint16(g) &&
				binary.BigEndian.Uint16(key[4:]) == uint16(b) {
				a = 0
			}
			dst[i] = [4]byte{r, g, b, a}
		}
	case colorGray:
		key := -1
		if p.Trns != nil {
			if len(p.Trns) != 2 {
				return errors.Errorf("tRNS for a grayscale image has length %d, expected 2", len(p.Trns))
			}
			key = int(binary.BigEndian.Uint16(p.Trns))
		}
		scale := 255 / (1<<int(p.Depth) - 1)
		for y := 0; y < h; y++ {
			row := p.data[y*stride:]
			for x := 0; x < w; x++ {
				s := sample(row, x, p.Depth)
				l := s * byte(scale)
				a := byte(255)
				if int(s) == key {
					a = 0
				}
				dst[y*w+x] = [4]byte{l, l, l, a}
			}
		}
	case colorIndexed:
		for y := 0; y < h; y++ {
			row := p.data[y*stride:]
			for x := 0; x < w; x++ {
				idx := int(sample(row, x, p.Depth))
				if idx >= len(p.Palette) {
					return errors.Errorf("palette index %d out of range (palette has %d entries)", idx, len(p.Palette))
				}
				c := p.Palette[idx]
				a := byte(255)
				if idx < len(p.Trns) {
					a = p.Trns[idx]
				}
				dst[y*w+x] = [4]byte{c[0], c[1], c[2], a}
			}
		}
	}
	return nil
}
