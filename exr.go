package zsmooth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ajroetker/go-highway/hwy"
	"github.com/ajroetker/go-highway/hwy/contrib/vec"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

const exrMagic = 20000630

// maxDeflateRatio bounds how much a zlib stream can expand.
const maxDeflateRatio = 1032

// Compression selects the OpenEXR block compression.
type Compression byte

const (
	CompressionNone Compression = 0
	CompressionZips Compression = 2
	CompressionZip  Compression = 3
)

// ParseCompression maps "none", "zips" or "zip" to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return CompressionNone, nil
	case "zips":
		return CompressionZips, nil
	case "zip":
		return CompressionZip, nil
	}
	return 0, fmt.Errorf("unknown EXR compression %q", s)
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZips:
		return "zips"
	case CompressionZip:
		return "zip"
	}
	return fmt.Sprintf("compression(%d)", byte(c))
}

func (c Compression) linesPerBlock() int {
	if c == CompressionZip {
		return 16
	}
	return 1
}

const (
	exrPixelUint  = 0
	exrPixelHalf  = 1
	exrPixelFloat = 2
)

const (
	exrChanOther = iota
	exrChanY
	exrChanR
	exrChanG
	exrChanB
)

type exrChannel struct {
	name      string
	pixelType int32
	xSampling int32
	ySampling int32
	role      int
}

func (ch exrChannel) bytesPerPixel() int {
	if ch.pixelType == exrPixelHalf {
		return 2
	}
	return 4
}

// DecodeEXR decodes a scanline OpenEXR image into a single channel.
// The Y channel is used when present, otherwise Rec. 709 luminance of R, G and B.
func DecodeEXR(data []byte) (*Image, error) {
	r := bytes.NewReader(data)
	magic, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if magic != exrMagic {
		return nil, errors.New("not an OpenEXR file")
	}
	version, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if version&0x00000200 != 0 {
		return nil, errors.New("tiled OpenEXR not supported")
	}
	if version&0x00000800 != 0 {
		return nil, errors.New("multipart OpenEXR not supported")
	}
	if version&0x00000400 != 0 {
		return nil, errors.New("deep OpenEXR not supported")
	}

	var channels []exrChannel
	var dataWindow [4]int32
	var hasDataWindow bool
	compression := CompressionNone

	for {
		name, err := readNullString(r)
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		typ, err := readNullString(r)
		if err != nil {
			return nil, err
		}
		size, err := readI32(r)
		if err != nil {
			return nil, err
		}
		if size < 0 || int64(size) > int64(r.Len()) {
			return nil, errors.New("invalid EXR attribute size")
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}

		switch name {
		case "channels":
			if typ != "chlist" {
				return nil, errors.New("unexpected channels attribute type")
			}
			ch, err := parseEXRChannels(payload)
			if err != nil {
				return nil, err
			}
			channels = ch
		case "dataWindow":
			if typ != "box2i" || len(payload) != 16 {
				return nil, errors.New("invalid dataWindow attribute")
			}
			for i := range dataWindow {
				dataWindow[i] = int32(binary.LittleEndian.Uint32(payload[i*4:]))
			}
			hasDataWindow = true
		case "compression":
			if typ != "compression" || len(payload) < 1 {
				return nil, errors.New("invalid compression attribute")
			}
			compression = Compression(payload[0])
		case "tiles":
			return nil, errors.New("tiled OpenEXR not supported")
		}
	}

	if len(channels) == 0 {
		return nil, errors.New("OpenEXR missing channels")
	}
	if !hasDataWindow {
		return nil, errors.New("OpenEXR missing dataWindow")
	}
	for _, ch := range channels {
		if ch.xSampling != 1 || ch.ySampling != 1 {
			return nil, errors.New("OpenEXR subsampled channels are not supported")
		}
	}
	if compression != CompressionNone && compression != CompressionZips && compression != CompressionZip {
		return nil, fmt.Errorf("unsupported OpenEXR compression %d", compression)
	}
	planes, err := exrPlaneRoles(channels)
	if err != nil {
		return nil, err
	}

	width64 := int64(dataWindow[2]) - int64(dataWindow[0]) + 1
	height64 := int64(dataWindow[3]) - int64(dataWindow[1]) + 1
	if width64 <= 0 || height64 <= 0 {
		return nil, errors.New("invalid OpenEXR dimensions")
	}

	// Reject headers that promise more pixels than the file could possibly hold.
	pixelBytes := int64(exrExpectedBlockBytes(1, 1, channels))
	maxRatio := int64(1)
	if compression != CompressionNone {
		maxRatio = maxDeflateRatio
	}
	if width64*height64 > int64(len(data))*maxRatio/pixelBytes {
		return nil, fmt.Errorf("OpenEXR dimensions %dx%d exceed file size", width64, height64)
	}
	width, height := int(width64), int(height64)

	blockLines := compression.linesPerBlock()
	blockCount := (height + blockLines - 1) / blockLines
	if int64(blockCount)*8 > int64(r.Len()) {
		return nil, errors.New("OpenEXR offset table truncated")
	}
	offsets := make([]uint64, blockCount)
	for i := range offsets {
		v, err := readU64(r)
		if err != nil {
			return nil, err
		}
		offsets[i] = v
	}
	chunksStart := uint64(len(data) - r.Len())
	for _, off := range offsets {
		if off < chunksStart || off+8 > uint64(len(data)) {
			return nil, fmt.Errorf("invalid OpenEXR chunk offset %d", off)
		}
	}

	dec := &exrPlanes{w: width, h: height, planes: make(map[int][]float32, len(planes))}
	for _, role := range planes {
		dec.planes[role] = make([]float32, width*height)
	}

	covered := make([]bool, blockCount)
	baseY := int64(dataWindow[1])
	for block := 0; block < blockCount; block++ {
		if _, err := r.Seek(int64(offsets[block]), io.SeekStart); err != nil {
			return nil, err
		}
		y, err := readI32(r)
		if err != nil {
			return nil, err
		}
		dataSize, err := readI32(r)
		if err != nil {
			return nil, err
		}
		if dataSize < 0 || int64(dataSize) > int64(r.Len()) {
			return nil, errors.New("invalid OpenEXR block size")
		}
		raw := make([]byte, dataSize)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, err
		}

		startY64 := int64(y) - baseY
		if startY64 < 0 || startY64 >= height64 || startY64%int64(blockLines) != 0 {
			return nil, errors.New("OpenEXR scanline out of bounds")
		}
		startY := int(startY64)
		// Every block must be stored exactly once, so no scanline is left unset.
		if covered[startY/blockLines] {
			return nil, fmt.Errorf("OpenEXR scanline block %d stored twice", startY)
		}
		covered[startY/blockLines] = true

		lines := blockLines
		if startY+lines > height {
			lines = height - startY
		}

		expected := exrExpectedBlockBytes(width, lines, channels)
		unpacked, err := exrDecompress(compression, raw, expected)
		if err != nil {
			return nil, err
		}

		if err := dec.decodeBlock(channels, startY, lines, unpacked); err != nil {
			return nil, err
		}
	}
	return dec.luminance()
}

func parseEXRChannels(data []byte) ([]exrChannel, error) {
	r := bytes.NewReader(data)
	var channels []exrChannel
	for {
		name, err := readNullString(r)
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		pixelType, err := readI32(r)
		if err != nil {
			return nil, err
		}
		if pixelType != exrPixelHalf && pixelType != exrPixelFloat && pixelType != exrPixelUint {
			return nil, fmt.Errorf("unsupported OpenEXR pixel type %d", pixelType)
		}
		// pLinear and three reserved bytes.
		if _, err := r.Seek(4, io.SeekCurrent); err != nil {
			return nil, err
		}
		xSampling, err := readI32(r)
		if err != nil {
			return nil, err
		}
		ySampling, err := readI32(r)
		if err != nil {
			return nil, err
		}
		role := exrChanOther
		switch strings.ToUpper(name) {
		case "Y":
			role = exrChanY
		case "R":
			role = exrChanR
		case "G":
			role = exrChanG
		case "B":
			role = exrChanB
		}
		channels = append(channels, exrChannel{
			name:      name,
			pixelType: pixelType,
			xSampling: xSampling,
			ySampling: ySampling,
			role:      role,
		})
	}
	return channels, nil
}

func exrPlaneRoles(channels []exrChannel) ([]int, error) {
	var hasY, hasR, hasG, hasB bool
	for _, ch := range channels {
		switch ch.role {
		case exrChanY:
			hasY = true
		case exrChanR:
			hasR = true
		case exrChanG:
			hasG = true
		case exrChanB:
			hasB = true
		}
	}
	switch {
	case hasY:
		return []int{exrChanY}, nil
	case hasR && hasG && hasB:
		return []int{exrChanR, exrChanG, exrChanB}, nil
	}
	return nil, errors.New("OpenEXR missing Y or R/G/B channels")
}

func exrExpectedBlockBytes(width, lines int, channels []exrChannel) int {
	total := 0
	for _, ch := range channels {
		total += width * lines * ch.bytesPerPixel()
	}
	return total
}

func exrDecompress(compression Compression, data []byte, expected int) ([]byte, error) {
	if compression == CompressionNone || len(data) == expected {
		// Writers store a block raw when compression does not shrink it.
		if expected > 0 && len(data) != expected {
			return nil, errors.New("unexpected OpenEXR block size")
		}
		return data, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "OpenEXR block")
	}
	defer zr.Close()
	uncompressed, err := io.ReadAll(io.LimitReader(zr, int64(expected)+1))
	if err != nil {
		return nil, errors.Wrap(err, "OpenEXR block")
	}
	if expected > 0 && len(uncompressed) != expected {
		return nil, errors.New("unexpected OpenEXR decompressed size")
	}
	undoPredictor(uncompressed)
	return unshuffleBytes(uncompressed), nil
}

func undoPredictor(data []byte) {
	for i := 1; i < len(data); i++ {
		data[i] = byte(int(data[i]) + int(data[i-1]) - 128)
	}
}

func applyPredictor(data []byte) {
	prev := data[0]
	for i := 1; i < len(data); i++ {
		cur := data[i]
		data[i] = byte(int(cur) - int(prev) + 128)
		prev = cur
	}
}

// unshuffleBytes interleaves the two halves produced by shuffleBytes.
func unshuffleBytes(data []byte) []byte {
	half := (len(data) + 1) / 2
	out := make([]byte, len(data))
	for i := range out {
		if i%2 == 0 {
			out[i] = data[i/2]
		} else {
			out[i] = data[half+i/2]
		}
	}
	return out
}

// shuffleBytes moves even bytes to the first half and odd bytes to the second.
func shuffleBytes(data []byte) []byte {
	half := (len(data) + 1) / 2
	out := make([]byte, len(data))
	for i, b := range data {
		if i%2 == 0 {
			out[i/2] = b
		} else {
			out[half+i/2] = b
		}
	}
	return out
}

type exrPlanes struct {
	w, h   int
	planes map[int][]float32
}

func (p *exrPlanes) decodeBlock(channels []exrChannel, startY, lines int, data []byte) error {
	offset := 0
	for row := 0; row < lines; row++ {
		y := startY + row
		for _, ch := range channels {
			lineBytes := p.w * ch.bytesPerPixel()
			if offset+lineBytes > len(data) {
				return errors.New("OpenEXR block truncated")
			}
			line := data[offset : offset+lineBytes]
			offset += lineBytes

			plane, ok := p.planes[ch.role]
			if !ok {
				continue
			}
			exrDecodeLine(plane[y*p.w:(y+1)*p.w], ch.pixelType, line)
		}
	}
	return nil
}

func exrDecodeLine(dst []float32, pixelType int32, line []byte) {
	switch pixelType {
	case exrPixelHalf:
		for x := range dst {
			dst[x] = hwy.Float16ToFloat32(hwy.Float16(binary.LittleEndian.Uint16(line[x*2:])))
		}
	case exrPixelFloat:
		vec.DecodeFloat32s(dst, line)
	case exrPixelUint:
		for x := range dst {
			dst[x] = float32(binary.LittleEndian.Uint32(line[x*4:]))
		}
	}
}

func (p *exrPlanes) luminance() (*Image, error) {
	out := NewImage(p.w, p.h)
	if y, ok := p.planes[exrChanY]; ok {
		copy(out.Pix, y)
	} else {
		r, g, b := p.planes[exrChanR], p.planes[exrChanG], p.planes[exrChanB]
		for i := range out.Pix {
			out.Pix[i] = lumaR709*r[i] + lumaG709*g[i] + lumaB709*b[i]
		}
	}
	for _, v := range out.Pix {
		if !finite(float64(v)) {
			return nil, errors.New("OpenEXR contains non-finite samples")
		}
	}
	return out, nil
}

// EncodeEXR writes img as a single-channel FLOAT scanline OpenEXR image with a Y channel.
func EncodeEXR(w io.Writer, img *Image, compression Compression) error {
	if img.empty() {
		return ErrEmptyImage
	}
	if compression != CompressionNone && compression != CompressionZips && compression != CompressionZip {
		return fmt.Errorf("unsupported OpenEXR compression %d", compression)
	}

	var header bytes.Buffer
	writeU32(&header, exrMagic)
	writeU32(&header, 2)

	var chlist bytes.Buffer
	chlist.WriteString("Y\x00")
	writeU32(&chlist, exrPixelFloat)
	chlist.Write([]byte{0, 0, 0, 0})
	writeU32(&chlist, 1)
	writeU32(&chlist, 1)
	chlist.WriteByte(0)
	writeAttribute(&header, "channels", "chlist", chlist.Bytes())

	writeAttribute(&header, "compression", "compression", []byte{byte(compression)})

	var box bytes.Buffer
	for _, v := range []int32{0, 0, int32(img.W - 1), int32(img.H - 1)} {
		writeU32(&box, uint32(v))
	}
	writeAttribute(&header, "dataWindow", "box2i", box.Bytes())
	writeAttribute(&header, "displayWindow", "box2i", box.Bytes())
	writeAttribute(&header, "lineOrder", "lineOrder", []byte{0})
	writeAttribute(&header, "pixelAspectRatio", "float", f32bytes(1))
	writeAttribute(&header, "screenWindowCenter", "v2f", append(f32bytes(0), f32bytes(0)...))
	writeAttribute(&header, "screenWindowWidth", "float", f32bytes(1))
	header.WriteByte(0)

	blockLines := compression.linesPerBlock()
	blockCount := (img.H + blockLines - 1) / blockLines
	blocks := make([][]byte, blockCount)
	for i := range blocks {
		startY := i * blockLines
		endY := min(startY+blockLines, img.H)
		raw := make([]byte, (endY-startY)*img.W*4)
		vec.EncodeFloat32s(raw, img.Pix[startY*img.W:endY*img.W])
		packed, err := exrCompress(compression, raw)
		if err != nil {
			return err
		}
		blocks[i] = packed
	}

	offset := uint64(header.Len() + 8*blockCount)
	for _, b := range blocks {
		writeU64(&header, offset)
		offset += uint64(8 + len(b))
	}
	if _, err := w.Write(header.Bytes()); err != nil {
		return errors.WithStack(err)
	}

	var chunk [8]byte
	for i, b := range blocks {
		binary.LittleEndian.PutUint32(chunk[0:4], uint32(i*blockLines))
		binary.LittleEndian.PutUint32(chunk[4:8], uint32(len(b)))
		if _, err := w.Write(chunk[:]); err != nil {
			return errors.WithStack(err)
		}
		if _, err := w.Write(b); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func exrCompress(compression Compression, raw []byte) ([]byte, error) {
	if compression == CompressionNone {
		return raw, nil
	}
	shuffled := shuffleBytes(raw)
	applyPredictor(shuffled)

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if _, err := zw.Write(shuffled); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := zw.Close(); err != nil {
		return nil, errors.WithStack(err)
	}
	if buf.Len() >= len(raw) {
		return raw, nil
	}
	return buf.Bytes(), nil
}

func writeAttribute(buf *bytes.Buffer, name, typ string, value []byte) {
	buf.WriteString(name)
	buf.WriteByte(0)
	buf.WriteString(typ)
	buf.WriteByte(0)
	writeU32(buf, uint32(len(value)))
	buf.Write(value)
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func f32bytes(v float32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	return b[:]
}

func readNullString(r *bytes.Reader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readI32(r *bytes.Reader) (int32, error) {
	v, err := readU32(r)
	return int32(v), err
}
