package vm

import (
	"encoding/binary"
	"slices"
)

// Program image layout. All multi-byte fields are big-endian, matching
// the instruction encoding.
//
//	0..4   magic "EPIE"
//	4..8   reserved, zero
//	8..12  data section offset (HeaderLength)
//	12..16 data section length
//	16..20 code section offset == entry address
//	20..24 code section length
//	24..64 reserved, zero
const (
	HeaderLength = 64
)

var headerMagic = [4]byte{'E', 'P', 'I', 'E'}

// Image is the immutable binary artifact produced by assembly. One
// image may be loaded into any number of independent VMs.
type Image struct {
	data  []byte
	code  []byte
	entry uint32
}

// NewImage builds an image from raw section contents. The data slice is
// expected to be padded to a multiple of 4 already (the encoder
// guarantees this).
func NewImage(data, code []byte, entry uint32) *Image {
	return &Image{
		data:  slices.Clone(data),
		code:  slices.Clone(code),
		entry: entry,
	}
}

// Data returns a copy of the data section bytes.
func (img *Image) Data() []byte {
	return slices.Clone(img.data)
}

// Code returns a copy of the code section bytes.
func (img *Image) Code() []byte {
	return slices.Clone(img.code)
}

// Entry is the absolute address of the first code-section byte.
func (img *Image) Entry() uint32 {
	return img.entry
}

// Size is the loaded byte length, header included.
func (img *Image) Size() int {
	return HeaderLength + len(img.data) + len(img.code)
}

// Bytes serializes the image: header, data section, code section.
func (img *Image) Bytes() (out []byte) {
	out = make([]byte, HeaderLength, img.Size())

	copy(out[0:4], headerMagic[:])
	binary.BigEndian.PutUint32(out[8:12], HeaderLength)
	binary.BigEndian.PutUint32(out[12:16], uint32(len(img.data)))
	binary.BigEndian.PutUint32(out[16:20], img.entry)
	binary.BigEndian.PutUint32(out[20:24], uint32(len(img.code)))

	out = append(out, img.data...)
	out = append(out, img.code...)

	return
}

// LoadImage parses a serialized image, validating the magic and the
// section geometry.
func LoadImage(raw []byte) (img *Image, err error) {
	if len(raw) < HeaderLength {
		return nil, ErrTruncated
	}
	if [4]byte(raw[0:4]) != headerMagic {
		return nil, ErrBadMagic
	}

	dataOff := binary.BigEndian.Uint32(raw[8:12])
	dataLen := binary.BigEndian.Uint32(raw[12:16])
	entry := binary.BigEndian.Uint32(raw[16:20])
	codeLen := binary.BigEndian.Uint32(raw[20:24])

	if dataOff != HeaderLength || entry < dataOff+dataLen ||
		codeLen%4 != 0 ||
		uint64(entry)+uint64(codeLen) > uint64(len(raw)) {
		return nil, ErrTruncated
	}

	return &Image{
		data:  slices.Clone(raw[dataOff : dataOff+dataLen]),
		code:  slices.Clone(raw[entry : entry+codeLen]),
		entry: entry,
	}, nil
}

// ListEntry maps one assembled statement to its address range, for
// hosts that want to relate a program counter back to source lines.
type ListEntry struct {
	LineNo int
	Addr   uint32
	Length int
	Source string
}
