package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageBytes(t *testing.T) {
	assert := assert.New(t)

	word := MakeCodeRegVal(LDB, ModeImmediate, 0, 'X').Bytes()
	img := NewImage([]byte{1, 2, 3, 4}, word[:], HeaderLength+4)

	raw := img.Bytes()
	assert.Equal(HeaderLength+8, len(raw))
	assert.Equal([]byte{'E', 'P', 'I', 'E'}, raw[0:4])
	assert.Equal([]byte{0, 0, 0, HeaderLength}, raw[8:12])
	assert.Equal([]byte{0, 0, 0, 4}, raw[12:16])
	assert.Equal([]byte{0, 0, 0, HeaderLength + 4}, raw[16:20])
	assert.Equal([]byte{0, 0, 0, 4}, raw[20:24])
	assert.Equal([]byte{1, 2, 3, 4}, raw[64:68])
	assert.Equal(word[:], raw[68:72])
}

func TestImageRoundTrip(t *testing.T) {
	assert := assert.New(t)

	img := mustAssemble(t, []string{
		".data",
		"msg: .asciiz \"roundtrip\"",
		".code",
		"prtsd @msg",
		"hlt",
	})

	loaded, err := LoadImage(img.Bytes())
	assert.NoError(err)
	assert.Equal(img.Entry(), loaded.Entry())
	assert.Equal(img.Data(), loaded.Data())
	assert.Equal(img.Code(), loaded.Code())
	assert.Equal(img.Bytes(), loaded.Bytes())
}

func TestLoadImageErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := LoadImage([]byte("EPIE"))
	assert.ErrorIs(err, ErrTruncated)

	raw := NewImage(nil, nil, HeaderLength).Bytes()
	raw[0] = 'X'
	_, err = LoadImage(raw)
	assert.ErrorIs(err, ErrBadMagic)

	// Code length not a multiple of the instruction width.
	word := MakeCodeAddr(HLT, ModeImmediate, 0).Bytes()
	raw = NewImage(nil, word[:], HeaderLength).Bytes()
	raw[23] = 3
	_, err = LoadImage(raw)
	assert.ErrorIs(err, ErrTruncated)

	// Entry inside the data section.
	raw = NewImage([]byte{0, 0, 0, 0}, word[:], HeaderLength+4).Bytes()
	raw[19] = HeaderLength
	_, err = LoadImage(raw)
	assert.ErrorIs(err, ErrTruncated)

	// Code section runs past the buffer.
	raw = NewImage(nil, word[:], HeaderLength).Bytes()
	_, err = LoadImage(raw[:len(raw)-1])
	assert.ErrorIs(err, ErrTruncated)
}

func TestLoadImageRuns(t *testing.T) {
	assert := assert.New(t)

	img := mustAssemble(t, []string{
		".code",
		"ldbi $4, 44",
		"hlt",
	})

	loaded, err := LoadImage(img.Bytes())
	assert.NoError(err)

	state := Run(loaded, 0)
	assert.True(state.Halted)
	assert.Equal(int32(44), state.Registers[4])
}
