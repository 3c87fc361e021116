package samples

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSamples(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoad_Int8(t *testing.T) {
	path := writeSamples(t, []byte{0x01, 0xFF, 0x7F, 0x80, 0x03})

	got, err := Load(path, 4, 0, FormatInt8)
	require.NoError(t, err)
	assert.Equal(t, []int8{1, -1, 127, -128}, got)
}

func TestLoad_Offset(t *testing.T) {
	path := writeSamples(t, []byte{9, 9, 9, 1, 2, 3})

	got, err := Load(path, 3, 3, FormatInt8)
	require.NoError(t, err)
	assert.Equal(t, []int8{1, 2, 3}, got)
}

func TestLoad_OneBit(t *testing.T) {
	path := writeSamples(t, []byte{0xB0, 0x01})

	msb, err := Load(path, 10, 0, Format1Bit)
	require.NoError(t, err)
	assert.Equal(t, []int8{1, -1, 1, 1, -1, -1, -1, -1, -1, -1}, msb)

	lsb, err := Load(path, 9, 0, Format1BitRev)
	require.NoError(t, err)
	assert.Equal(t, []int8{-1, -1, -1, -1, 1, 1, -1, 1, 1}, lsb)
}

func TestLoad_ShortRead(t *testing.T) {
	path := writeSamples(t, []byte{1, 2})

	got, err := Load(path, 5, 0, FormatInt8)
	assert.ErrorIs(t, err, ErrShortRead)
	assert.Equal(t, []int8{1, 2}, got)

	got, err = Load(path, 5, 10, FormatInt8)
	assert.ErrorIs(t, err, ErrShortRead)
	assert.Empty(t, got)
}

func TestLoad_UnknownFormat(t *testing.T) {
	_, err := Load("/does/not/matter", 1, 0, "piksi")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.bin"), 1, 0, FormatInt8)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_FileReleased(t *testing.T) {
	path := writeSamples(t, []byte{1, 2, 3, 4})
	_, err := Load(path, 4, 0, FormatInt8)
	require.NoError(t, err)

	// the handle is closed so the file can be removed and recreated
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.WriteFile(path, []byte{5}, 0644))
	got, err := Load(path, 1, 0, FormatInt8)
	require.NoError(t, err)
	assert.Equal(t, []int8{5}, got)
}

func TestLoad_ZeroCount(t *testing.T) {
	got, err := Load("/does/not/matter", 0, 0, FormatInt8)
	require.NoError(t, err)
	assert.Empty(t, got)
}
