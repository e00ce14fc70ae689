// Package wii provides console disc image reading functionality.
package wii

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hansbonini/wiifs/pkg/common"
)

// discTitleSize is the length of the title field following the magic words
const discTitleSize = 0x40

// Volume is the mounted disc as seen by HLE devices
type Volume interface {
	IsValid() bool
	// ReadRaw fills buf from the raw disc offset
	ReadRaw(offset uint64, buf []byte) error
	// Read32 reads a big-endian word at offset
	Read32(offset uint64) (uint32, error)
}

// DiscHeader is the decoded boot header of a disc image
type DiscHeader struct {
	GameID    [6]byte // Game code + maker code
	DiscNum   byte
	Version   byte
	WiiMagic  uint32
	GCMagic   uint32
	GameTitle string
}

// DiscImage provides raw access to a plain (unencrypted layout) disc image file
type DiscImage struct {
	file   io.ReaderAt
	closer io.Closer
	size   int64
	header *DiscHeader
}

// NewDiscImage opens a disc image file and decodes its boot header
func NewDiscImage(filename string) (*DiscImage, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	d := NewDiscImageFromReader(file, fileInfo.Size())
	d.closer = file
	return d, nil
}

// NewDiscImageFromReader wraps an in-memory or already opened image
func NewDiscImageFromReader(r io.ReaderAt, size int64) *DiscImage {
	d := &DiscImage{file: r, size: size}
	if header, err := d.ReadHeader(); err == nil {
		d.header = header
		common.LogDebug(common.DebugVolumeHeader, string(header.GameID[:]), header.WiiMagic)
	}
	return d
}

func (d *DiscImage) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Size returns the image size in bytes
func (d *DiscImage) Size() int64 {
	return d.size
}

// Header returns the decoded boot header, nil when the image is too short
func (d *DiscImage) Header() *DiscHeader {
	return d.header
}

// IsValid reports whether the image carries a Wii or GameCube boot header
func (d *DiscImage) IsValid() bool {
	if d.header == nil {
		return false
	}
	return d.header.WiiMagic == WiiMagic || d.header.GCMagic == GameCubeMagic
}

// ReadRaw reads len(buf) bytes at offset
func (d *DiscImage) ReadRaw(offset uint64, buf []byte) error {
	end := offset + uint64(len(buf))
	if end > uint64(d.size) || end < offset {
		return fmt.Errorf("offset 0x%x+%d out of bounds (image size: 0x%x)", offset, len(buf), d.size)
	}
	_, err := d.file.ReadAt(buf, int64(offset))
	if err == io.EOF {
		return nil
	}
	return err
}

// Read32 reads a big-endian uint32 at offset
func (d *DiscImage) Read32(offset uint64) (uint32, error) {
	var buf [4]byte
	if err := d.ReadRaw(offset, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadHeader decodes the boot header at the start of the image
func (d *DiscImage) ReadHeader() (*DiscHeader, error) {
	data := make([]byte, DiscHeaderSize)
	if err := d.ReadRaw(0, data); err != nil {
		return nil, fmt.Errorf("failed to read disc header: %w", err)
	}

	reader := bytes.NewReader(data[DiscGameIDOffset:])
	header := &DiscHeader{}
	id, err := common.ReadBytes(reader, len(header.GameID))
	if err != nil {
		return nil, err
	}
	copy(header.GameID[:], id)
	if header.DiscNum, err = reader.ReadByte(); err != nil {
		return nil, err
	}
	if header.Version, err = reader.ReadByte(); err != nil {
		return nil, err
	}

	// Skip audio streaming fields up to the magic words
	if _, err := reader.Seek(DiscWiiMagicOff, io.SeekStart); err != nil {
		return nil, err
	}
	if header.WiiMagic, err = common.ReadUint32BE(reader); err != nil {
		return nil, err
	}
	if _, err := reader.Seek(DiscGCMagicOff, io.SeekStart); err != nil {
		return nil, err
	}
	if header.GCMagic, err = common.ReadUint32BE(reader); err != nil {
		return nil, err
	}
	if _, err := reader.Seek(DiscTitleOffset, io.SeekStart); err != nil {
		return nil, err
	}
	title, err := common.ReadBytes(reader, discTitleSize)
	if err != nil {
		return nil, err
	}
	header.GameTitle = common.CString(title)

	return header, nil
}

var _ Volume = (*DiscImage)(nil)
