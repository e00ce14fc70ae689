package ipc

import (
	"fmt"

	"github.com/hansbonini/wiifs/pkg/common"
	"github.com/hansbonini/wiifs/pkg/wii"
)

// Client scratch area, relative to the base address
const (
	clientRequestOffset = 0x0000
	clientVectorOffset  = 0x0100
	clientInOffset      = 0x0200
	clientCountOffset   = 0x0300
	clientOutOffset     = 0x0400
	clientNamesSize     = 0x1000

	// ClientScratchSize is the guest memory a Client needs above its base
	ClientScratchSize = clientOutOffset + clientNamesSize
)

// Attributes is a decoded GET_ATTR record, or the input of SET_ATTR and
// CREATE_FILE
type Attributes struct {
	OwnerID   uint32 `yaml:"owner_id"`
	GroupID   uint16 `yaml:"group_id"`
	Path      string `yaml:"path"`
	OwnerPerm uint8  `yaml:"owner_perm"`
	GroupPerm uint8  `yaml:"group_perm"`
	OtherPerm uint8  `yaml:"other_perm"`
	Attribs   uint8  `yaml:"attribs"`
}

// Usage is the GETUSAGE answer
type Usage struct {
	Blocks uint32 `yaml:"blocks"`
	Inodes uint32 `yaml:"inodes"`
}

// Client plays the guest side of /dev/fs: it stages request records in a
// scratch area of guest memory and hands them to the device.
type Client struct {
	dev  *FSDevice
	mem  wii.Memory
	base uint32
}

// NewClient stages requests at base; ClientScratchSize bytes must be free there
func NewClient(dev *FSDevice, mem wii.Memory, base uint32) *Client {
	return &Client{dev: dev, mem: mem, base: base}
}

func (c *Client) buffer(offset, size uint32) Buffer {
	return Buffer{Address: c.base + offset, Size: size}
}

// stage copies an input record into the scratch input area
func (c *Client) stage(in []byte) (Buffer, error) {
	size, err := common.SafeIntToUint32(len(in))
	if err != nil {
		return Buffer{}, err
	}
	if size > clientCountOffset-clientInOffset {
		return Buffer{}, fmt.Errorf("input record of %d bytes exceeds the scratch area", size)
	}
	b := c.buffer(clientInOffset, size)
	return b, c.mem.WriteBytes(b.Address, in)
}

func (c *Client) request() uint32 {
	return c.base + clientRequestOffset
}

// Open sends an open request and returns the handle the device answered with
func (c *Client) Open(mode uint32) (uint32, error) {
	if err := WriteOpen(c.mem, c.request(), mode); err != nil {
		return 0, err
	}
	if _, err := c.dev.Dispatch(c.request()); err != nil {
		return 0, err
	}
	return c.mem.Read32(c.request() + resultOffset)
}

// Close sends a close request
func (c *Client) Close() error {
	if err := c.mem.Write32(c.request(), wii.IPCCommandClose); err != nil {
		return err
	}
	_, err := c.dev.Dispatch(c.request())
	return err
}

// ioctl stages in, runs the request and returns the status word
func (c *Client) ioctl(parameter uint32, in []byte, outSize uint32) (Result, error) {
	inBuf, err := c.stage(in)
	if err != nil {
		return ResultFatal, err
	}
	req := IOCtlRequest{Parameter: parameter, In: inBuf, Out: c.buffer(clientOutOffset, outSize)}
	if err := req.Write(c.mem, c.request(), c.dev.ID()); err != nil {
		return ResultFatal, err
	}
	common.LogDebug(common.DebugClientRequest, ParameterName(parameter))
	if _, err := c.dev.Dispatch(c.request()); err != nil {
		return ResultFatal, err
	}
	return ReadResult(c.mem, c.request())
}

func (c *Client) ioctlv(parameter uint32, in []byte, payload ...Buffer) (Result, error) {
	inBuf, err := c.stage(in)
	if err != nil {
		return ResultFatal, err
	}
	req := IOCtlVRequest{Parameter: parameter, In: []Buffer{inBuf}, Payload: payload}
	if err := req.Write(c.mem, c.request(), c.base+clientVectorOffset, c.dev.ID()); err != nil {
		return ResultFatal, err
	}
	common.LogDebug(common.DebugClientRequest, ParameterName(parameter))
	if _, err := c.dev.Dispatch(c.request()); err != nil {
		return ResultFatal, err
	}
	return ReadResult(c.mem, c.request())
}

// GetStats returns the seven GET_STATS words
func (c *Client) GetStats() ([]uint32, Result, error) {
	result, err := c.ioctl(IOCtlGetStats, nil, statsLayout.Size())
	if err != nil || result != ResultOK {
		return nil, result, err
	}
	r, err := statsLayout.Decode(c.mem, c.base+clientOutOffset)
	if err != nil {
		return nil, ResultFatal, err
	}
	words := make([]uint32, len(getStatsWords))
	for i := range words {
		words[i] = r.Uint(fmt.Sprintf("word%d", i))
	}
	return words, result, nil
}

// CreateDir creates path and its parents
func (c *Client) CreateDir(path string, a Attributes) (Result, error) {
	in := createDirLayout.NewRecord().
		SetUint("owner_id", a.OwnerID).
		SetUint("group_id", uint32(a.GroupID)).
		SetBytes("path", []byte(path)).
		SetUint("attribs", uint32(a.Attribs))
	return c.ioctl(IOCtlCreateDir, createDirLayout.Marshal(in), 0)
}

func attrInput(path string, a Attributes) []byte {
	return attrLayout.Marshal(attrLayout.NewRecord().
		SetUint("owner_id", a.OwnerID).
		SetUint("group_id", uint32(a.GroupID)).
		SetBytes("path", []byte(path)).
		SetUint("owner_perm", uint32(a.OwnerPerm)).
		SetUint("group_perm", uint32(a.GroupPerm)).
		SetUint("other_perm", uint32(a.OtherPerm)).
		SetUint("attribs", uint32(a.Attribs)))
}

// SetAttr sends the attributes of path; the device accepts and ignores them
func (c *Client) SetAttr(path string, a Attributes) (Result, error) {
	return c.ioctl(IOCtlSetAttr, attrInput(path, a), 0)
}

// GetAttr returns the attribute record of path
func (c *Client) GetAttr(path string) (Attributes, Result, error) {
	in := pathLayout.Marshal(pathLayout.NewRecord().SetBytes("path", []byte(path)))
	result, err := c.ioctl(IOCtlGetAttr, in, attrRecordLayout.Size())
	if err != nil || result != ResultOK {
		return Attributes{}, result, err
	}
	r, err := attrRecordLayout.Decode(c.mem, c.base+clientOutOffset)
	if err != nil {
		return Attributes{}, ResultFatal, err
	}
	return Attributes{
		OwnerID:   r.Uint("owner_id"),
		GroupID:   uint16(r.Uint("group_id")),
		Path:      common.CString(r.Bytes("path")),
		OwnerPerm: uint8(r.Uint("owner_perm")),
		GroupPerm: uint8(r.Uint("group_perm")),
		OtherPerm: uint8(r.Uint("other_perm")),
		Attribs:   uint8(r.Uint("attribs")),
	}, result, nil
}

// DeleteFile removes a file or an empty directory
func (c *Client) DeleteFile(path string) (Result, error) {
	in := pathLayout.Marshal(pathLayout.NewRecord().SetBytes("path", []byte(path)))
	return c.ioctl(IOCtlDeleteFile, in, 0)
}

// RenameFile moves src over dst
func (c *Client) RenameFile(src, dst string) (Result, error) {
	in := renameLayout.Marshal(renameLayout.NewRecord().
		SetBytes("src", []byte(src)).
		SetBytes("dst", []byte(dst)))
	return c.ioctl(IOCtlRenameFile, in, 0)
}

// CreateFile creates an empty file at path
func (c *Client) CreateFile(path string, a Attributes) (Result, error) {
	return c.ioctl(IOCtlCreateFile, attrInput(path, a), 0)
}

// CountDir returns the number of entries in path
func (c *Client) CountDir(path string) (uint32, Result, error) {
	in := pathLayout.Marshal(pathLayout.NewRecord().SetBytes("path", []byte(path)))
	count := c.buffer(clientCountOffset, wordLayout.Size())
	result, err := c.ioctlv(IOCtlVReadDir, in, count)
	if err != nil || result != ResultOK {
		return 0, result, err
	}
	n, err := c.mem.Read32(count.Address)
	return n, result, err
}

// ReadDir lists the entry names of path into a names buffer of namesSize
// bytes; zero selects the whole scratch area.
func (c *Client) ReadDir(path string, namesSize uint32) ([]string, Result, error) {
	if namesSize == 0 || namesSize > clientNamesSize {
		namesSize = clientNamesSize
	}
	in := pathLayout.Marshal(pathLayout.NewRecord().SetBytes("path", []byte(path)))
	names := c.buffer(clientOutOffset, namesSize)
	count := c.buffer(clientCountOffset, wordLayout.Size())
	result, err := c.ioctlv(IOCtlVReadDir, in, names, count)
	if err != nil || result != ResultOK {
		return nil, result, err
	}

	n, err := c.mem.Read32(count.Address)
	if err != nil {
		return nil, ResultFatal, err
	}
	raw, err := c.mem.ReadBytes(names.Address, names.Size)
	if err != nil {
		return nil, ResultFatal, err
	}
	entries := make([]string, 0, n)
	for i := uint32(0); i < n && len(raw) > 0; i++ {
		name := common.CString(raw)
		entries = append(entries, name)
		if len(name) >= len(raw) {
			break
		}
		raw = raw[len(name)+1:]
	}
	return entries, result, nil
}

// GetUsage returns the block and inode usage of path
func (c *Client) GetUsage(path string) (Usage, Result, error) {
	in := pathLayout.Marshal(pathLayout.NewRecord().SetBytes("path", []byte(path)))
	blocks := c.buffer(clientOutOffset, wordLayout.Size())
	inodes := c.buffer(clientCountOffset, wordLayout.Size())
	result, err := c.ioctlv(IOCtlVGetUsage, in, blocks, inodes)
	if err != nil || result != ResultOK {
		return Usage{}, result, err
	}
	var u Usage
	if u.Blocks, err = c.mem.Read32(blocks.Address); err != nil {
		return Usage{}, ResultFatal, err
	}
	if u.Inodes, err = c.mem.Read32(inodes.Address); err != nil {
		return Usage{}, ResultFatal, err
	}
	return u, result, nil
}
