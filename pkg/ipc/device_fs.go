package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hansbonini/wiifs/pkg/common"
	"github.com/hansbonini/wiifs/pkg/hostfs"
	"github.com/hansbonini/wiifs/pkg/wii"
)

// DeviceName is the IPC path guests open to reach this device
const DeviceName = "/dev/fs"

// Title identity fallbacks used when the volume reports zero
const (
	DefaultTitleID = 0x00010000
	DefaultGameID  = 0xF00DBEEF
)

// FSDevice is the /dev/fs high-level emulation. It is not safe for
// concurrent use; the IPC bus serializes requests.
type FSDevice struct {
	id       uint32
	mem      wii.Memory
	fs       hostfs.FileSystem
	paths    *PathTranslator
	volume   wii.Volume
	titleDir string
}

// NewFSDevice creates the device. volume may be nil when no disc is mounted.
func NewFSDevice(id uint32, mem wii.Memory, fsys hostfs.FileSystem, paths *PathTranslator, volume wii.Volume) *FSDevice {
	return &FSDevice{
		id:     id,
		mem:    mem,
		fs:     fsys,
		paths:  paths,
		volume: volume,
	}
}

// ID returns the device handle id
func (d *FSDevice) ID() uint32 {
	return d.id
}

// Paths returns the translator rooting guest paths
func (d *FSDevice) Paths() *PathTranslator {
	return d.paths
}

// TitleDirectory returns the per-title data directory created by Open, or ""
func (d *FSDevice) TitleDirectory() string {
	return d.titleDir
}

// Dispatch routes the request at addr on its command kind. The returned
// bool is false for command kinds this device does not handle.
func (d *FSDevice) Dispatch(addr uint32) (bool, error) {
	command, err := ReadCommand(d.mem, addr)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrGuestMemory, err)
	}
	common.LogDebug(common.DebugRequest, addr, command)

	switch command {
	case wii.IPCCommandOpen:
		r, err := openRequestLayout.Decode(d.mem, addr)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrGuestMemory, err)
		}
		return d.Open(addr, r.Uint("mode"))
	case wii.IPCCommandClose:
		return d.Close(addr)
	case wii.IPCCommandIOCtl:
		return d.IOCtl(addr)
	case wii.IPCCommandIOCtlV:
		return d.IOCtlV(addr)
	case wii.IPCCommandRead, wii.IPCCommandWrite, wii.IPCCommandSeek:
		// File handles are served by per-file devices, never /dev/fs itself
		common.LogWarn(common.WarnStreamCommand, command)
	}
	return false, fmt.Errorf(common.ErrUnsupportedCommand, command)
}

// Open bootstraps the NAND sandbox and answers with the device id.
// Host filesystem failures are logged and never reach the guest.
func (d *FSDevice) Open(addr, mode uint32) (bool, error) {
	if mode != 0 {
		common.LogDebug(common.DebugOpenMode, mode)
	}

	tmp := filepath.Join(d.paths.Root(), "tmp")
	_ = tolerateHostError.check("DeleteDirRecursively", tmp, d.fs.DeleteDirRecursively(tmp))
	_ = tolerateHostError.check("CreateDir", tmp, d.fs.CreateDir(tmp))

	if d.volume != nil && d.volume.IsValid() {
		titleID, gameID := d.readTitleIdentity()
		dir := filepath.Join(d.paths.Root(), "title",
			fmt.Sprintf("%08x", titleID), fmt.Sprintf("%08x", gameID),
			"data", "nocopy") + string(filepath.Separator)
		if err := d.fs.CreateFullPath(dir); err != nil {
			_ = tolerateHostError.check("CreateFullPath", dir, err)
		} else {
			d.titleDir = dir
			common.LogInfo(common.InfoTitleDirectory, dir)
		}
	}

	if err := writeResult(d.mem, addr, d.id); err != nil {
		return true, fmt.Errorf("%w: %v", ErrGuestMemory, err)
	}
	common.LogInfo(common.InfoDeviceOpened, d.id, mode)
	return true, nil
}

// readTitleIdentity reads the title and game ids off the mounted volume
func (d *FSDevice) readTitleIdentity() (uint32, uint32) {
	var raw [4]byte
	var titleID uint32
	if err := d.volume.ReadRaw(wii.DiscTitleIDOffset, raw[:]); err != nil {
		common.LogWarn(common.WarnVolumeRead, "title id", err)
	} else {
		titleID = binary.BigEndian.Uint32(raw[:])
	}

	gameID, err := d.volume.Read32(0)
	if err != nil {
		common.LogWarn(common.WarnVolumeRead, "game id", err)
		gameID = 0
	}

	if gameID == 0 {
		common.LogWarn(common.WarnZeroGameID, uint32(DefaultGameID))
		gameID = DefaultGameID
	}
	if titleID == 0 {
		titleID = DefaultTitleID
	}
	return titleID, gameID
}

// Close answers a close request with FS_RESULT_OK
func (d *FSDevice) Close(addr uint32) (bool, error) {
	if err := writeResult(d.mem, addr, ResultOK.Word()); err != nil {
		return true, fmt.Errorf("%w: %v", ErrGuestMemory, err)
	}
	common.LogInfo(common.InfoDeviceClosed, d.id)
	return true, nil
}

// IOCtl executes the scalar request at addr. The output buffer is zeroed
// first. The returned error is non-nil only for fatal conditions and guest
// memory faults, in which case FS_RESULT_FATAL is written.
func (d *FSDevice) IOCtl(addr uint32) (bool, error) {
	req, err := ReadIOCtl(d.mem, addr)
	if err != nil {
		return true, d.fault(addr, "IOCtl", err)
	}

	common.LogDebug(common.DebugZeroFill, req.Out.Size, req.Out.Address)
	if err := d.mem.Memset(req.Out.Address, 0, req.Out.Size); err != nil {
		return true, d.fault(addr, "IOCtl", err)
	}

	result, err := d.ExecuteCommand(req.Parameter, req.In, req.Out)
	return true, d.finish(addr, result, err)
}

// IOCtlV executes the vectorized request at addr. Every payload buffer is
// zeroed first.
func (d *FSDevice) IOCtlV(addr uint32) (bool, error) {
	req, err := ReadIOCtlV(d.mem, addr)
	if err != nil {
		return true, d.fault(addr, "IOCtlV", err)
	}

	for _, p := range req.Payload {
		common.LogDebug(common.DebugZeroFill, p.Size, p.Address)
		if err := d.mem.Memset(p.Address, 0, p.Size); err != nil {
			return true, d.fault(addr, "IOCtlV", err)
		}
	}

	result, err := d.ExecuteCommandV(req.Parameter, req.In, req.Payload)
	return true, d.finish(addr, result, err)
}

// finish writes the status word. A handler error always means FATAL.
func (d *FSDevice) finish(addr uint32, result Result, err error) error {
	if err != nil {
		if !errors.Is(err, ErrFatal) {
			err = fmt.Errorf("%w: %v", ErrGuestMemory, err)
		}
		common.LogError("%v", err)
		result = ResultFatal
	}
	common.LogDebug(common.DebugResult, int32(result))
	if werr := writeResult(d.mem, addr, result.Word()); werr != nil {
		return errors.Join(err, fmt.Errorf("%w: %v", ErrGuestMemory, werr))
	}
	return err
}

func (d *FSDevice) fault(addr uint32, op string, err error) error {
	common.LogError(common.ErrGuestMemoryFault, op, err)
	fault := fmt.Errorf("%w: %s: %v", ErrGuestMemory, op, err)
	if werr := writeResult(d.mem, addr, ResultFatal.Word()); werr != nil {
		return errors.Join(fault, werr)
	}
	return fault
}
