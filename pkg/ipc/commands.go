package ipc

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/hansbonini/wiifs/pkg/common"
)

// ioctlHandler executes one scalar command
type ioctlHandler func(d *FSDevice, in, out Buffer) (Result, error)

var ioctlHandlers = map[uint32]ioctlHandler{
	IOCtlGetStats:   (*FSDevice).getStats,
	IOCtlCreateDir:  (*FSDevice).createDir,
	IOCtlSetAttr:    (*FSDevice).setAttr,
	IOCtlGetAttr:    (*FSDevice).getAttr,
	IOCtlDeleteFile: (*FSDevice).deleteFile,
	IOCtlRenameFile: (*FSDevice).renameFile,
	IOCtlCreateFile: (*FSDevice).createFile,
}

// ExecuteCommand runs a scalar command against already zeroed buffers
func (d *FSDevice) ExecuteCommand(parameter uint32, in, out Buffer) (Result, error) {
	handler, ok := ioctlHandlers[parameter]
	if !ok {
		common.LogError(common.ErrUnknownIOCtl, parameter)
		return ResultFatal, fatalf(common.ErrUnknownIOCtl, parameter)
	}
	return handler(d, in, out)
}

// readInput decodes a command record, rejecting short input buffers
func (d *FSDevice) readInput(l *Layout, in Buffer) (Record, Result, error) {
	if in.Size < l.Size() {
		common.LogWarn(common.WarnBufferSize, l.Name, "input", in.Size, l.Size())
		return Record{}, ResultInvalidArgument, nil
	}
	r, err := l.Decode(d.mem, in.Address)
	if err != nil {
		return Record{}, ResultFatal, err
	}
	return r, ResultOK, nil
}

// requireOutput rejects output buffers of the wrong size
func requireOutput(l *Layout, out Buffer) bool {
	if out.Size != l.Size() {
		common.LogWarn(common.WarnBufferSize, l.Name, "output", out.Size, l.Size())
		return false
	}
	return true
}

// translate maps a path field; rejected paths are logged and reported as ok=false
func (d *FSDevice) translate(raw []byte) (string, bool) {
	path, err := d.paths.Translate(raw, MaxPathLength)
	if err != nil {
		common.LogWarn(common.WarnPathRejected, common.CString(raw), err)
		return "", false
	}
	return path, true
}

func (d *FSDevice) getStats(in, out Buffer) (Result, error) {
	common.LogWarn(common.WarnGetStats)
	common.LogWarn(common.WarnGetStatsSizes, in.Size, out.Size)
	if !requireOutput(statsLayout, out) {
		return ResultInvalidArgument, nil
	}

	r := statsLayout.NewRecord()
	for i, word := range getStatsWords {
		r.SetUint(fmt.Sprintf("word%d", i), word)
	}
	if err := statsLayout.Encode(d.mem, out.Address, r); err != nil {
		return ResultFatal, err
	}
	return ResultOK, nil
}

func (d *FSDevice) createDir(in, out Buffer) (Result, error) {
	r, result, err := d.readInput(createDirLayout, in)
	if result != ResultOK || err != nil {
		return result, err
	}
	dirName, ok := d.translate(r.Bytes("path"))
	if !ok {
		return ResultInvalidArgument, nil
	}

	common.LogInfo(common.InfoCreateDir, dirName)
	common.LogDebug(common.DebugOwnerID, r.Uint("owner_id"))
	common.LogDebug(common.DebugGroupID, r.Uint("group_id"))
	common.LogDebug(common.DebugAttributes, r.Uint("attribs"))

	dirName = ensureTrailingSeparator(dirName)
	_ = tolerateHostError.check("CreateFullPath", dirName, d.fs.CreateFullPath(dirName))
	return ResultOK, nil
}

// setAttr is accepted and ignored; the host has no matching permission model
func (d *FSDevice) setAttr(in, out Buffer) (Result, error) {
	r, result, err := d.readInput(attrLayout, in)
	if err != nil {
		return result, err
	}
	if result != ResultOK {
		return ResultOK, nil
	}

	common.LogInfo(common.InfoSetAttr, common.CString(r.Bytes("path")))
	logAttributes(r)
	return ResultOK, nil
}

func (d *FSDevice) getAttr(in, out Buffer) (Result, error) {
	if !requireOutput(attrRecordLayout, out) {
		return ResultInvalidArgument, nil
	}
	r, result, err := d.readInput(pathLayout, in)
	if result != ResultOK || err != nil {
		return result, err
	}
	raw := r.Bytes("path")
	filename, ok := d.translate(raw)
	if !ok {
		return ResultInvalidArgument, nil
	}

	switch {
	case d.fs.IsDirectory(filename):
		common.LogInfo(common.InfoGetAttrDir, filename)
	case d.fs.Exists(filename):
		common.LogInfo(common.InfoGetAttrFile, filename)
	default:
		common.LogInfo(common.InfoGetAttrUnknown, filename)
		return ResultFileNotExist, nil
	}

	// The path echoed back is the guest's own, never the host path
	attrs := attrRecordLayout.NewRecord().
		SetUint("owner_id", 0).
		SetUint("group_id", 0).
		SetBytes("path", []byte(common.CString(raw))).
		SetUint("owner_perm", 0x3).
		SetUint("group_perm", 0x3).
		SetUint("other_perm", 0x3).
		SetUint("attribs", 0x0)
	if err := attrRecordLayout.Encode(d.mem, out.Address, attrs); err != nil {
		return ResultFatal, err
	}
	return ResultOK, nil
}

// deleteFile tries a file delete, then a directory delete; failure is
// logged only
func (d *FSDevice) deleteFile(in, out Buffer) (Result, error) {
	r, result, err := d.readInput(pathLayout, in)
	if result != ResultOK || err != nil {
		return result, err
	}
	filename, ok := d.translate(r.Bytes("path"))
	if !ok {
		return ResultInvalidArgument, nil
	}

	fileErr := d.fs.Delete(filename)
	if fileErr == nil {
		common.LogInfo(common.InfoDeleteFile, filename)
		return ResultOK, nil
	}
	dirErr := d.fs.DeleteDir(filename)
	if dirErr == nil {
		common.LogInfo(common.InfoDeleteDir, filename)
		return ResultOK, nil
	}

	common.LogWarn(common.WarnDeleteFailed, filename)
	_ = tolerateHostError.check("DeleteFile", filename, errors.Join(fileErr, dirErr))
	return ResultOK, nil
}

func (d *FSDevice) renameFile(in, out Buffer) (Result, error) {
	r, result, err := d.readInput(renameLayout, in)
	if result != ResultOK || err != nil {
		return result, err
	}
	filename, ok := d.translate(r.Bytes("src"))
	if !ok {
		return ResultInvalidArgument, nil
	}
	filenameRename, ok := d.translate(r.Bytes("dst"))
	if !ok {
		return ResultInvalidArgument, nil
	}

	// Renaming onto itself must not run the destination delete
	if filepath.Clean(filename) == filepath.Clean(filenameRename) {
		if !d.fs.Exists(filename) {
			common.LogError(common.ErrRenameFailed, filename, filenameRename, fs.ErrNotExist)
			return ResultFileNotExist, nil
		}
		common.LogInfo(common.InfoRename, filename, filenameRename)
		return ResultOK, nil
	}

	_ = tolerateHostError.check("CreateFullPath", filenameRename, d.fs.CreateFullPath(filenameRename))
	if d.fs.Exists(filenameRename) {
		_ = tolerateHostError.check("Delete", filenameRename, d.fs.Delete(filenameRename))
	}

	if err := surfaceHostError.check("Rename", filename, d.fs.Rename(filename, filenameRename)); err != nil {
		common.LogError(common.ErrRenameFailed, filename, filenameRename, err)
		return ResultFileNotExist, nil
	}
	common.LogInfo(common.InfoRename, filename, filenameRename)
	return ResultOK, nil
}

func (d *FSDevice) createFile(in, out Buffer) (Result, error) {
	r, result, err := d.readInput(attrLayout, in)
	if result != ResultOK || err != nil {
		return result, err
	}
	filename, ok := d.translate(r.Bytes("path"))
	if !ok {
		return ResultInvalidArgument, nil
	}

	common.LogInfo(common.InfoCreateFile, filename)
	logAttributes(r)

	if d.fs.Exists(filename) {
		common.LogWarn(common.WarnFileExists, filename)
		return ResultFileExist, nil
	}

	_ = tolerateHostError.check("CreateFullPath", filename, d.fs.CreateFullPath(filename))
	if err := surfaceHostError.check("CreateEmptyFile", filename, d.fs.CreateEmptyFile(filename)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ResultFileExist, nil
		}
		common.LogError(common.ErrFailedToCreateFile)
		return ResultFatal, fatalf("%s %s: %v", common.ErrFailedToCreateFile, filename, err)
	}
	return ResultOK, nil
}

func logAttributes(r Record) {
	common.LogDebug(common.DebugOwnerID, r.Uint("owner_id"))
	common.LogDebug(common.DebugGroupID, r.Uint("group_id"))
	common.LogDebug(common.DebugOwnerPerm, r.Uint("owner_perm"))
	common.LogDebug(common.DebugGroupPerm, r.Uint("group_perm"))
	common.LogDebug(common.DebugOtherPerm, r.Uint("other_perm"))
	common.LogDebug(common.DebugAttributes, r.Uint("attribs"))
}

func ensureTrailingSeparator(path string) string {
	if len(path) > 0 && path[len(path)-1] == filepath.Separator {
		return path
	}
	return path + string(filepath.Separator)
}
