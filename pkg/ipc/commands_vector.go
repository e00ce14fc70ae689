package ipc

import (
	"path/filepath"

	"github.com/hansbonini/wiifs/pkg/common"
	"github.com/hansbonini/wiifs/pkg/hostfs"
)

// ioctlvHandler executes one vectorized command
type ioctlvHandler func(d *FSDevice, in, payload []Buffer) (Result, error)

var ioctlvHandlers = map[uint32]ioctlvHandler{
	IOCtlVReadDir:  (*FSDevice).readDir,
	IOCtlVGetUsage: (*FSDevice).getUsage,
}

// ExecuteCommandV runs a vectorized command against already zeroed payloads
func (d *FSDevice) ExecuteCommandV(parameter uint32, in, payload []Buffer) (Result, error) {
	handler, ok := ioctlvHandlers[parameter]
	if !ok {
		common.LogError(common.ErrUnknownIOCtlV, parameter)
		return ResultFatal, fatalf(common.ErrUnknownIOCtlV, parameter)
	}
	return handler(d, in, payload)
}

// readVectorPath translates the path held by the first input vector
func (d *FSDevice) readVectorPath(name string, in []Buffer) (string, Result, error) {
	if len(in) == 0 || in[0].Size == 0 {
		common.LogWarn(common.WarnBufferSize, name, "input", 0, 1)
		return "", ResultInvalidArgument, nil
	}
	size := in[0].Size
	if size > MaxPathLength {
		size = MaxPathLength
	}
	raw, err := d.mem.ReadBytes(in[0].Address, size)
	if err != nil {
		return "", ResultFatal, err
	}
	path, ok := d.translate(raw)
	if !ok {
		return "", ResultInvalidArgument, nil
	}
	return path, ResultOK, nil
}

func (d *FSDevice) writeWord(b Buffer, value uint32) error {
	return wordLayout.Encode(d.mem, b.Address, wordLayout.NewRecord().SetUint("value", value))
}

func (d *FSDevice) readDir(in, payload []Buffer) (Result, error) {
	dirName, result, err := d.readVectorPath("READ_DIR", in)
	if result != ResultOK || err != nil {
		return result, err
	}
	common.LogInfo(common.InfoReadDir, dirName)

	if !d.fs.Exists(dirName) {
		common.LogWarn(common.WarnDirNotFound, dirName)
		return ResultDirFileNotFound, nil
	}
	if !d.fs.IsDirectory(dirName) {
		common.LogWarn(common.WarnNotADirectory, dirName)
		return ResultInvalidArgument, nil
	}

	entries, err := d.fs.Search(dirName, hostfs.MatchAll)
	_ = tolerateHostError.check("Search", dirName, err)

	if len(in) == 1 && len(payload) == 1 {
		if payload[0].Size < wordLayout.Size() {
			common.LogWarn(common.WarnBufferSize, "READ_DIR", "output", payload[0].Size, wordLayout.Size())
			return ResultInvalidArgument, nil
		}
		common.LogInfo(common.InfoFilesInDir, len(entries))
		if err := d.writeWord(payload[0], uint32(len(entries))); err != nil {
			return ResultFatal, err
		}
		return ResultOK, nil
	}

	if len(payload) < 2 || payload[1].Size < wordLayout.Size() || in[0].Size < wordLayout.Size() {
		common.LogWarn(common.WarnBufferSize, "READ_DIR", "count", uint32(len(payload)), 2)
		return ResultInvalidArgument, nil
	}
	// The entry limit shares its word with the start of the path
	maxEntries, err := d.mem.Read32(in[0].Address)
	if err != nil {
		return ResultFatal, err
	}

	var written uint32
	address, remaining := payload[0].Address, payload[0].Size
	for _, entry := range entries {
		if written >= maxEntries {
			break
		}
		name := append([]byte(filepath.Base(entry)), 0)
		if uint32(len(name)) > remaining {
			common.LogWarn(common.WarnEntryDoesNotFit, filepath.Base(entry))
			break
		}
		if err := d.mem.WriteBytes(address, name); err != nil {
			return ResultFatal, err
		}
		common.LogDebug(common.DebugDirEntry, filepath.Base(entry))
		address += uint32(len(name))
		remaining -= uint32(len(name))
		written++
	}

	common.LogInfo(common.InfoFilesInDir, written)
	if err := d.writeWord(payload[1], written); err != nil {
		return ResultFatal, err
	}
	return ResultOK, nil
}

// getUsage always answers OK; a non-directory reports zero blocks and inodes
func (d *FSDevice) getUsage(in, payload []Buffer) (Result, error) {
	if len(payload) < 2 || payload[0].Size < wordLayout.Size() || payload[1].Size < wordLayout.Size() {
		common.LogWarn(common.WarnBufferSize, "GETUSAGE", "output", uint32(len(payload)), 2)
		return ResultInvalidArgument, nil
	}
	path, result, err := d.readVectorPath("GETUSAGE", in)
	if result != ResultOK || err != nil {
		return result, err
	}
	common.LogWarn(common.WarnGetUsage, path)

	var fsBlocks, iNodes uint32
	if d.fs.IsDirectory(path) {
		entries, err := d.fs.Search(path, hostfs.MatchAll)
		_ = tolerateHostError.check("Search", path, err)

		var total uint64
		for _, entry := range entries {
			size, err := d.fs.Size(entry)
			if err != nil {
				_ = tolerateHostError.check("Size", entry, err)
				continue
			}
			total += size
		}
		fsBlocks = common.ClampUint64ToUint32(total / UsageBlockSize)
		iNodes = uint32(len(entries))
		common.LogWarn(common.WarnGetUsageResult, fsBlocks, iNodes)
	} else {
		common.LogWarn(common.WarnGetUsageNotDir, path)
	}

	if err := d.writeWord(payload[0], fsBlocks); err != nil {
		return ResultFatal, err
	}
	if err := d.writeWord(payload[1], iNodes); err != nil {
		return ResultFatal, err
	}
	return ResultOK, nil
}
