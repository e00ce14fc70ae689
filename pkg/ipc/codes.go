// Package ipc implements the high-level emulation of the console's /dev/fs
// device: guest IOCtl and IOCtlV requests are decoded from guest memory,
// executed against the host filesystem, and answered in place.
package ipc

import "fmt"

// IOCtl parameter codes understood by /dev/fs
const (
	IOCtlGetStats   = 0x02
	IOCtlCreateDir  = 0x03
	IOCtlVReadDir   = 0x04
	IOCtlSetAttr    = 0x05
	IOCtlGetAttr    = 0x06
	IOCtlDeleteFile = 0x07
	IOCtlRenameFile = 0x08
	IOCtlCreateFile = 0x09
	IOCtlVGetUsage  = 0x0C
)

// MaxPathLength is the size of an emulated path field
const MaxPathLength = 64

// UsageBlockSize is the NAND cluster size used to approximate block counts
const UsageBlockSize = 16 * 1024

// Result is the signed status code written into the request record
type Result int32

const (
	ResultOK              Result = 0
	ResultDirFileNotFound Result = -6
	ResultInvalidArgument Result = -101
	ResultFileExist       Result = -105
	ResultFileNotExist    Result = -106
	ResultFatal           Result = -128
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "FS_RESULT_OK"
	case ResultDirFileNotFound:
		return "FS_DIRFILE_NOT_FOUND"
	case ResultInvalidArgument:
		return "FS_INVALID_ARGUMENT"
	case ResultFileExist:
		return "FS_FILE_EXIST"
	case ResultFileNotExist:
		return "FS_FILE_NOT_EXIST"
	case ResultFatal:
		return "FS_RESULT_FATAL"
	}
	return fmt.Sprintf("FS_RESULT(%d)", int32(r))
}

// Word returns the result as the raw 32-bit value stored in guest memory
func (r Result) Word() uint32 {
	return uint32(int32(r))
}

// ParameterName returns the symbolic name of an IOCtl or IOCtlV parameter
func ParameterName(parameter uint32) string {
	switch parameter {
	case IOCtlGetStats:
		return "GET_STATS"
	case IOCtlCreateDir:
		return "CREATE_DIR"
	case IOCtlVReadDir:
		return "READ_DIR"
	case IOCtlSetAttr:
		return "SET_ATTR"
	case IOCtlGetAttr:
		return "GET_ATTR"
	case IOCtlDeleteFile:
		return "DELETE_FILE"
	case IOCtlRenameFile:
		return "RENAME_FILE"
	case IOCtlCreateFile:
		return "CREATE_FILE"
	case IOCtlVGetUsage:
		return "GETUSAGE"
	}
	return fmt.Sprintf("0x%x", parameter)
}
