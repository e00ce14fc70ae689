package common

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Global variable to control debug output
var VerboseMode bool = false

// logger is the sink behind the Log* helpers
var logger = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
	})
	return l
}

// SetVerboseMode enables or disables verbose/debug output
func SetVerboseMode(verbose bool) {
	VerboseMode = verbose
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

// SetLogOutput redirects every Log* helper to out
func SetLogOutput(out io.Writer) {
	logger.SetOutput(out)
}

// Error messages
const (
	ErrFailedToReadConfig    = "failed to read config file"
	ErrFailedToParseConfig   = "failed to parse config file"
	ErrFailedToReadScript    = "failed to read replay script"
	ErrFailedToParseScript   = "failed to parse replay script"
	ErrFailedToOpenDiscImage = "failed to open disc image"
	ErrFailedToCreateReport  = "failed to create report file"
	ErrFailedToEncodeReport  = "failed to encode report"
	ErrFailedToCreateFile    = "couldn't create new file"
	ErrUnknownIOCtl          = "unknown IOCtl parameter 0x%x"
	ErrUnknownIOCtlV         = "unknown IOCtlV parameter 0x%x"
	ErrUnsupportedCommand    = "unsupported IPC command %d"
	ErrRenameFailed          = "FS: Rename %s to %s - failed: %v"
	ErrGuestMemoryFault      = "guest memory fault during %s: %v"
	ErrUnknownScriptCommand  = "unknown script command %q"
)

// Info messages
const (
	InfoDeviceOpened   = "FS: device %d opened (mode %d)"
	InfoDeviceClosed   = "FS: device %d closed"
	InfoTitleDirectory = "FS: title directory %s"
	InfoCreateDir      = "FS: CREATE_DIR %s"
	InfoSetAttr        = "FS: SetAttrib %s"
	InfoGetAttrDir     = "FS: GET_ATTR Directory %s - all permission flags are set"
	InfoGetAttrFile    = "FS: GET_ATTR %s - all permission flags are set"
	InfoGetAttrUnknown = "FS: GET_ATTR unknown %s"
	InfoDeleteFile     = "FS: DeleteFile %s"
	InfoDeleteDir      = "FS: DeleteDir %s"
	InfoRename         = "FS: Rename %s to %s"
	InfoCreateFile     = "FS: CreateFile %s"
	InfoReadDir        = "FS: IOCTL_READ_DIR %s"
	InfoFilesInDir     = "    Files in directory: %d"
	InfoReplayFinished = "Replayed %d requests, report written to %s"
	InfoDiscMounted    = "Disc %s %q mounted (%d bytes)"
)

// Warning messages
const (
	WarnGetStats         = "FS: GET STATS - returning fixed block statistics"
	WarnGetStatsSizes    = "    InBufferSize: %d OutBufferSize: %d"
	WarnDirNotFound      = "    directory does not exist - return FS_DIRFILE_NOT_FOUND: %s"
	WarnNotADirectory    = "    Not a directory - return FS_INVALID_ARGUMENT: %s"
	WarnGetUsage         = "FS: IOCTL_GETUSAGE %s"
	WarnGetUsageResult   = "    fsBlock: %d, iNodes: %d"
	WarnGetUsageNotDir   = "    error: not executed on a valid directory: %s"
	WarnDeleteFailed     = "FS: DeleteFile %s - failed"
	WarnFileExists       = "    result = FS_FILE_EXIST: %s"
	WarnToleratedHostErr = "FS: %s %s - ignored: %v"
	WarnPathRejected     = "FS: rejected path %q: %v"
	WarnBufferSize       = "FS: %s: %s buffer is %d bytes, need %d"
	WarnVolumeRead       = "FS: could not read %s from volume: %v"
	WarnZeroGameID       = "FS: volume reports game id 0, using fallback 0x%08x"
	WarnEntryDoesNotFit  = "    entry %q does not fit output buffer, listing truncated"
	WarnStreamCommand    = "FS: stream command %d sent to /dev/fs"
)

// Debug messages
const (
	DebugOwnerID       = "    OwnerID: 0x%08x"
	DebugGroupID       = "    GroupID: 0x%04x"
	DebugOwnerPerm     = "    OwnerPerm: 0x%02x"
	DebugGroupPerm     = "    GroupPerm: 0x%02x"
	DebugOtherPerm     = "    OtherPerm: 0x%02x"
	DebugAttributes    = "    Attributes: 0x%02x"
	DebugDirEntry      = "    %s"
	DebugZeroFill      = "Cleared %d bytes of the out buffer at 0x%08x"
	DebugRequest       = "IPC request 0x%08x: command %d"
	DebugResult        = "    result = %d"
	DebugTranslate     = "translated %q -> %s"
	DebugReplayStep    = "replay step %d: %s %s"
	DebugVolumeHeader  = "volume header: id=%s magic=0x%08x"
	DebugOpenMode      = "FS: open mode %d ignored"
	DebugClientRequest = "client: sending %s"
)

// LogInfo logs an informational message
func LogInfo(message string, args ...interface{}) {
	if len(args) > 0 {
		logger.Infof(message, args...)
	} else {
		logger.Info(message)
	}
}

// LogWarn logs a warning message
func LogWarn(message string, args ...interface{}) {
	if len(args) > 0 {
		logger.Warnf(message, args...)
	} else {
		logger.Warn(message)
	}
}

// LogError logs an error message
func LogError(message string, args ...interface{}) {
	if len(args) > 0 {
		logger.Errorf(message, args...)
	} else {
		logger.Error(message)
	}
}

// LogDebug logs a debug message (only if VerboseMode is enabled)
func LogDebug(message string, args ...interface{}) {
	if !VerboseMode {
		return
	}
	if len(args) > 0 {
		logger.Debugf(message, args...)
	} else {
		logger.Debug(message)
	}
}

// FormatError creates a formatted error with additional context
func FormatError(baseMessage string, details interface{}) error {
	if err, ok := details.(error); ok {
		return fmt.Errorf("%s: %w", baseMessage, err)
	}
	return fmt.Errorf("%s: %v", baseMessage, details)
}

// FormatErrorString creates a formatted error with string details
func FormatErrorString(baseMessage, details string, args ...interface{}) error {
	if len(args) > 0 {
		return fmt.Errorf("%s: "+details, append([]interface{}{baseMessage}, args...)...)
	}
	return fmt.Errorf("%s: %s", baseMessage, details)
}
