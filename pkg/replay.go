package pkg

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hansbonini/wiifs/pkg/common"
	"github.com/hansbonini/wiifs/pkg/ipc"
	"gopkg.in/yaml.v3"
)

// Script commands
const (
	StepOpen       = "open"
	StepClose      = "close"
	StepGetStats   = "get_stats"
	StepCreateDir  = "create_dir"
	StepSetAttr    = "set_attr"
	StepGetAttr    = "get_attr"
	StepDeleteFile = "delete_file"
	StepRenameFile = "rename_file"
	StepCreateFile = "create_file"
	StepCountDir   = "count_dir"
	StepReadDir    = "read_dir"
	StepGetUsage   = "get_usage"
)

var scriptCommands = map[string]bool{
	StepOpen: true, StepClose: true, StepGetStats: true,
	StepCreateDir: true, StepSetAttr: true, StepGetAttr: true,
	StepDeleteFile: true, StepRenameFile: true, StepCreateFile: true,
	StepCountDir: true, StepReadDir: true, StepGetUsage: true,
}

// ScriptStep is one guest request of a replay script
type ScriptStep struct {
	Command string `yaml:"command"`
	Path    string `yaml:"path,omitempty"`
	Dest    string `yaml:"dest,omitempty"`
	Owner   uint32 `yaml:"owner,omitempty"`
	Group   uint16 `yaml:"group,omitempty"`
	OutSize uint32 `yaml:"out_size,omitempty"`
}

// Script is an ordered list of guest requests
type Script struct {
	Requests []ScriptStep `yaml:"requests"`
}

// StepReport is the outcome of one replayed request
type StepReport struct {
	Index      int             `yaml:"index"`
	Command    string          `yaml:"command"`
	Path       string          `yaml:"path,omitempty"`
	Dest       string          `yaml:"dest,omitempty"`
	Result     string          `yaml:"result"`
	Code       int32           `yaml:"code"`
	Error      string          `yaml:"error,omitempty"`
	Handle     *uint32         `yaml:"handle,omitempty"`
	Stats      []uint32        `yaml:"stats,omitempty,flow"`
	Attributes *ipc.Attributes `yaml:"attributes,omitempty"`
	Count      *uint32         `yaml:"count,omitempty"`
	Entries    []string        `yaml:"entries,omitempty"`
	Usage      *ipc.Usage      `yaml:"usage,omitempty"`
}

// ReplayReport collects the outcome of every replayed request
type ReplayReport struct {
	NANDRoot string       `yaml:"nand_root"`
	Steps    []StepReport `yaml:"steps"`
}

// LoadScript reads and checks a YAML replay script
func LoadScript(filename string) (*Script, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToReadScript, err)
	}
	return ParseScript(data)
}

// ParseScript decodes a YAML replay script
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, common.FormatError(common.ErrFailedToParseScript, err)
	}
	for i, step := range script.Requests {
		if !scriptCommands[step.Command] {
			return nil, common.FormatErrorString(common.ErrFailedToParseScript,
				"request %d: "+common.ErrUnknownScriptCommand, i, step.Command)
		}
	}
	return &script, nil
}

// Replayer runs scripts against a session
type Replayer struct {
	session *Session
}

// NewReplayer creates a replayer bound to s
func NewReplayer(s *Session) *Replayer {
	return &Replayer{session: s}
}

// Run replays every request in order. A fatal request is recorded and the
// run continues; a guest memory fault stops it.
func (r *Replayer) Run(script *Script) (*ReplayReport, error) {
	report := &ReplayReport{
		NANDRoot: r.session.Device().Paths().Root(),
		Steps:    make([]StepReport, 0, len(script.Requests)),
	}

	for i, step := range script.Requests {
		common.LogDebug(common.DebugReplayStep, i, step.Command, step.Path)
		sr, err := r.runStep(step)
		sr.Index = i
		sr.Command = step.Command
		sr.Path = step.Path
		sr.Dest = step.Dest
		if err != nil {
			sr.Error = err.Error()
		}
		report.Steps = append(report.Steps, sr)

		if errors.Is(err, ipc.ErrGuestMemory) {
			return report, fmt.Errorf("request %d (%s): %w", i, step.Command, err)
		}
	}
	return report, nil
}

func (r *Replayer) runStep(step ScriptStep) (StepReport, error) {
	c := r.session.Client()
	attrs := ipc.Attributes{OwnerID: step.Owner, GroupID: step.Group}
	var sr StepReport
	var result ipc.Result
	var err error

	switch step.Command {
	case StepOpen:
		var fd uint32
		fd, err = c.Open(0)
		if err == nil {
			sr.Handle = &fd
		}
	case StepClose:
		err = c.Close()
	case StepGetStats:
		sr.Stats, result, err = c.GetStats()
	case StepCreateDir:
		result, err = c.CreateDir(step.Path, attrs)
	case StepSetAttr:
		result, err = c.SetAttr(step.Path, attrs)
	case StepGetAttr:
		var a ipc.Attributes
		a, result, err = c.GetAttr(step.Path)
		if err == nil && result == ipc.ResultOK {
			sr.Attributes = &a
		}
	case StepDeleteFile:
		result, err = c.DeleteFile(step.Path)
	case StepRenameFile:
		result, err = c.RenameFile(step.Path, step.Dest)
	case StepCreateFile:
		result, err = c.CreateFile(step.Path, attrs)
	case StepCountDir:
		var n uint32
		n, result, err = c.CountDir(step.Path)
		if err == nil && result == ipc.ResultOK {
			sr.Count = &n
		}
	case StepReadDir:
		sr.Entries, result, err = c.ReadDir(step.Path, step.OutSize)
		if err == nil && result == ipc.ResultOK {
			n := uint32(len(sr.Entries))
			sr.Count = &n
		}
	case StepGetUsage:
		var u ipc.Usage
		u, result, err = c.GetUsage(step.Path)
		if err == nil && result == ipc.ResultOK {
			sr.Usage = &u
		}
	default:
		return sr, fmt.Errorf(common.ErrUnknownScriptCommand, step.Command)
	}

	if err != nil {
		result = ipc.ResultFatal
	}
	sr.Result = result.String()
	sr.Code = int32(result)
	return sr, err
}

// EncodeReport writes report as YAML to w
func EncodeReport(w io.Writer, report *ReplayReport) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(report); err != nil {
		return common.FormatError(common.ErrFailedToEncodeReport, err)
	}
	return encoder.Close()
}

// WriteReport writes report as YAML to filename
func WriteReport(filename string, report *ReplayReport) error {
	f, err := os.Create(filename)
	if err != nil {
		return common.FormatError(common.ErrFailedToCreateReport, err)
	}
	defer f.Close()

	if err := EncodeReport(f, report); err != nil {
		return err
	}
	common.LogInfo(common.InfoReplayFinished, len(report.Steps), filename)
	return nil
}
