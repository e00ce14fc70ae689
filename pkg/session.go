package pkg

import (
	"fmt"
	"os"

	"github.com/hansbonini/wiifs/pkg/common"
	"github.com/hansbonini/wiifs/pkg/hostfs"
	"github.com/hansbonini/wiifs/pkg/ipc"
	"github.com/hansbonini/wiifs/pkg/wii"
)

// sessionScratchBase is where the session stages its guest requests
const sessionScratchBase = 0x00001000

// Session owns the guest memory, the optional disc and the /dev/fs device
type Session struct {
	config Config
	mem    *wii.RAM
	disc   *wii.DiscImage
	device *ipc.FSDevice
	client *ipc.Client
}

// NewSession builds a session from cfg. The NAND root is created if needed.
func NewSession(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	common.SetVerboseMode(cfg.Verbose || common.VerboseMode)

	if err := os.MkdirAll(cfg.NANDRoot, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create NAND root %s: %w", cfg.NANDRoot, err)
	}
	paths, err := ipc.NewPathTranslator(cfg.NANDRoot)
	if err != nil {
		return nil, err
	}

	s := &Session{config: cfg, mem: wii.NewRAM(cfg.MemorySize)}

	var volume wii.Volume
	if cfg.DiscImage != "" {
		disc, err := wii.NewDiscImage(cfg.DiscImage)
		if err != nil {
			return nil, common.FormatError(common.ErrFailedToOpenDiscImage, err)
		}
		s.disc = disc
		volume = disc
		if header := disc.Header(); header != nil {
			common.LogInfo(common.InfoDiscMounted, string(header.GameID[:]), header.GameTitle, disc.Size())
		}
	}

	s.device = ipc.NewFSDevice(cfg.DeviceID, s.mem, hostfs.New(), paths, volume)
	s.client = ipc.NewClient(s.device, s.mem, sessionScratchBase)
	return s, nil
}

// Close releases the disc image
func (s *Session) Close() error {
	if s.disc != nil {
		return s.disc.Close()
	}
	return nil
}

// DiscHeader returns the boot header of the mounted disc, nil without one
func (s *Session) DiscHeader() *wii.DiscHeader {
	if s.disc == nil {
		return nil
	}
	return s.disc.Header()
}

// Config returns the settings the session was built from
func (s *Session) Config() Config {
	return s.config
}

// Device returns the /dev/fs device
func (s *Session) Device() *ipc.FSDevice {
	return s.device
}

// Client returns the guest-side request stager
func (s *Session) Client() *ipc.Client {
	return s.client
}

// Open runs the device open handshake and returns the per-title data
// directory, or "" when no valid disc is mounted.
func (s *Session) Open() (string, error) {
	fd, err := s.client.Open(0)
	if err != nil {
		return "", err
	}
	if fd != s.config.DeviceID {
		return "", fmt.Errorf("open answered handle %d, want %d", fd, s.config.DeviceID)
	}
	return s.device.TitleDirectory(), nil
}
