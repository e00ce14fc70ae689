// Package wii provides console-specific structures and functionality.
// This file contains disc layout and IPC request constants.
package wii

// Disc header layout
const (
	DiscHeaderSize    = 0x440      // Boot header (game id, title, magic words)
	DiscGameIDOffset  = 0x00       // 4-byte game code + 2-byte maker code
	DiscWiiMagicOff   = 0x18       // Wii disc magic word
	DiscGCMagicOff    = 0x1C       // GameCube disc magic word
	DiscTitleOffset   = 0x20       // NUL-padded game title
	DiscTitleIDOffset = 0x0F8001DC // Raw offset of the low title id word
	WiiMagic          = 0x5D1C9EA3
	GameCubeMagic     = 0xC2339F3D
)

// IPC command kinds found at offset 0 of a request record. /dev/fs answers
// Read, Write and Seek with an unsupported command error.
const (
	IPCCommandOpen   = 1
	IPCCommandClose  = 2
	IPCCommandRead   = 3
	IPCCommandWrite  = 4
	IPCCommandSeek   = 5
	IPCCommandIOCtl  = 6
	IPCCommandIOCtlV = 7
)

// Default guest RAM size (MEM1 + MEM2 view is not modelled, flat 24 MiB)
const DefaultMemorySize = 0x01800000
