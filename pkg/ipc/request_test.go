package ipc

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hansbonini/wiifs/pkg/wii"
)

func TestIOCtlRequest_WireLayout(t *testing.T) {
	mem := wii.NewRAM(0x1000)
	req := IOCtlRequest{
		Parameter: IOCtlGetAttr,
		In:        Buffer{Address: 0x400, Size: 64},
		Out:       Buffer{Address: 0x800, Size: 76},
	}
	if err := req.Write(mem, 0x100, 3); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	words := map[uint32]uint32{
		0x00: wii.IPCCommandIOCtl,
		0x08: 3,
		0x0C: IOCtlGetAttr,
		0x10: 0x400,
		0x14: 64,
		0x18: 0x800,
		0x1C: 76,
	}
	for offset, want := range words {
		got, err := mem.Read32(0x100 + offset)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("word at +0x%02X = 0x%X, want 0x%X", offset, got, want)
		}
	}

	decoded, err := ReadIOCtl(mem, 0x100)
	if err != nil {
		t.Fatalf("ReadIOCtl() failed: %v", err)
	}
	if diff := cmp.Diff(req, decoded); diff != "" {
		t.Errorf("ReadIOCtl() mismatch (-want +got):\n%s", diff)
	}
}

func TestIOCtlVRequest_WireLayout(t *testing.T) {
	mem := wii.NewRAM(0x1000)
	req := IOCtlVRequest{
		Parameter: IOCtlVReadDir,
		In:        []Buffer{{Address: 0x400, Size: 64}},
		Payload:   []Buffer{{Address: 0x500, Size: 0x100}, {Address: 0x600, Size: 4}},
	}
	if err := req.Write(mem, 0x100, 0x200, 3); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	for offset, want := range map[uint32]uint32{0x10: 1, 0x14: 2, 0x18: 0x200} {
		if got, _ := mem.Read32(0x100 + offset); got != want {
			t.Errorf("word at +0x%02X = 0x%X, want 0x%X", offset, got, want)
		}
	}
	// Inputs come first in the descriptor vector
	if got, _ := mem.Read32(0x200); got != 0x400 {
		t.Errorf("vector[0].addr = 0x%X, want 0x400", got)
	}
	if got, _ := mem.Read32(0x200 + 2*8 + 4); got != 4 {
		t.Errorf("vector[2].size = %d, want 4", got)
	}

	decoded, err := ReadIOCtlV(mem, 0x100)
	if err != nil {
		t.Fatalf("ReadIOCtlV() failed: %v", err)
	}
	if diff := cmp.Diff(req, decoded); diff != "" {
		t.Errorf("ReadIOCtlV() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadIOCtlV_TooManyVectors(t *testing.T) {
	mem := wii.NewRAM(0x1000)
	_ = mem.Write32(0x100+0x10, maxVectors)
	_ = mem.Write32(0x100+0x14, 1)

	if _, err := ReadIOCtlV(mem, 0x100); err == nil {
		t.Error("ReadIOCtlV() should reject more than maxVectors descriptors")
	}

	_ = mem.Write32(0x100+0x10, 0xFFFFFFFF)
	_ = mem.Write32(0x100+0x14, 2)
	if _, err := ReadIOCtlV(mem, 0x100); err == nil {
		t.Error("ReadIOCtlV() should reject overflowing descriptor counts")
	}
}

func TestReadIOCtl_OutOfBounds(t *testing.T) {
	mem := wii.NewRAM(0x100)
	if _, err := ReadIOCtl(mem, 0xF0); err == nil {
		t.Error("ReadIOCtl() past the end of memory should fail")
	}
}

func TestWriteOpen(t *testing.T) {
	mem := wii.NewRAM(0x100)
	if err := WriteOpen(mem, 0x20, 2); err != nil {
		t.Fatalf("WriteOpen() failed: %v", err)
	}
	if got, _ := ReadCommand(mem, 0x20); got != wii.IPCCommandOpen {
		t.Errorf("ReadCommand() = %d, want %d", got, wii.IPCCommandOpen)
	}
	if got, _ := mem.Read32(0x20 + 0x10); got != 2 {
		t.Errorf("mode = %d, want 2", got)
	}
}

func TestResult_Word(t *testing.T) {
	tests := []struct {
		result Result
		word   uint32
		name   string
	}{
		{ResultOK, 0, "FS_RESULT_OK"},
		{ResultDirFileNotFound, 0xFFFFFFFA, "FS_DIRFILE_NOT_FOUND"},
		{ResultInvalidArgument, 0xFFFFFF9B, "FS_INVALID_ARGUMENT"},
		{ResultFileExist, 0xFFFFFF97, "FS_FILE_EXIST"},
		{ResultFileNotExist, 0xFFFFFF96, "FS_FILE_NOT_EXIST"},
		{ResultFatal, 0xFFFFFF80, "FS_RESULT_FATAL"},
	}

	mem := wii.NewRAM(0x100)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Word(); got != tt.word {
				t.Errorf("Word() = 0x%08X, want 0x%08X", got, tt.word)
			}
			if got := tt.result.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if err := writeResult(mem, 0, tt.result.Word()); err != nil {
				t.Fatal(err)
			}
			if got, _ := ReadResult(mem, 0); got != tt.result {
				t.Errorf("ReadResult() = %d, want %d", got, tt.result)
			}
		})
	}
}
