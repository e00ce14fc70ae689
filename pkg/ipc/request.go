package ipc

import (
	"fmt"

	"github.com/hansbonini/wiifs/pkg/wii"
)

// maxVectors bounds the descriptor count of a single IOCtlV request
const maxVectors = 32

// Buffer is a guest memory region named by a request
type Buffer struct {
	Address uint32
	Size    uint32
}

var (
	ioctlRequestLayout = NewLayout("IOCtl",
		U32("command"), U32("result"), U32("fd"), U32("parameter"),
		U32("in_addr"), U32("in_size"), U32("out_addr"), U32("out_size"),
	)

	ioctlvRequestLayout = NewLayout("IOCtlV",
		U32("command"), U32("result"), U32("fd"), U32("parameter"),
		U32("num_in"), U32("num_payload"), U32("vector"),
	)

	ioVectorLayout = NewLayout("IOVector", U32("addr"), U32("size"))

	// openRequestLayout overlays the mode on the IOCtl input address word
	openRequestLayout = NewLayout("Open",
		U32("command"), U32("result"), U32("fd"), Pad(4), U32("mode"),
	)
)

// Offset of the result word, shared by every request kind
var resultOffset = ioctlRequestLayout.Offset("result")

// IOCtlRequest is a decoded scalar request
type IOCtlRequest struct {
	Parameter uint32
	In        Buffer
	Out       Buffer
}

// IOCtlVRequest is a decoded vectorized request
type IOCtlVRequest struct {
	Parameter uint32
	In        []Buffer
	Payload   []Buffer
}

// ReadCommand returns the IPC command kind of the request at addr
func ReadCommand(mem wii.Memory, addr uint32) (uint32, error) {
	return mem.Read32(addr + ioctlRequestLayout.Offset("command"))
}

// ReadIOCtl decodes the scalar request at addr
func ReadIOCtl(mem wii.Memory, addr uint32) (IOCtlRequest, error) {
	r, err := ioctlRequestLayout.Decode(mem, addr)
	if err != nil {
		return IOCtlRequest{}, err
	}
	return IOCtlRequest{
		Parameter: r.Uint("parameter"),
		In:        Buffer{Address: r.Uint("in_addr"), Size: r.Uint("in_size")},
		Out:       Buffer{Address: r.Uint("out_addr"), Size: r.Uint("out_size")},
	}, nil
}

// Write stores req as an IOCtl request record at addr
func (req IOCtlRequest) Write(mem wii.Memory, addr, fd uint32) error {
	r := ioctlRequestLayout.NewRecord().
		SetUint("command", wii.IPCCommandIOCtl).
		SetUint("fd", fd).
		SetUint("parameter", req.Parameter).
		SetUint("in_addr", req.In.Address).
		SetUint("in_size", req.In.Size).
		SetUint("out_addr", req.Out.Address).
		SetUint("out_size", req.Out.Size)
	return ioctlRequestLayout.Encode(mem, addr, r)
}

// ReadIOCtlV decodes the vectorized request at addr, inputs first
func ReadIOCtlV(mem wii.Memory, addr uint32) (IOCtlVRequest, error) {
	r, err := ioctlvRequestLayout.Decode(mem, addr)
	if err != nil {
		return IOCtlVRequest{}, err
	}
	numIn, numPayload := r.Uint("num_in"), r.Uint("num_payload")
	if numIn+numPayload > maxVectors || numIn+numPayload < numIn {
		return IOCtlVRequest{}, fmt.Errorf("IOCtlV: %d+%d buffers exceeds %d", numIn, numPayload, maxVectors)
	}

	buffers := make([]Buffer, 0, numIn+numPayload)
	vector := r.Uint("vector")
	for i := uint32(0); i < numIn+numPayload; i++ {
		v, err := ioVectorLayout.Decode(mem, vector+i*ioVectorLayout.Size())
		if err != nil {
			return IOCtlVRequest{}, err
		}
		buffers = append(buffers, Buffer{Address: v.Uint("addr"), Size: v.Uint("size")})
	}

	return IOCtlVRequest{
		Parameter: r.Uint("parameter"),
		In:        buffers[:numIn],
		Payload:   buffers[numIn:],
	}, nil
}

// Write stores req as an IOCtlV request record at addr with its descriptor
// vector at vectorAddr
func (req IOCtlVRequest) Write(mem wii.Memory, addr, vectorAddr, fd uint32) error {
	r := ioctlvRequestLayout.NewRecord().
		SetUint("command", wii.IPCCommandIOCtlV).
		SetUint("fd", fd).
		SetUint("parameter", req.Parameter).
		SetUint("num_in", uint32(len(req.In))).
		SetUint("num_payload", uint32(len(req.Payload))).
		SetUint("vector", vectorAddr)
	if err := ioctlvRequestLayout.Encode(mem, addr, r); err != nil {
		return err
	}

	all := append(append([]Buffer(nil), req.In...), req.Payload...)
	for i, b := range all {
		v := ioVectorLayout.NewRecord().SetUint("addr", b.Address).SetUint("size", b.Size)
		if err := ioVectorLayout.Encode(mem, vectorAddr+uint32(i)*ioVectorLayout.Size(), v); err != nil {
			return err
		}
	}
	return nil
}

// WriteOpen stores an Open request record at addr
func WriteOpen(mem wii.Memory, addr, mode uint32) error {
	r := openRequestLayout.NewRecord().
		SetUint("command", wii.IPCCommandOpen).
		SetUint("mode", mode)
	return openRequestLayout.Encode(mem, addr, r)
}

// ReadResult returns the status word of the request at addr
func ReadResult(mem wii.Memory, addr uint32) (Result, error) {
	v, err := mem.Read32(addr + resultOffset)
	return Result(int32(v)), err
}

func writeResult(mem wii.Memory, addr uint32, value uint32) error {
	return mem.Write32(addr+resultOffset, value)
}
