package gpucore

import "encoding/binary"

// DrawIndirectArgs is the argument block of a non-indexed indirect draw.
// Its byte layout matches the one the GPU reads from an indirect buffer.
type DrawIndirectArgs struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

// DrawIndirectArgsSize is the encoded size of DrawIndirectArgs in bytes.
const DrawIndirectArgsSize = 16

// Bytes encodes the arguments in little-endian order.
func (a DrawIndirectArgs) Bytes() []byte {
	b := make([]byte, 0, DrawIndirectArgsSize)
	b = binary.LittleEndian.AppendUint32(b, a.VertexCount)
	b = binary.LittleEndian.AppendUint32(b, a.InstanceCount)
	b = binary.LittleEndian.AppendUint32(b, a.FirstVertex)
	b = binary.LittleEndian.AppendUint32(b, a.FirstInstance)
	return b
}

// ParseDrawIndirectArgs decodes arguments previously encoded by Bytes.
// It returns false when b is shorter than DrawIndirectArgsSize.
func ParseDrawIndirectArgs(b []byte) (DrawIndirectArgs, bool) {
	if len(b) < DrawIndirectArgsSize {
		return DrawIndirectArgs{}, false
	}
	le := binary.LittleEndian
	return DrawIndirectArgs{
		VertexCount:   le.Uint32(b[0:]),
		InstanceCount: le.Uint32(b[4:]),
		FirstVertex:   le.Uint32(b[8:]),
		FirstInstance: le.Uint32(b[12:]),
	}, true
}
