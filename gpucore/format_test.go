package gpucore

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestBytesPerTexel(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		want   int
		ok     bool
	}{
		{gputypes.TextureFormatR8Unorm, 1, true},
		{gputypes.TextureFormatRG8Uint, 2, true},
		{gputypes.TextureFormatR32Sint, 4, true},
		{gputypes.TextureFormatR32Uint, 4, true},
		{gputypes.TextureFormatRGBA8UnormSrgb, 4, true},
		{gputypes.TextureFormatRG32Float, 8, true},
		{gputypes.TextureFormatRGBA16Float, 8, true},
		{gputypes.TextureFormatRGBA32Uint, 16, true},
		{gputypes.TextureFormatDepth32Float, 0, false},
		{gputypes.TextureFormatBC1RGBAUnorm, 0, false},
		{gputypes.TextureFormatUndefined, 0, false},
	}
	for _, tt := range tests {
		got, ok := BytesPerTexel(tt.format)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BytesPerTexel(%v) = %d, %v; want %d, %v", tt.format, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBytesPerTexelCoversColorRange(t *testing.T) {
	for f := firstColorFormat; f <= lastColorFormat; f++ {
		if _, ok := BytesPerTexel(f); !ok {
			t.Errorf("BytesPerTexel(%v) not defined", f)
		}
	}
}

func TestSampleType(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		want   gputypes.TextureSampleType
	}{
		{gputypes.TextureFormatR32Sint, gputypes.TextureSampleTypeSint},
		{gputypes.TextureFormatR32Uint, gputypes.TextureSampleTypeUint},
		{gputypes.TextureFormatRGBA32Uint, gputypes.TextureSampleTypeUint},
		{gputypes.TextureFormatR8Unorm, gputypes.TextureSampleTypeFloat},
		{gputypes.TextureFormatRGBA16Float, gputypes.TextureSampleTypeFloat},
		{gputypes.TextureFormatR32Float, gputypes.TextureSampleTypeUnfilterableFloat},
		{gputypes.TextureFormatRGBA32Float, gputypes.TextureSampleTypeUnfilterableFloat},
		{gputypes.TextureFormatDepth24Plus, gputypes.TextureSampleTypeUndefined},
	}
	for _, tt := range tests {
		if got := SampleType(tt.format); got != tt.want {
			t.Errorf("SampleType(%v) = %v, want %v", tt.format, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"RGBA32Uint", "rgba32uint", "R8Unorm"} {
		f, err := ParseFormat(s)
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", s, err)
			continue
		}
		if !strings.EqualFold(f.String(), s) {
			t.Errorf("ParseFormat(%q) = %v", s, f)
		}
	}
	for _, s := range []string{"", "Depth32Float", "BC1RGBAUnorm", "R99"} {
		if _, err := ParseFormat(s); err == nil {
			t.Errorf("ParseFormat(%q) succeeded, want error", s)
		}
	}
}

func TestDrawIndirectArgs(t *testing.T) {
	args := DrawIndirectArgs{VertexCount: 4, InstanceCount: 3}
	b := args.Bytes()
	if len(b) != DrawIndirectArgsSize {
		t.Fatalf("len(Bytes()) = %d, want %d", len(b), DrawIndirectArgsSize)
	}
	want := []byte{4, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if string(b) != string(want) {
		t.Errorf("Bytes() = %v, want %v", b, want)
	}
	got, ok := ParseDrawIndirectArgs(b)
	if !ok || got != args {
		t.Errorf("ParseDrawIndirectArgs() = %+v, %v", got, ok)
	}
	if _, ok := ParseDrawIndirectArgs(b[:8]); ok {
		t.Error("ParseDrawIndirectArgs(short) = ok")
	}
}

func TestIsFatal(t *testing.T) {
	base := errors.New("out of memory")
	err := AllocationError("buffer", "field_buffer", base)
	if !IsFatal(err) || !errors.Is(err, base) {
		t.Errorf("AllocationError() = %v, want fatal wrapping base", err)
	}
	if IsFatal(base) {
		t.Error("plain error reported as fatal")
	}
	if !IsFatal(fmt.Errorf("bind: %w", ErrUnknownResource)) {
		t.Error("ErrUnknownResource should be fatal")
	}
}
