package gpucore

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// Uncompressed color formats span this contiguous range of gputypes values.
const (
	firstColorFormat = gputypes.TextureFormatR8Unorm
	lastColorFormat  = gputypes.TextureFormatRGBA32Sint
)

// BytesPerTexel returns the size of one texel of an uncompressed color
// format. Depth, stencil and block-compressed formats report false.
func BytesPerTexel(f gputypes.TextureFormat) (int, bool) {
	switch f {
	case gputypes.TextureFormatR8Unorm, gputypes.TextureFormatR8Snorm,
		gputypes.TextureFormatR8Uint, gputypes.TextureFormatR8Sint:
		return 1, true
	case gputypes.TextureFormatR16Unorm, gputypes.TextureFormatR16Snorm,
		gputypes.TextureFormatR16Uint, gputypes.TextureFormatR16Sint, gputypes.TextureFormatR16Float,
		gputypes.TextureFormatRG8Unorm, gputypes.TextureFormatRG8Snorm,
		gputypes.TextureFormatRG8Uint, gputypes.TextureFormatRG8Sint:
		return 2, true
	case gputypes.TextureFormatR32Float, gputypes.TextureFormatR32Uint, gputypes.TextureFormatR32Sint,
		gputypes.TextureFormatRG16Unorm, gputypes.TextureFormatRG16Snorm,
		gputypes.TextureFormatRG16Uint, gputypes.TextureFormatRG16Sint, gputypes.TextureFormatRG16Float,
		gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatRGBA8Snorm,
		gputypes.TextureFormatRGBA8Uint, gputypes.TextureFormatRGBA8Sint,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatRGB10A2Uint, gputypes.TextureFormatRGB10A2Unorm,
		gputypes.TextureFormatRG11B10Ufloat, gputypes.TextureFormatRGB9E5Ufloat:
		return 4, true
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatRG32Uint, gputypes.TextureFormatRG32Sint,
		gputypes.TextureFormatRGBA16Unorm, gputypes.TextureFormatRGBA16Snorm,
		gputypes.TextureFormatRGBA16Uint, gputypes.TextureFormatRGBA16Sint, gputypes.TextureFormatRGBA16Float:
		return 8, true
	case gputypes.TextureFormatRGBA32Float, gputypes.TextureFormatRGBA32Uint, gputypes.TextureFormatRGBA32Sint:
		return 16, true
	default:
		return 0, false
	}
}

// SampleType returns the sample type a texture binding of format f uses.
// 32-bit float formats are not filterable without an optional feature, so
// they report TextureSampleTypeUnfilterableFloat.
func SampleType(f gputypes.TextureFormat) gputypes.TextureSampleType {
	if _, ok := BytesPerTexel(f); !ok {
		return gputypes.TextureSampleTypeUndefined
	}
	name := f.String()
	switch {
	case strings.HasSuffix(name, "Sint"):
		return gputypes.TextureSampleTypeSint
	case strings.HasSuffix(name, "Uint"):
		return gputypes.TextureSampleTypeUint
	case strings.HasSuffix(name, "32Float"):
		return gputypes.TextureSampleTypeUnfilterableFloat
	default:
		return gputypes.TextureSampleTypeFloat
	}
}

// ParseFormat parses an uncompressed color format by its gputypes name,
// ignoring case ("RGBA32Uint", "r32sint").
func ParseFormat(s string) (gputypes.TextureFormat, error) {
	for f := firstColorFormat; f <= lastColorFormat; f++ {
		if strings.EqualFold(f.String(), s) {
			return f, nil
		}
	}
	return gputypes.TextureFormatUndefined, fmt.Errorf("unknown or unsupported texture format %q", s)
}
