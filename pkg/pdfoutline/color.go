package pdfoutline

import (
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rexliu/pdfmarks/pkg/core"
)

var namedRGB = map[core.Color][3]float64{
	core.ColorRed:    {1, 0, 0},
	core.ColorBlue:   {0, 0, 1},
	core.ColorGreen:  {0, 1, 0},
	core.ColorYellow: {1, 1, 0},
	core.ColorPurple: {0.5, 0, 0.5},
}

// bucketColor maps an outline /C triple to a named color. Triples outside
// every bucket, including ones written from custom hex colors, decode to none.
func bucketColor(r, g, b float64) core.Color {
	switch {
	case r > 0.8 && g < 0.3 && b < 0.3:
		return core.ColorRed
	case r < 0.3 && g < 0.3 && b > 0.8:
		return core.ColorBlue
	case r < 0.3 && g > 0.8 && b < 0.3:
		return core.ColorGreen
	case r > 0.8 && g > 0.8 && b < 0.3:
		return core.ColorYellow
	case r > 0.5 && g < 0.5 && b > 0.5:
		return core.ColorPurple
	}
	return core.ColorNone
}

func decodeColor(o types.Object) core.Color {
	arr, ok := asArray(o)
	if !ok || len(arr) < 3 {
		return core.ColorNone
	}
	var rgb [3]float64
	for i := range rgb {
		v, ok := asNumber(arr[i])
		if !ok {
			return core.ColorNone
		}
		rgb[i] = v
	}
	return bucketColor(rgb[0], rgb[1], rgb[2])
}

// rgbOf returns the /C triple for c. Unknown names and malformed hex
// strings report false.
func rgbOf(c core.Color) ([3]float64, bool) {
	if rgb, ok := namedRGB[c]; ok {
		return rgb, true
	}
	s := string(c)
	if !c.IsCustom() || len(s) != 7 {
		return [3]float64{}, false
	}
	var rgb [3]float64
	for i := range rgb {
		v, err := strconv.ParseUint(s[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return [3]float64{}, false
		}
		rgb[i] = float64(v) / 255
	}
	return rgb, true
}

func encodeColor(c core.Color) (types.Array, bool) {
	rgb, ok := rgbOf(c)
	if !ok {
		return nil, false
	}
	return types.Array{types.Float(rgb[0]), types.Float(rgb[1]), types.Float(rgb[2])}, true
}

func decodeStyle(o types.Object) core.Style {
	flags, ok := asNumber(o)
	if !ok {
		return core.StyleNormal
	}
	f := int(flags)
	italic, bold := f&1 != 0, f&2 != 0
	switch {
	case bold && italic:
		return core.StyleBoldItalic
	case bold:
		return core.StyleBold
	case italic:
		return core.StyleItalic
	}
	return core.StyleNormal
}

func styleFlags(s core.Style) int {
	switch s {
	case core.StyleItalic:
		return 1
	case core.StyleBold:
		return 2
	case core.StyleBoldItalic:
		return 3
	}
	return 0
}
