package video

import (
	"strconv"
	"strings"
)

// SupportedDurations are the clip lengths the renderer accepts, ascending.
var SupportedDurations = []int{4, 6, 8}

// QuantizeDuration rounds seconds down to the nearest supported tier.
// Requests above the largest tier get the largest; requests below the
// smallest get the smallest.
func QuantizeDuration(seconds int) int {
	tiers := SupportedDurations
	chosen := tiers[0]
	for _, tier := range tiers {
		if tier <= seconds {
			chosen = tier
		}
	}
	return chosen
}

const DefaultRatio = "1280:720"

var namedRatios = map[string]string{
	"16:9": "1280:720",
	"9:16": "720:1280",
	"1:1":  "960:960",
}

// RendererRatio maps a user-facing aspect name onto the renderer's pixel
// ratio. Pixel ratios pass through; anything unrecognised gets DefaultRatio.
func RendererRatio(aspect string) string {
	aspect = strings.TrimSpace(aspect)
	if aspect == "" {
		return DefaultRatio
	}
	if r, ok := namedRatios[aspect]; ok {
		return r
	}
	w, h, ok := strings.Cut(aspect, ":")
	if !ok {
		return DefaultRatio
	}
	wi, errW := strconv.Atoi(w)
	hi, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || wi < 100 || hi < 100 {
		return DefaultRatio
	}
	return aspect
}
