package images

import (
	"fmt"
	"regexp"
)

// Pixel geometry of the pre-scaled thumbnail variant the image origin
// exposes. The placeholder uses the same dimensions.
const (
	TargetWidth  = 1070
	TargetHeight = 1536
)

var (
	sizedSuffixPattern = regexp.MustCompile(`(?i)-\d+x\d+\.(jpg|jpeg|png|webp)$`)
	extensionPattern   = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)$`)
)

// OptimizedURL derives the pre-scaled variant of a source image URL by
// inserting the target dimensions before the file extension. URLs that
// already carry a WxH suffix, or whose extension is not recognised, are
// returned unchanged.
func OptimizedURL(raw string) string {
	if sizedSuffixPattern.MatchString(raw) {
		return raw
	}
	loc := extensionPattern.FindStringIndex(raw)
	if loc == nil {
		return raw
	}
	return fmt.Sprintf("%s-%dx%d%s", raw[:loc[0]], TargetWidth, TargetHeight, raw[loc[0]:])
}

// candidateURLs lists the fetch attempts for a source URL, best first.
func candidateURLs(raw string) []string {
	optimized := OptimizedURL(raw)
	if optimized == raw {
		return []string{raw}
	}
	return []string{optimized, raw}
}
