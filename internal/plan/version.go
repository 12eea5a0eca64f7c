// internal/plan/version.go
package plan

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// "Versions with the fix: 20.21.0 and later"
	fixSuffixPattern = regexp.MustCompile(`(?i)Versions with the fix:\s*(\d+\.\d+\.\d+)\s+and later`)
	// "Fixed in: 1.2.3" or "Fixed in version 1.2.3"
	fixedInPattern = regexp.MustCompile(`(?i)Fixed in:?\s+(?:version\s+)?(\d+\.\d+\.\d+)`)

	sentenceEndPattern = regexp.MustCompile(`[.!?]\s`)
)

// extractFixVersion scrapes a fix version out of prose advisory
// descriptions. Some advisories only mention the patched release in
// free text rather than in the structured vulnerability records.
func extractFixVersion(description string) string {
	if description == "" {
		return ""
	}
	if m := fixSuffixPattern.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	if m := fixedInPattern.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	return ""
}

// parseVersion splits a version string into leading numeric components
// per dot-separated part. "1.2rc1.3" becomes [1 2 3]; parts with no
// leading digits become 0.
func parseVersion(version string) []int {
	v := strings.TrimPrefix(version, "v")
	parts := strings.Split(v, ".")
	nums := make([]int, 0, len(parts))
	for _, part := range parts {
		digits := ""
		for _, r := range part {
			if r < '0' || r > '9' {
				break
			}
			digits += string(r)
		}
		if digits == "" {
			nums = append(nums, 0)
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			nums = append(nums, 0)
			continue
		}
		nums = append(nums, n)
	}
	return nums
}

func compareParts(a, b []int) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// maxNumericVersion returns the highest version by numeric component
// comparison. Ties keep the later entry, matching a stable sort by
// parsed parts.
func maxNumericVersion(versions []string) string {
	best := ""
	var bestParts []int
	for _, v := range versions {
		parts := parseVersion(v)
		if best == "" || compareParts(parts, bestParts) >= 0 {
			best = v
			bestParts = parts
		}
	}
	return best
}

// maxStringVersion returns the lexicographically highest version. This
// misorders multi-digit components ("1.9.0" over "1.10.0") but matches
// how non-pip ecosystems have always been handled; changing it would
// silently retarget existing plans.
func maxStringVersion(versions []string) string {
	best := ""
	for _, v := range versions {
		if v > best {
			best = v
		}
	}
	return best
}

// targetVersion picks the version to upgrade to from the set of fix
// versions. Pip gets proper numeric comparison.
func targetVersion(ecosystem string, fixVersions []string) string {
	if len(fixVersions) == 0 {
		return ""
	}
	if strings.EqualFold(ecosystem, "pip") {
		return maxNumericVersion(fixVersions)
	}
	return maxStringVersion(fixVersions)
}

// truncateSummary shortens advisory text to its first sentence, or to
// maxSummaryLen at a word boundary.
func truncateSummary(text string) string {
	const maxSummaryLen = 200

	if text == "" {
		return ""
	}

	if loc := sentenceEndPattern.FindStringIndex(text); loc != nil {
		sentence := strings.TrimSpace(text[:loc[1]])
		if len(sentence) <= maxSummaryLen {
			return sentence
		}
	}

	if len(text) <= maxSummaryLen {
		return strings.TrimSpace(text)
	}

	cut := text[:maxSummaryLen]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "..."
}
