package hlsproxy

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	variantRegex = regexp.MustCompile(`^hls_[0-9A-Za-z_-]+/playlist\.m3u8$`)
	uriAttrRegex = regexp.MustCompile(`URI="([^"]*)"`)
)

type variant struct {
	tag int // index of #EXT-X-STREAM-INF line, the uri follows it
	uri string
}

// masterVariants lists stream entries pointing to rendition playlists.
func masterVariants(lines []string) []variant {
	variants := []variant{}
	for i := 0; i+1 < len(lines); i++ {
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), "#EXT-X-STREAM-INF") {
			continue
		}

		uri := strings.TrimSpace(lines[i+1])
		if variantRegex.MatchString(uri) {
			variants = append(variants, variant{tag: i, uri: uri})
		}
	}
	return variants
}

// dropVariants removes tag and uri lines of the given variants.
func dropVariants(lines []string, drop []variant) []string {
	skip := map[int]struct{}{}
	for _, v := range drop {
		skip[v.tag] = struct{}{}
		skip[v.tag+1] = struct{}{}
	}

	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if _, ok := skip[i]; !ok {
			kept = append(kept, line)
		}
	}
	return kept
}

// rewritePlaylist points every relative reference of a playlist located
// in dir to the gateway, under prefix.
func rewritePlaylist(text, prefix, dir string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// tags may carry uri attributes
		if strings.HasPrefix(trimmed, "#") {
			lines[i] = uriAttrRegex.ReplaceAllStringFunc(line, func(attr string) string {
				ref := uriAttrRegex.FindStringSubmatch(attr)[1]
				return `URI="` + resolveReference(ref, prefix, dir) + `"`
			})
			continue
		}

		lines[i] = resolveReference(trimmed, prefix, dir)
	}
	return strings.Join(lines, "\n")
}

func resolveReference(ref, prefix, dir string) string {
	if ref == "" || strings.HasPrefix(ref, "/") {
		return ref
	}

	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}

	return prefix + path.Join(dir, ref)
}
