package directory

import (
	"strings"
	"unicode/utf8"
)

const (
	// Separator delimits segments in a full path.
	Separator = "/"

	// RootDiscriminator is the reserved name of every directory's root folder.
	RootDiscriminator = "root"

	// RootPath is the full path of the root folder.
	RootPath = Separator + RootDiscriminator

	// rootParentPath is the sentinel parent path of the root folder.
	rootParentPath = ""

	// forbiddenChars lists the characters no path or discriminator may contain.
	forbiddenChars = `\#?$"'<>:;|*`
)

// Path is a parsed, validated full path with a single-use forward cursor
// over its segments.
//
// A Path is always valid once constructed. The cursor cannot be rewound; a
// second traversal needs a new Path built from Raw().
type Path struct {
	raw      string
	segments []string
	pos      int
}

// NewPath parses raw into a Path.
//
// raw must be non-empty, start with "/", contain only non-empty segments and
// none of the forbidden characters. Trailing slashes are ignored.
func NewPath(raw string) (*Path, error) {
	segments, err := parseSegments(raw)
	if err != nil {
		return nil, err
	}
	return &Path{raw: raw, segments: segments}, nil
}

// Raw returns the string the path was parsed from.
func (p *Path) Raw() string {
	return p.raw
}

// Segments returns a copy of the path's segments.
func (p *Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// CanonicalPath returns raw without trailing separators, the form under
// which records are stored.
func CanonicalPath(raw string) (string, error) {
	segments, err := parseSegments(raw)
	if err != nil {
		return "", err
	}
	return Separator + strings.Join(segments, Separator), nil
}

// Depth returns the number of segments.
func (p *Path) Depth() int {
	return len(p.segments)
}

// Current returns the segment under the cursor. ok is false once the cursor
// has moved past the last segment.
func (p *Path) Current() (segment string, ok bool) {
	if p.pos >= len(p.segments) {
		return "", false
	}
	return p.segments[p.pos], true
}

// HasNext reports whether a segment follows the current one.
func (p *Path) HasNext() bool {
	return p.pos+1 < len(p.segments)
}

// Advance moves the cursor to the next segment.
func (p *Path) Advance() {
	if p.pos < len(p.segments) {
		p.pos++
	}
}

// ValidatePath reports whether raw is an acceptable full path.
func ValidatePath(raw string) error {
	_, err := parseSegments(raw)
	return err
}

// ValidateDiscriminator reports whether name is acceptable as a single
// folder or file name.
func ValidateDiscriminator(name string) error {
	if name == "" {
		return invalidDiscriminator(name, "empty")
	}
	if !utf8.ValidString(name) {
		return invalidDiscriminator(name, "not valid UTF-8")
	}
	if strings.Contains(name, Separator) {
		return invalidDiscriminator(name, "contains a separator")
	}
	if strings.ContainsAny(name, forbiddenChars) {
		return invalidDiscriminator(name, "contains a forbidden character")
	}
	return nil
}

// PathsAreEqual reports whether a and b are both valid and name the same
// sequence of segments. A trailing slash does not matter.
func PathsAreEqual(a, b string) bool {
	sa, err := parseSegments(a)
	if err != nil {
		return false
	}
	sb, err := parseSegments(b)
	if err != nil {
		return false
	}
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// Combine joins a parent path and a discriminator into a validated full path.
func Combine(parentPath, discriminator string) (string, error) {
	if err := ValidateDiscriminator(discriminator); err != nil {
		return "", err
	}
	full := strings.TrimRight(parentPath, Separator) + Separator + discriminator
	if err := ValidatePath(full); err != nil {
		return "", err
	}
	return full, nil
}

// Depth returns the number of segments of raw, or 0 when raw is invalid.
func Depth(raw string) int {
	segments, err := parseSegments(raw)
	if err != nil {
		return 0
	}
	return len(segments)
}

func parseSegments(raw string) ([]string, error) {
	if raw == "" {
		return nil, invalidPath(raw, "empty")
	}
	if !strings.HasPrefix(raw, Separator) {
		return nil, invalidPath(raw, "missing leading separator")
	}
	if !utf8.ValidString(raw) {
		return nil, invalidPath(raw, "not valid UTF-8")
	}
	if strings.ContainsAny(raw, forbiddenChars) {
		return nil, invalidPath(raw, "contains a forbidden character")
	}

	trimmed := strings.TrimRight(strings.TrimPrefix(raw, Separator), Separator)
	if trimmed == "" {
		return nil, invalidPath(raw, "no segments")
	}

	segments := strings.Split(trimmed, Separator)
	for _, s := range segments {
		if s == "" {
			return nil, invalidPath(raw, "empty segment")
		}
	}
	return segments, nil
}
