package snapshot

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"github.com/odvcencio/snap/pkg/fault"
)

// IgnoreFileName is the root-level file whose patterns are left out of
// snapshots.
const IgnoreFileName = ".snapignore"

// Ignore decides which working-tree paths a snapshot skips. The zero value
// and a nil *Ignore ignore nothing.
//
// Pattern syntax is a subset of gitignore. Blank lines and lines starting
// with # are skipped. A leading ! re-includes and a trailing / matches
// directories only. A pattern containing / (including a leading one) is
// matched against the full path, anything else against the base name.
// * and ? never cross a slash; ** does. The last matching pattern wins.
type Ignore struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	glob     string
	negated  bool
	dirOnly  bool
	anchored bool // match the whole path, not the base name
	re       *regexp.Regexp
}

// ParseIgnore reads patterns from r, one per line.
func ParseIgnore(r io.Reader) (*Ignore, error) {
	ign := &Ignore{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p, ok, err := parseIgnoreLine(sc.Text())
		if err != nil {
			return nil, err
		}
		if ok {
			ign.patterns = append(ign.patterns, p)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fault.IO("parse ignore", "", err)
	}
	return ign, nil
}

// LoadIgnore parses name from fsys. A missing file yields an empty Ignore.
func LoadIgnore(fsys fs.FS, name string) (*Ignore, error) {
	f, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Ignore{}, nil
		}
		return nil, fault.IO("open ignore", name, err)
	}
	defer f.Close()

	ign, err := ParseIgnore(f)
	if err != nil {
		return nil, fault.InvalidInput("%s: %v", name, err)
	}
	return ign, nil
}

func parseIgnoreLine(line string) (ignorePattern, bool, error) {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return ignorePattern{}, false, nil
	}

	var p ignorePattern
	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	rooted := strings.HasPrefix(line, "/")
	line = strings.TrimPrefix(line, "/")
	if line == "" {
		return ignorePattern{}, false, nil
	}
	p.anchored = rooted || strings.Contains(line, "/")
	p.glob = line

	if strings.Contains(line, "**") {
		re, err := regexp.Compile(globToRegexp(line))
		if err != nil {
			return ignorePattern{}, false, fault.InvalidInput("bad pattern %q: %v", line, err)
		}
		p.re = re
	} else if _, err := path.Match(line, ""); err != nil {
		return ignorePattern{}, false, fault.InvalidInput("bad pattern %q: %v", line, err)
	}
	return p, true, nil
}

// Len returns the number of parsed patterns.
func (ign *Ignore) Len() int {
	if ign == nil {
		return 0
	}
	return len(ign.patterns)
}

// Match reports whether the slash-separated path p, relative to the
// snapshot root, is ignored. Paths below an ignored directory are never
// visited by Scan, so only p itself is tested.
func (ign *Ignore) Match(p string, isDir bool) bool {
	if ign == nil {
		return false
	}
	base := path.Base(p)
	ignored := false
	for _, pat := range ign.patterns {
		if pat.dirOnly && !isDir {
			continue
		}
		target := base
		if pat.anchored {
			target = p
		}
		if pat.match(target) {
			ignored = !pat.negated
		}
	}
	return ignored
}

// MatchPath is Match for a path whose ancestors have not been checked: it
// also reports true when any parent directory of p is ignored.
func (ign *Ignore) MatchPath(p string, isDir bool) bool {
	if ign.Len() == 0 {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] == '/' && ign.Match(p[:i], true) {
			return true
		}
	}
	return ign.Match(p, isDir)
}

func (p ignorePattern) match(target string) bool {
	if p.re != nil {
		return p.re.MatchString(target)
	}
	ok, _ := path.Match(p.glob, target)
	return ok
}

func globToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case ch == '*' && i+1 < len(pattern) && pattern[i+1] == '*':
			if i+2 < len(pattern) && pattern[i+2] == '/' {
				// "**/" matches zero or more leading directories.
				b.WriteString("(?:.*/)?")
				i += 2
			} else {
				b.WriteString(".*")
				i++
			}
		case ch == '*':
			b.WriteString("[^/]*")
		case ch == '?':
			b.WriteString("[^/]")
		default:
			if strings.ContainsRune(`.+()|[]{}^$\`, rune(ch)) {
				b.WriteByte('\\')
			}
			b.WriteByte(ch)
		}
	}
	b.WriteString("$")
	return b.String()
}
