// Package theme builds the board stylesheet once at startup: the embedded
// base CSS plus one rule per registered line color.
package theme

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"sync"
	"sync/atomic"

	"subwaypulse/internal/catalog"
)

const baseFile = "theme.css"

// Theme holds the generated stylesheet. Initialize must run before it is served.
type Theme struct {
	static   fs.FS
	registry *catalog.Registry

	once    sync.Once
	ready   atomic.Bool
	css     []byte
	version string
	err     error
}

// New prepares a theme from the static asset tree and line registry.
func New(static fs.FS, registry *catalog.Registry) *Theme {
	return &Theme{static: static, registry: registry}
}

// Initialize builds the stylesheet and asset version. Only the first call does
// any work; later calls return the first result.
func (t *Theme) Initialize() error {
	t.once.Do(func() {
		base, err := fs.ReadFile(t.static, baseFile)
		if err != nil {
			t.err = fmt.Errorf("read base stylesheet: %w", err)
			return
		}
		var buf bytes.Buffer
		buf.Write(base)
		buf.WriteString("\n/* line colors */\n")
		writeLineRules(&buf, t.registry)
		t.css = buf.Bytes()
		t.version = assetVersion(t.static, t.css)
		t.ready.Store(true)
	})
	return t.err
}

// Initialized reports whether Initialize has completed successfully.
func (t *Theme) Initialized() bool {
	return t.ready.Load()
}

// CSS returns the generated stylesheet.
func (t *Theme) CSS() []byte {
	return t.css
}

// Version is a short content hash for cache busting.
func (t *Theme) Version() string {
	return t.version
}

// ServeHTTP serves the generated stylesheet.
func (t *Theme) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !t.Initialized() {
		http.Error(w, "theme not initialized", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write(t.css)
}

// ClassFor returns the CSS class carrying a line's color.
func ClassFor(line catalog.LineID) string {
	return "line-" + string(line)
}

func writeLineRules(buf *bytes.Buffer, registry *catalog.Registry) {
	lines := registry.Lines()
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	for _, l := range lines {
		color := l.Color
		if color == "" {
			color = catalog.DefaultColor
		}
		fmt.Fprintf(buf, ".%s { background-color: %s; }\n", ClassFor(l.ID), color)
	}
	fmt.Fprintf(buf, ".bullet { background-color: %s; }\n", catalog.DefaultColor)
}

// assetVersion hashes the generated CSS and every script in the static tree.
// Changes to any of them produce a new version.
func assetVersion(static fs.FS, css []byte) string {
	h := md5.New()
	h.Write(css)
	var paths []string
	fs.WalkDir(static, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if path.Ext(p) == ".js" {
			paths = append(paths, p)
		}
		return nil
	})
	sort.Strings(paths)
	for _, p := range paths {
		if data, err := fs.ReadFile(static, p); err == nil {
			h.Write(data)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:8]
}
