package routes

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Table is an immutable, validated route tree.
type Table struct {
	roots  []*Entry
	byName map[string]*Entry
}

// New compiles and validates routes. A catch-all entry is only allowed as
// the last top-level route.
func New(routes []Route) (*Table, error) {
	t := &Table{byName: make(map[string]*Entry)}

	for i, r := range routes {
		e, err := t.compile(r, "/", true)
		if err != nil {
			return nil, err
		}
		if e.catchAll && i != len(routes)-1 {
			return nil, fmt.Errorf("%w: %q at position %d", ErrCatchAllNotLast, r.Path, i)
		}
		t.roots = append(t.roots, e)
	}
	return t, nil
}

func (t *Table) compile(r Route, parent string, top bool) (*Entry, error) {
	if r.Load == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoLoader, r.Path)
	}

	e := &Entry{route: r}
	if name, ok := parseCatchAll(r.Path); ok {
		if !top || len(r.Children) > 0 {
			return nil, fmt.Errorf("%w: %q must be a top-level leaf", ErrCatchAllNotLast, r.Path)
		}
		e.catchAll = true
		e.fullPath = r.Path
		e.segments = []segment{{param: name}}
	} else {
		e.fullPath = joinPath(parent, r.Path)
		e.segments = compileSegments(e.fullPath)
	}

	if r.Name != "" {
		if _, dup := t.byName[r.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, r.Name)
		}
		t.byName[r.Name] = e
	}

	for _, c := range r.Children {
		child, err := t.compile(c, e.fullPath, false)
		if err != nil {
			return nil, err
		}
		e.children = append(e.children, child)
	}
	return e, nil
}

// Match is a resolved route: the layouts from outermost in, the page, and
// the path params.
type Match struct {
	Layouts []*Entry
	Page    *Entry
	Params  Params
}

// Match resolves path. Layouts only match through one of their children.
func (t *Table) Match(path string) (Match, bool) {
	parts := splitPath(path)
	for _, root := range t.roots {
		if m, ok := matchEntry(root, parts, nil); ok {
			return m, true
		}
	}
	return Match{}, false
}

func matchEntry(e *Entry, parts []string, layouts []*Entry) (Match, bool) {
	if e.IsLayout() {
		chain := append(append([]*Entry(nil), layouts...), e)
		for _, c := range e.children {
			if m, ok := matchEntry(c, parts, chain); ok {
				return m, true
			}
		}
		return Match{}, false
	}
	params, ok := e.match(parts)
	if !ok {
		return Match{}, false
	}
	return Match{Layouts: layouts, Page: e, Params: params}, true
}

// Render loads every component of the match and writes the page wrapped in
// its layouts.
func (m Match) Render(ctx context.Context, w io.Writer, data any) error {
	chain := append(append([]*Entry(nil), m.Layouts...), m.Page)

	var content template.HTML
	for i := len(chain) - 1; i >= 0; i-- {
		comp, err := chain[i].Component(ctx)
		if err != nil {
			return fmt.Errorf("load %q: %w", chain[i].FullPath(), err)
		}
		var buf bytes.Buffer
		if err := comp.Render(&buf, Slot{Content: content, Params: m.Params, Data: data}); err != nil {
			return fmt.Errorf("render %q: %w", chain[i].FullPath(), err)
		}
		content = template.HTML(buf.String())
	}
	_, err := io.WriteString(w, string(content))
	return err
}

// ByName builds the path of a named route, substituting params.
func (t *Table) ByName(name string, params Params) (string, error) {
	e, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	parts := make([]string, 0, len(e.segments))
	for _, s := range e.segments {
		if s.param == "" {
			parts = append(parts, s.literal)
			continue
		}
		v, ok := params[s.param]
		if !ok || v == "" {
			return "", fmt.Errorf("%w: %q for route %q", ErrMissingParam, s.param, name)
		}
		parts = append(parts, v)
	}
	return "/" + strings.Join(parts, "/"), nil
}

// Lookup returns the entry registered under name.
func (t *Table) Lookup(name string) (*Entry, bool) {
	e, ok := t.byName[name]
	return e, ok
}

// HandlerFunc serves a resolved route.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, m Match)

// Mount registers a GET handler for every page on r, translating ":id" to
// chi's "{id}". The catch-all entry becomes r's NotFound handler.
func (t *Table) Mount(r chi.Router, handle HandlerFunc) {
	for _, root := range t.roots {
		t.mountEntry(r, root, nil, handle)
	}
}

func (t *Table) mountEntry(r chi.Router, e *Entry, layouts []*Entry, handle HandlerFunc) {
	if e.IsLayout() {
		chain := append(append([]*Entry(nil), layouts...), e)
		for _, c := range e.children {
			t.mountEntry(r, c, chain, handle)
		}
		return
	}

	if e.catchAll {
		name := e.segments[0].param
		r.NotFound(func(w http.ResponseWriter, req *http.Request) {
			rest := strings.Trim(req.URL.Path, "/")
			handle(w, req, Match{Layouts: layouts, Page: e, Params: Params{name: rest}})
		})
		return
	}

	r.Get(chiPattern(e.segments), func(w http.ResponseWriter, req *http.Request) {
		var params Params
		for _, s := range e.segments {
			if s.param == "" {
				continue
			}
			if params == nil {
				params = Params{}
			}
			params[s.param] = chi.URLParam(req, s.param)
		}
		handle(w, req, Match{Layouts: layouts, Page: e, Params: params})
	})
}

func chiPattern(segs []segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		if s.param != "" {
			b.WriteString("{" + s.param + "}")
			continue
		}
		b.WriteString(s.literal)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
