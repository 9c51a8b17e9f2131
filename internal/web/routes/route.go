// Package routes maps URL paths to lazily loaded page components.
//
// A table is a tree: top-level entries are usually layouts whose children
// are pages. Matching walks the tree depth-first in declaration order, so
// the first declared match wins and a catch-all entry must come last.
package routes

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
)

var (
	ErrCatchAllNotLast = errors.New("catch-all route must be the last top-level entry")
	ErrNoLoader        = errors.New("route has no loader")
	ErrDuplicateName   = errors.New("duplicate route name")
	ErrUnknownName     = errors.New("unknown route name")
	ErrMissingParam    = errors.New("missing route parameter")
)

// Params holds the values of ":name" path segments. Values are passed
// through as-is; pages validate them.
type Params map[string]string

// Slot is what a component renders: its child's output (layouts only), the
// route params, and caller-supplied data such as the session state.
type Slot struct {
	Content template.HTML
	Params  Params
	Data    any
}

type Component interface {
	Render(w io.Writer, s Slot) error
}

// Loader produces a route's component. It runs at most once per route.
type Loader func(ctx context.Context) (Component, error)

// Route declares one entry. A child path starting with "/" is absolute;
// otherwise it is joined to the parent's path ("" means the parent itself).
type Route struct {
	Path     string
	Name     string
	Load     Loader
	Children []Route
}

// Entry is a compiled route.
type Entry struct {
	route    Route
	fullPath string
	segments []segment
	catchAll bool
	children []*Entry

	once sync.Once
	comp Component
	err  error
}

func (e *Entry) Path() string     { return e.route.Path }
func (e *Entry) Name() string     { return e.route.Name }
func (e *Entry) FullPath() string { return e.fullPath }
func (e *Entry) CatchAll() bool   { return e.catchAll }
func (e *Entry) IsLayout() bool   { return len(e.children) > 0 }

// Component loads the entry's component on first use and caches the result,
// including a load error.
func (e *Entry) Component(ctx context.Context) (Component, error) {
	e.once.Do(func() {
		e.comp, e.err = e.route.Load(ctx)
		if e.err == nil && e.comp == nil {
			e.err = fmt.Errorf("route %q: loader returned no component", e.fullPath)
		}
	})
	return e.comp, e.err
}

type segment struct {
	literal string
	param   string
}

func joinPath(parent, child string) string {
	switch {
	case strings.HasPrefix(child, "/"):
		return child
	case child == "":
		return parent
	case strings.HasSuffix(parent, "/"):
		return parent + child
	default:
		return parent + "/" + child
	}
}

// parseCatchAll recognises "/:name(.*)*" and returns name.
func parseCatchAll(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/:")
	if !ok {
		return "", false
	}
	name, ok := strings.CutSuffix(rest, "(.*)*")
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func compileSegments(path string) []segment {
	parts := splitPath(path)
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		if name, ok := strings.CutPrefix(p, ":"); ok {
			segs = append(segs, segment{param: name})
			continue
		}
		segs = append(segs, segment{literal: p})
	}
	return segs
}

// match reports whether path fits the entry's own pattern.
func (e *Entry) match(parts []string) (Params, bool) {
	if e.catchAll {
		name := e.segments[0].param
		return Params{name: strings.Join(parts, "/")}, true
	}
	if len(parts) != len(e.segments) {
		return nil, false
	}
	var params Params
	for i, s := range e.segments {
		if s.param != "" {
			if params == nil {
				params = Params{}
			}
			params[s.param] = parts[i]
			continue
		}
		if s.literal != parts[i] {
			return nil, false
		}
	}
	return params, true
}
