package routes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// textComponent renders "<name>(<child>)" so tests can see the nesting.
type textComponent string

func (c textComponent) Render(w io.Writer, s Slot) error {
	_, err := fmt.Fprintf(w, "%s(%s)", string(c), s.Content)
	return err
}

type loaderSet struct {
	calls map[string]*atomic.Int32
}

func newLoaderSet() *loaderSet {
	return &loaderSet{calls: make(map[string]*atomic.Int32)}
}

func (l *loaderSet) load(name string) Loader {
	n := &atomic.Int32{}
	l.calls[name] = n
	return func(context.Context) (Component, error) {
		n.Add(1)
		return textComponent(name), nil
	}
}

func appTable(t *testing.T) (*Table, *loaderSet) {
	t.Helper()
	ls := newLoaderSet()
	tbl, err := New(Application(ls.load))
	require.NoError(t, err)
	return tbl, ls
}

func TestNew_CatchAllMustBeLast(t *testing.T) {
	ls := newLoaderSet()
	routes := Application(ls.load)
	// move the catch-all to the front
	routes = append([]Route{routes[len(routes)-1]}, routes[:len(routes)-1]...)

	_, err := New(routes)
	require.ErrorIs(t, err, ErrCatchAllNotLast)
}

func TestNew_CatchAllOnlyAtTopLevel(t *testing.T) {
	ls := newLoaderSet()
	_, err := New([]Route{{
		Path: "/",
		Load: ls.load("layout"),
		Children: []Route{
			{Path: "/:rest(.*)*", Load: ls.load("nf")},
		},
	}})
	require.ErrorIs(t, err, ErrCatchAllNotLast)
}

func TestNew_Validation(t *testing.T) {
	ls := newLoaderSet()

	_, err := New([]Route{{Path: "/x"}})
	require.ErrorIs(t, err, ErrNoLoader)

	_, err = New([]Route{
		{Path: "/a", Name: "dup", Load: ls.load("a")},
		{Path: "/b", Name: "dup", Load: ls.load("b")},
	})
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestMatch(t *testing.T) {
	tbl, _ := appTable(t)

	tests := []struct {
		path    string
		layouts []string
		page    string
		params  Params
	}{
		{path: "/", layouts: []string{"/"}, page: "/"},
		{path: "/search", layouts: []string{"/"}, page: "/search"},
		{path: "/chat", layouts: []string{"/"}, page: "/chat"},
		{path: "/users", layouts: []string{"/"}, page: "/users"},
		{path: "/camera", layouts: []string{"/"}, page: "/camera"},
		{path: "/profile", layouts: []string{"/"}, page: "/profile"},
		{path: "/profile/42", layouts: []string{"/"}, page: "/profile/:id", params: Params{"id": "42"}},
		{path: "/profile/not-a-number", layouts: []string{"/"}, page: "/profile/:id", params: Params{"id": "not-a-number"}},
		{path: "/login", layouts: []string{"/auth"}, page: "/login"},
		{path: "/signup", layouts: []string{"/auth"}, page: "/signup"},
		{path: "/auth", page: "/:catchAll(.*)*", params: Params{"catchAll": "auth"}},
		{path: "/nope/deeper", page: "/:catchAll(.*)*", params: Params{"catchAll": "nope/deeper"}},
		{path: "/profile/42/extra", page: "/:catchAll(.*)*", params: Params{"catchAll": "profile/42/extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m, ok := tbl.Match(tt.path)
			require.True(t, ok)

			var layouts []string
			for _, l := range m.Layouts {
				layouts = append(layouts, l.FullPath())
			}
			assert.Equal(t, tt.layouts, layouts)
			assert.Equal(t, tt.page, m.Page.FullPath())
			assert.Equal(t, tt.params, m.Params)
		})
	}
}

func TestMatch_NamedRoute(t *testing.T) {
	tbl, _ := appTable(t)

	m, ok := tbl.Match("/profile/42")
	require.True(t, ok)
	assert.Equal(t, OtherProfile, m.Page.Name())

	e, ok := tbl.Lookup(OtherProfile)
	require.True(t, ok)
	assert.Same(t, e, m.Page)
}

func TestMatch_NoCatchAll(t *testing.T) {
	ls := newLoaderSet()
	tbl, err := New([]Route{{Path: "/a", Load: ls.load("a")}})
	require.NoError(t, err)

	_, ok := tbl.Match("/b")
	assert.False(t, ok)
}

func TestByName(t *testing.T) {
	tbl, _ := appTable(t)

	p, err := tbl.ByName(OtherProfile, Params{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/profile/42", p)

	_, err = tbl.ByName(OtherProfile, nil)
	require.ErrorIs(t, err, ErrMissingParam)

	_, err = tbl.ByName("nope", nil)
	require.ErrorIs(t, err, ErrUnknownName)
}

func TestRender_WrapsLayoutsAndLoadsOnce(t *testing.T) {
	tbl, ls := appTable(t)

	for i := 0; i < 3; i++ {
		m, ok := tbl.Match("/chat")
		require.True(t, ok)

		var sb strings.Builder
		require.NoError(t, m.Render(context.Background(), &sb, nil))
		assert.Equal(t, "MainLayout(PageChat())", sb.String())
	}

	assert.EqualValues(t, 1, ls.calls[MainLayout].Load())
	assert.EqualValues(t, 1, ls.calls[PageChat].Load())
	// never matched, never loaded
	assert.EqualValues(t, 0, ls.calls[PageSignup].Load())
}

func TestRender_LoaderErrorIsCached(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("template missing")
	tbl, err := New([]Route{{Path: "/x", Load: func(context.Context) (Component, error) {
		calls.Add(1)
		return nil, boom
	}}})
	require.NoError(t, err)

	m, _ := tbl.Match("/x")
	for i := 0; i < 2; i++ {
		err := m.Render(context.Background(), io.Discard, nil)
		require.ErrorIs(t, err, boom)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestMount(t *testing.T) {
	tbl, _ := appTable(t)

	r := chi.NewRouter()
	tbl.Mount(r, func(w http.ResponseWriter, req *http.Request, m Match) {
		_, _ = fmt.Fprintf(w, "%s id=%s rest=%s", m.Page.FullPath(), m.Params["id"], m.Params["catchAll"])
	})

	tests := []struct {
		path string
		want string
	}{
		{"/", "/ id= rest="},
		{"/profile/42", "/profile/:id id=42 rest="},
		{"/login", "/login id= rest="},
		{"/unknown/page", "/:catchAll(.*)* id= rest=unknown/page"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/", joinPath("/", ""))
	assert.Equal(t, "/search", joinPath("/", "/search"))
	assert.Equal(t, "/auth/login", joinPath("/auth", "login"))
	assert.Equal(t, "/a/b", joinPath("/a/", "b"))
}
