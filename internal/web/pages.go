package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/dmitrijs2005/snapgram/internal/client/store"
	"github.com/dmitrijs2005/snapgram/internal/notify"
	"github.com/dmitrijs2005/snapgram/internal/web/routes"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData is what every page and layout template sees as .Data.
type PageData struct {
	State  store.State
	Toasts []notify.Toast
}

type templateComponent struct {
	t *template.Template
}

func (c templateComponent) Render(w io.Writer, s routes.Slot) error {
	return c.t.Execute(w, s)
}

// loader parses templates/<component>.html the first time its route is hit.
func (app *App) loader(component string) routes.Loader {
	return func(context.Context) (routes.Component, error) {
		file := component + ".html"
		t, err := template.New(file).Funcs(app.funcs()).ParseFS(templateFS, "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		app.logger.Debug(context.Background(), "page loaded", "component", component)
		return templateComponent{t: t}, nil
	}
}

func (app *App) funcs() template.FuncMap {
	return template.FuncMap{
		"profileURL": func(id string) (string, error) {
			return app.routes.ByName(routes.OtherProfile, routes.Params{"id": id})
		},
		"timeoutMS": func(t notify.Toast) int64 {
			return t.Timeout.Milliseconds()
		},
	}
}
