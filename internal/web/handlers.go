package web

import (
	"bytes"
	"net/http"
	"time"

	"github.com/dmitrijs2005/snapgram/internal/client/store"
	"github.com/dmitrijs2005/snapgram/internal/logging"
	"github.com/dmitrijs2005/snapgram/internal/web/routes"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handler builds the router: middleware, form endpoints, the toast socket,
// and every page of the route table.
func (app *App) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(app.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(app.sessions.Middleware)

	r.Post("/login", app.handleLogin)
	r.Post("/signup", app.handleSignup)
	r.Post("/logout", app.handleLogout)
	r.Get("/ws/toasts", app.handleToasts)

	app.routes.Mount(r, app.handlePage)
	return r
}

func requestLogger(l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			l.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func (app *App) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, ok := SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusInternalServerError)
	}
	return s, ok
}

func (app *App) handlePage(w http.ResponseWriter, r *http.Request, m routes.Match) {
	s, ok := app.session(w, r)
	if !ok {
		return
	}

	data := PageData{State: s.Store.Snapshot(), Toasts: s.Toasts.Drain()}

	var buf bytes.Buffer
	if err := m.Render(r.Context(), &buf, data); err != nil {
		app.logger.Error(r.Context(), "render page", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if m.Page.CatchAll() {
		w.WriteHeader(http.StatusNotFound)
	}
	_, _ = buf.WriteTo(w)
}

func (app *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	s, ok := app.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	s.Store.SetLogin(r.PostFormValue("email"), r.PostFormValue("password"))
	s.Store.HandleSubmit(r.Context())

	if s.Store.Snapshot().LoginSuccess {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (app *App) handleSignup(w http.ResponseWriter, r *http.Request) {
	s, ok := app.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	s.Store.SetForm(store.Form{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Username: r.PostFormValue("username"),
		DOB:      r.PostFormValue("dob"),
	})
	s.Store.CreateAccount(r.Context())

	if s.Store.Snapshot().CreateAcc {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/signup", http.StatusSeeOther)
}

func (app *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	s, ok := app.session(w, r)
	if !ok {
		return
	}
	s.Store.LogoutUser(r.Context())
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (app *App) handleToasts(w http.ResponseWriter, r *http.Request) {
	s, ok := app.session(w, r)
	if !ok {
		return
	}
	app.ws.Serve(w, r, s.Toasts)
}
