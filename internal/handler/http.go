package handler

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/MikhailRaia/bookmark-manager/internal/auth"
	"github.com/MikhailRaia/bookmark-manager/internal/logger"
	"github.com/MikhailRaia/bookmark-manager/internal/middleware"
	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/MikhailRaia/bookmark-manager/internal/pool"
	"github.com/MikhailRaia/bookmark-manager/internal/storage"
	"github.com/MikhailRaia/bookmark-manager/internal/viewmodel"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var renderBuffers = pool.NewWith(32, func() *bytes.Buffer { return new(bytes.Buffer) })

// BookmarkService owns the per-session view models.
type BookmarkService interface {
	Mount(ctx context.Context, identity model.Identity) (*viewmodel.ViewModel, error)
	Current(ctx context.Context, identity model.Identity) (*viewmodel.ViewModel, error)
	Add(ctx context.Context, identity model.Identity, title, url string) (*viewmodel.ViewModel, model.Bookmark, error)
	Remove(ctx context.Context, identity model.Identity, id string) (*viewmodel.ViewModel, error)
}

// SessionGate guards the pages and runs the sign-in flow.
type SessionGate interface {
	middleware.SessionChecker
	Protect(next http.Handler) http.Handler
	GuestOnly(next http.Handler) http.Handler
	HandleSignIn(w http.ResponseWriter, r *http.Request)
	HandleCallback(w http.ResponseWriter, r *http.Request)
	HandleSignOut(w http.ResponseWriter, r *http.Request)
}

type Handler struct {
	bookmarks    BookmarkService
	gate         SessionGate
	pinger       storage.Pinger
	providerName string
}

type Option func(*Handler)

// WithProviderName sets the provider shown on the sign-in button.
func WithProviderName(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.providerName = strings.ToUpper(name[:1]) + name[1:]
		}
	}
}

func NewHandler(bookmarks BookmarkService, gate SessionGate, pinger storage.Pinger, opts ...Option) *Handler {
	h := &Handler{
		bookmarks:    bookmarks,
		gate:         gate,
		pinger:       pinger,
		providerName: "Google",
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) RegisterRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Use(logger.RequestLogger)

	r.Use(middleware.GzipReader)
	r.Use(middleware.GzipMiddleware)

	r.With(h.gate.GuestOnly).Get("/", h.handleSignInPage)

	r.Post("/auth/signin", h.gate.HandleSignIn)
	r.Get("/auth/callback", h.gate.HandleCallback)
	r.Post("/auth/signout", h.gate.HandleSignOut)

	r.Group(func(r chi.Router) {
		r.Use(h.gate.Protect)
		r.Get("/dashboard", h.handleDashboard)
		r.Post("/dashboard/bookmarks", h.handleAddForm)
		r.Post("/dashboard/bookmarks/{id}/delete", h.handleDeleteForm)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(h.gate).RequireSession)
		r.Get("/session", h.handleSession)
		r.Get("/bookmarks", h.handleListJSON)
		r.Post("/bookmarks", h.handleAddJSON)
		r.Delete("/bookmarks/{id}", h.handleDeleteJSON)
	})

	r.Get("/ping", h.handlePing)

	return r
}

type signInPage struct {
	ProviderName string
}

// dashboardPage is always rendered Ready: the initial load finishes before the
// response is written.
type dashboardPage struct {
	Empty     bool
	Bookmarks []model.Bookmark
	Inputs    viewmodel.Inputs
}

func newDashboardPage(vm *viewmodel.ViewModel) dashboardPage {
	snap := vm.Snapshot()
	return dashboardPage{
		Empty:     snap.Empty(),
		Bookmarks: snap.Bookmarks,
		Inputs:    snap.Inputs,
	}
}

func (h *Handler) handleSignInPage(w http.ResponseWriter, r *http.Request) {
	render(w, "signin", signInPage{ProviderName: h.providerName})
}

// handleDashboard mounts a fresh view model for the session. A failed load
// still renders the (empty) ready page; the error policy has already run.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	vm, _ := h.bookmarks.Mount(r.Context(), identity)
	render(w, "dashboard", newDashboardPage(vm))
}

// handleAddForm sends the browser back to the dashboard after a stored add, so
// a refresh cannot repeat the post. An incomplete or failed add renders in
// place and keeps the inputs.
func (h *Handler) handleAddForm(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	vm, _, err := h.bookmarks.Add(r.Context(), identity, r.PostFormValue("title"), r.PostFormValue("url"))
	if err != nil {
		render(w, "dashboard", newDashboardPage(vm))
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleDeleteForm redirects like handleAddForm; a failed delete renders the
// unchanged list.
func (h *Handler) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	vm, err := h.bookmarks.Remove(r.Context(), identity, id)
	if err != nil {
		render(w, "dashboard", newDashboardPage(vm))
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	if h.pinger == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := h.pinger.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("Store ping failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func render(w http.ResponseWriter, name string, data any) {
	buf := renderBuffers.Get()
	defer renderBuffers.Put(buf)

	if err := pages.ExecuteTemplate(buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render page")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
