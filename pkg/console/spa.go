package console

import (
	"embed"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/venuedesk/pkg/middleware"
	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/platinummonkey/venuedesk/pkg/navigation"
)

//go:embed assets
var assetFS embed.FS

// spa returns the asset handler and the gated app handler. With a static
// directory the app handler always answers with index.html for client-side
// routing; files that exist in the directory are matched earlier by
// staticFile and served without the guard. Without one, the embedded shell
// page is rendered.
func (s *Server) spa() (assets http.Handler, app http.Handler) {
	if s.opts.StaticDir == "" {
		return http.FileServer(http.FS(assetFS)), http.HandlerFunc(s.shellPage)
	}

	index := filepath.Join(s.opts.StaticDir, "index.html")
	app = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(index); err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, index)
	})
	return http.FileServer(http.Dir(s.opts.StaticDir)), app
}

// staticFile matches requests naming a regular file in the static
// directory. index.html and hidden files are left to the gated app route.
func (s *Server) staticFile(r *http.Request, _ *mux.RouteMatch) bool {
	if s.opts.StaticDir == "" {
		return false
	}
	name := path.Clean("/" + r.URL.Path)
	if name == "/" || name == "/index.html" || strings.Contains(name, "/.") {
		return false
	}
	f, err := http.Dir(s.opts.StaticDir).Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	return err == nil && !info.IsDir()
}

// shellPage renders the built-in shell with the filtered sidebar
func (s *Server) shellPage(w http.ResponseWriter, r *http.Request) {
	svc, ok := requestService(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	sess := svc.Session()
	if sess == nil {
		http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
		return
	}

	nav := navigation.Filter(s.opts.Navigation.Layout(), sess.AllowedModules)
	data := pageData{
		Title:    "Venue Desk",
		User:     sess,
		Nav:      nav,
		Expanded: navigation.Reconcile(nav, nil, r.URL.Path),
		Active:   r.URL.Path,
	}
	if id, ok := modules.ForPath(r.URL.Path); ok {
		data.Module = id
		if m, ok := modules.Lookup(id); ok {
			data.Title = m.DisplayName
		}
	}
	s.render(w, r, "shell.html", http.StatusOK, data)
}
