package console

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/platinummonkey/venuedesk/pkg/auth"
	"github.com/platinummonkey/venuedesk/pkg/backend"
	"github.com/platinummonkey/venuedesk/pkg/httputil"
	"github.com/platinummonkey/venuedesk/pkg/middleware"
	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/platinummonkey/venuedesk/pkg/navigation"
	"github.com/platinummonkey/venuedesk/pkg/observability"
)

//go:embed templates/*.html
var templateFS embed.FS

func parsePages() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// pageData is the view model shared by every page template
type pageData struct {
	Title    string
	Error    string
	Next     string
	Email    string
	Remember bool
	Form     backend.RegisterRequest

	User     *auth.Session
	Nav      navigation.Layout
	Expanded navigation.Expansion
	Active   string
	Module   modules.ID
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		observability.FromContext(r.Context()).WithError(err).WithField("template", name).Error("failed to render page")
	}
}

// safeNext keeps post-login redirects on this origin and off the auth pages
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	switch modules.BasePath(u.Path) {
	case middleware.LoginPath, "/register", "/logout":
		return ""
	}
	return next
}

func requestService(r *http.Request) (*auth.Service, bool) {
	return middleware.ServiceFromContext(r.Context())
}

// settle waits a bounded time for the browser's session to be validated
func (s *Server) settle(r *http.Request, svc *auth.Service) auth.State {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.LoadingWait)
	defer cancel()
	return svc.Await(ctx)
}

func wantsJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

type redirectResponse struct {
	Redirect string `json:"redirect"`
}

// authStatus maps a login or registration failure to an HTTP status
func authStatus(err *auth.Error) int {
	switch err.Kind {
	case auth.KindInvalid:
		return http.StatusBadRequest
	case auth.KindCredentials:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusUnauthorized
	case auth.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func asAuthError(err error) *auth.Error {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return authErr
	}
	return &auth.Error{Kind: auth.KindStorage, Message: "Something went wrong. Please try again.", Err: err}
}

// alreadySignedIn sends an authenticated browser away from the auth pages
func (s *Server) alreadySignedIn(w http.ResponseWriter, r *http.Request, next string) bool {
	svc, ok := requestService(r)
	if !ok || s.settle(r, svc) != auth.StateAuthenticated {
		return false
	}
	if next == "" {
		next = string(auth.RedirectDefault)
	}
	http.Redirect(w, r, next, http.StatusFound)
	return true
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if s.alreadySignedIn(w, r, next) {
		return
	}
	s.render(w, r, "login.html", http.StatusOK, pageData{Title: "Sign in", Next: next})
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
	Next       string `json:"next"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	svc, ok := requestService(r)
	if !ok {
		httputil.WriteInternalError(w, nil)
		return
	}

	var in loginRequest
	if wantsJSONBody(r) {
		if !httputil.ParseJSONOrError(w, r, &in) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httputil.WriteBadRequest(w, "invalid form")
			return
		}
		in = loginRequest{
			Email:      r.PostFormValue("email"),
			Password:   r.PostFormValue("password"),
			RememberMe: httputil.FormBool(r, "remember"),
			Next:       r.PostFormValue("next"),
		}
	}
	next := safeNext(in.Next)

	redirect, err := svc.Login(r.Context(), in.Email, in.Password, in.RememberMe)
	if err != nil {
		authErr := asAuthError(err)
		if httputil.WantsJSON(r) || wantsJSONBody(r) {
			httputil.WriteErrorMessage(w, authStatus(authErr), authErr.Message)
			return
		}
		s.render(w, r, "login.html", authStatus(authErr), pageData{
			Title:    "Sign in",
			Error:    authErr.Message,
			Next:     next,
			Email:    in.Email,
			Remember: in.RememberMe,
		})
		return
	}

	location := string(redirect)
	if next != "" {
		location = next
	}
	if httputil.WantsJSON(r) || wantsJSONBody(r) {
		httputil.WriteSuccess(w, redirectResponse{Redirect: location})
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	if s.alreadySignedIn(w, r, "") {
		return
	}
	s.render(w, r, "register.html", http.StatusOK, pageData{Title: "Create your venue"})
}

type registerRequest struct {
	backend.RegisterRequest
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	svc, ok := requestService(r)
	if !ok {
		httputil.WriteInternalError(w, nil)
		return
	}

	var in registerRequest
	if wantsJSONBody(r) {
		if !httputil.ParseJSONOrError(w, r, &in) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httputil.WriteBadRequest(w, "invalid form")
			return
		}
		in.Name = r.PostFormValue("name")
		in.Email = r.PostFormValue("email")
		in.Password = r.PostFormValue("password")
		in.ConfirmPassword = r.PostFormValue("confirmPassword")
		in.CompanyName = r.PostFormValue("companyName")
		in.Phone = r.PostFormValue("phone")
		in.BillingAddress = r.PostFormValue("billingAddress")
	}

	var err error
	redirect := auth.RedirectDefault
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		err = &auth.Error{Kind: auth.KindInvalid, Message: "Passwords do not match"}
	} else {
		redirect, err = svc.Register(r.Context(), in.RegisterRequest)
	}
	if err != nil {
		authErr := asAuthError(err)
		if httputil.WantsJSON(r) || wantsJSONBody(r) {
			httputil.WriteErrorMessage(w, authStatus(authErr), authErr.Message)
			return
		}
		form := in.RegisterRequest
		form.Password = ""
		s.render(w, r, "register.html", authStatus(authErr), pageData{
			Title: "Create your venue",
			Error: authErr.Message,
			Form:  form,
		})
		return
	}

	if httputil.WantsJSON(r) || wantsJSONBody(r) {
		httputil.WriteCreated(w, redirectResponse{Redirect: string(redirect)})
		return
	}
	http.Redirect(w, r, string(redirect), http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	redirect := auth.RedirectLogin
	if svc, ok := requestService(r); ok {
		if sess := svc.Session(); sess != nil {
			s.opts.Settings.Invalidate(sess.TenantID)
		}
		redirect = svc.Logout(r.Context())
	}

	if httputil.WantsJSON(r) {
		httputil.WriteSuccess(w, redirectResponse{Redirect: string(redirect)})
		return
	}
	http.Redirect(w, r, string(redirect), http.StatusSeeOther)
}

func (s *Server) noAccess(w http.ResponseWriter, r *http.Request) {
	var user *auth.Session
	if svc, ok := requestService(r); ok {
		if s.settle(r, svc) == auth.StateAuthenticated {
			user = svc.Session()
		}
	}
	if user == nil {
		http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
		return
	}
	s.render(w, r, "no_access.html", http.StatusForbidden, pageData{Title: "No access", User: user})
}
