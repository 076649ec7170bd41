// Package web implements bridgefleetd's read-only fleet status page: a
// session-cookie gated view of the bridges the daemon knows about and the
// result of their last poll.
package web

import (
	"encoding/json"
	"html"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bridgectl/config"
)

// BridgeStatus is a point-in-time snapshot of one polled bridge.
type BridgeStatus struct {
	Name     string            `json:"name"`
	Address  string            `json:"address"`
	Enabled  bool              `json:"enabled"`
	Online   bool              `json:"online"`
	LastPoll time.Time         `json:"last_poll,omitempty"`
	Params   map[string]byte   `json:"params,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// StatusProvider is implemented by bridgefleetd's daemon to expose the
// current fleet snapshot to the web UI without the web package importing
// the daemon's internals.
type StatusProvider interface {
	ListBridges() []BridgeStatus
}

type handlers struct {
	cfg      *config.WebUIConfig
	provider StatusProvider
	sessions *sessionStore
}

// NewRouter builds the status-page router. It does not read cfg.Enabled
// (bridgefleetd mounts it only when the web UI is enabled). Every route
// except /login and /logout requires a session, and login succeeds only for
// a user listed in cfg.Users.
func NewRouter(cfg *config.WebUIConfig, provider StatusProvider) chi.Router {
	h := &handlers{
		cfg:      cfg,
		provider: provider,
		sessions: newSessionStore(cfg.SessionSecret),
	}

	r := chi.NewRouter()
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLoginSubmit)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/", h.handleIndex)
		r.Get("/api/status", h.handleStatusJSON)
	})

	return r
}

func (h *handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := h.sessions.getUser(r); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(loginPageHTML))
}

func (h *handlers) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")

	user := h.findUser(username)
	if user == nil || !checkPassword(password, user.PasswordHash) {
		http.Redirect(w, r, "/login?error=1", http.StatusSeeOther)
		return
	}

	if err := h.sessions.setUser(w, r, user.Username, user.Role); err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.clear(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *handlers) findUser(username string) *config.WebUser {
	for i := range h.cfg.Users {
		if h.cfg.Users[i].Username == username {
			return &h.cfg.Users[i]
		}
	}
	return nil
}

func (h *handlers) handleStatusJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.provider.ListBridges())
}

func (h *handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	username, role, _ := h.sessions.getUser(r)
	bridges := h.provider.ListBridges()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<!doctype html><html><head><title>bridgefleetd</title></head><body>"))
	w.Write([]byte("<p>Signed in as " + html.EscapeString(username) + " (" + html.EscapeString(role) + ") &middot; <form method=post action=/logout style='display:inline'><button>Log out</button></form></p>"))
	w.Write([]byte("<table border=1 cellpadding=4><tr><th>Name</th><th>Address</th><th>Enabled</th><th>Online</th><th>Last poll</th></tr>"))
	for _, b := range bridges {
		status := "no"
		if b.Online {
			status = "yes"
		}
		enabled := "no"
		if b.Enabled {
			enabled = "yes"
		}
		last := ""
		if !b.LastPoll.IsZero() {
			last = b.LastPoll.Format(time.RFC3339)
		}
		w.Write([]byte("<tr><td>" + html.EscapeString(b.Name) + "</td><td>" + html.EscapeString(b.Address) + "</td><td>" + enabled + "</td><td>" + status + "</td><td>" + last + "</td></tr>"))
	}
	w.Write([]byte("</table></body></html>"))
}

const loginPageHTML = `<!doctype html><html><head><title>bridgefleetd login</title></head><body>
<form method=post action=/login>
<label>Username <input name=username></label><br>
<label>Password <input name=password type=password></label><br>
<button type=submit>Sign in</button>
</form>
</body></html>`
