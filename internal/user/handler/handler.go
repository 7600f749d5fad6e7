package handler

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"nomen/internal/platform/middleware"
	"nomen/internal/user/models"
	"nomen/internal/user/service"
	dErrors "nomen/pkg/domain-errors"
	"nomen/pkg/platform/httputil"
	"nomen/pkg/platform/validation"
)

// usernamePattern enforces the natural key format at the boundary, before
// version negotiation: a letter followed by 2-19 letters, digits or
// underscores. Violations answer 403, matching the resource contract rather
// than the usual 400 for malformed input.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{2,19}$`)

// Service defines the user operations the handler delegates to.
// Returns domain results, not HTTP response DTOs.
type Service interface {
	Find(ctx context.Context, username, explicitVersion string) (*service.Result, error)
	Create(ctx context.Context, username, explicitVersion string, rep models.Representation) (*service.Result, error)
	Update(ctx context.Context, username, explicitVersion string, rep models.Representation) (*service.Result, error)
	Delete(ctx context.Context, username, explicitVersion string) (*service.Result, error)
	Migrate(ctx context.Context) ([]models.Representation, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/user/{username}", h.HandleGetUser)
	r.Post("/user/{username}", h.HandleCreateUser)
	r.Put("/user/{username}", h.HandleUpdateUser)
	r.Delete("/user/{username}", h.HandleDeleteUser)
	r.Post("/admin/migrate", h.HandleMigrate)
}

// HandleGetUser returns the user in the negotiated generation's shape.
// An explicit version=1 performs the read anyway and relays the latest-shape
// result alongside a permanent redirect.
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	username := chi.URLParam(r, "username")

	res, err := h.service.Find(ctx, username, r.URL.Query().Get("version"))
	if err != nil {
		h.logError(ctx, "get user failed", err, requestID, username)
		httputil.WriteError(w, err)
		return
	}

	h.writeResult(w, username, res, http.StatusOK)
}

// HandleCreateUser creates the user. An explicit version=1 answers a 308
// redirect without touching storage: 308 preserves method and body, so the
// client resubmits the same create under the latest generation.
func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	username := chi.URLParam(r, "username")

	if !usernamePattern.MatchString(username) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "invalid username"))
		return
	}

	if r.URL.Query().Get("version") == "1" {
		w.Header().Set("Location", latestLocation(username))
		w.WriteHeader(http.StatusPermanentRedirect)
		return
	}

	rep, ok := httputil.DecodeJSON[models.Representation](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := checkNameLengths(rep); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Create(ctx, username, r.URL.Query().Get("version"), *rep)
	if err != nil {
		h.logError(ctx, "create user failed", err, requestID, username)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Location", "/user/"+username)
	h.writeResult(w, username, res, http.StatusCreated)
}

// HandleUpdateUser applies a partial update in the negotiated generation.
func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	username := chi.URLParam(r, "username")

	rep, ok := httputil.DecodeJSON[models.Representation](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := checkNameLengths(rep); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Update(ctx, username, r.URL.Query().Get("version"), *rep)
	if err != nil {
		h.logError(ctx, "update user failed", err, requestID, username)
		httputil.WriteError(w, err)
		return
	}

	h.writeResult(w, username, res, http.StatusOK)
}

// HandleDeleteUser deletes the user and answers with the deleted snapshot.
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	username := chi.URLParam(r, "username")

	res, err := h.service.Delete(ctx, username, r.URL.Query().Get("version"))
	if err != nil {
		h.logError(ctx, "delete user failed", err, requestID, username)
		httputil.WriteError(w, err)
		return
	}

	h.writeResult(w, username, res, http.StatusOK)
}

// HandleMigrate runs the bulk migration sweep and lists the upgraded records.
func (h *Handler) HandleMigrate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	migrated, err := h.service.Migrate(ctx)
	if err != nil {
		h.logError(ctx, "migration sweep failed", err, requestID, "")
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, migrated)
}

// writeResult writes the encoded representation. Superseded results carry a
// permanent redirect to the same resource under the latest generation, with
// the already-computed result as the body.
func (h *Handler) writeResult(w http.ResponseWriter, username string, res *service.Result, status int) {
	if res.Superseded {
		w.Header().Set("Location", latestLocation(username))
		status = http.StatusMovedPermanently
	}
	httputil.WriteJSON(w, status, res.Representation)
}

func (h *Handler) logError(ctx context.Context, msg string, err error, requestID, username string) {
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", requestID,
		"username", username,
	)
}

func latestLocation(username string) string {
	return "/user/" + username + "?version=2"
}

// checkNameLengths rejects oversized name fields before negotiation sees them.
func checkNameLengths(rep *models.Representation) error {
	for field, value := range map[string]*string{
		"fullName":  rep.FullName,
		"firstName": rep.FirstName,
		"lastName":  rep.LastName,
	} {
		if value == nil {
			continue
		}
		if err := validation.CheckStringLength(field, *value, validation.MaxNameLength); err != nil {
			return err
		}
	}
	return nil
}
