package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// requestIDHeader carries the per-request correlation ID, generated when
// the client does not supply one.
const requestIDHeader = "X-Request-Id"

// errorBody is the JSON shape of an authentication failure response.
type errorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Data    errorBodyData `json:"data"`
}

type errorBodyData struct {
	Status int `json:"status"`
}

// Middleware returns HTTP middleware that authenticates requests through
// the gate before they reach the wrapped handler.
//
// Requests outside cfg.RoutePrefix pass through untouched. A skipped
// decision (no credentials) also passes through; handlers that require a
// caller check [PrincipalFrom] themselves. A rejection short-circuits
// with a JSON error body whose status and wire code come from the
// rejection's error code: expired tokens and unlinked accounts produce
// 401, other claim problems 400, infrastructure failures 500.
func Middleware(gate *Gate, cfg Config, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.RoutePrefix != "" && !strings.HasPrefix(r.URL.Path, cfg.RoutePrefix) {
				next.ServeHTTP(w, r)
				return
			}

			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			decision := gate.Authenticate(r.Context(), Credentials{
				Authorization: r.Header.Get("Authorization"),
			})

			switch decision.State {
			case StateAuthenticated:
				logger.DebugContext(r.Context(), "request authenticated",
					"request_id", requestID,
					"subject", decision.Principal.Subject,
					"user_id", decision.Principal.UserID,
				)
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), decision.Principal)))

			case StateRejected:
				logger.WarnContext(r.Context(), "request rejected",
					"request_id", requestID,
					"path", r.URL.Path,
					"error", decision.Err,
				)
				WriteError(w, decision.Err)

			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// WriteError writes an authentication failure as a JSON response. The
// status and wire code come from the error's classification; errors
// without a code are treated as internal.
func WriteError(w http.ResponseWriter, err error) {
	rgError, ok := rgerr.AsError(err)
	if !ok {
		rgError = rgerr.Wrap(err, rgerr.CodeInternal, "auth: authentication failed")
	}

	status := rgError.HTTPStatus()
	body := errorBody{
		Code:    rgError.RESTCode(),
		Message: rgError.Message,
		Data:    errorBodyData{Status: status},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
