package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"quizdeck/internal/admin"
	"quizdeck/internal/auth"
	"quizdeck/internal/domain"
	"quizdeck/internal/logging"
)

// AdminHandler exposes the authoring flows over REST for the admin views.
// Every route requires a bearer credential whose group claim contains the
// configured admin marker.
type AdminHandler struct {
	flows      *admin.Flows
	adminGroup string
	log        *logging.Logger
}

func NewAdminHandler(flows *admin.Flows, adminGroup string, log *logging.Logger) *AdminHandler {
	return &AdminHandler{
		flows:      flows,
		adminGroup: adminGroup,
		log:        log.With("component", "admin-http"),
	}
}

// Register attaches the admin routes to the router.
func (h *AdminHandler) Register(r *mux.Router) {
	r.HandleFunc("/questions", h.listQuestions).Methods(http.MethodGet)
	r.HandleFunc("/questions", h.addQuestion).Methods(http.MethodPost)
	r.HandleFunc("/questions/export", h.exportQuestions).Methods(http.MethodGet)
	r.HandleFunc("/questions/import", h.importQuestions).Methods(http.MethodPost)
	r.HandleFunc("/questions/{id}", h.updateQuestion).Methods(http.MethodPut)
	r.HandleFunc("/questions/{id}", h.deleteQuestion).Methods(http.MethodDelete)
	r.HandleFunc("/quizzes", h.createQuiz).Methods(http.MethodPost)
	r.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/scores", h.listScores).Methods(http.MethodGet)
}

func (h *AdminHandler) identity(r *http.Request) (auth.Identity, error) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	id := auth.FromIDToken(strings.TrimSpace(raw))
	if err := id.Require(); err != nil {
		return auth.Identity{}, err
	}
	if !id.IsAdmin(h.adminGroup) {
		return auth.Identity{}, errForbidden
	}
	return id, nil
}

func (h *AdminHandler) listQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := h.identity(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	questions, err := h.flows.Questions(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if query := r.URL.Query().Get("q"); query != "" {
		questions = admin.FilterQuestions(questions, query)
	}
	h.respond(w, http.StatusOK, map[string]any{"questions": questions})
}

func (h *AdminHandler) addQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := h.identity(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var draft admin.QuestionDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.fail(w, domain.Validationf("invalid question body: %v", err))
		return
	}
	if err := h.flows.AddQuestion(r.Context(), id, draft); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, map[string]string{"question_id": strings.TrimSpace(draft.ID)})
}

func (h *AdminHandler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := h.identity(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var q domain.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		h.fail(w, domain.Validationf("invalid question body: %v", err))
		return
	}
	q.ID = mux.Vars(r)["id"]
	if err := h.flows.UpdateQuestion(r.Context(), id, q); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"question_id": q.ID})
}

func (h *AdminHandler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := h.identity(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.flows.DeleteQuestion(r.Context(), id, mux.Vars(r)["id"]); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := h.identity(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var form admin.QuizForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.fail(w, domain.Validationf("invalid quiz body: %v", err))
		return
	}
	quiz, err := h.flows.CreateQuiz(r.Context(), id, form)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, quiz)
}

func (h *AdminHandler) exportQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := h.identity(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	questions, err := h.flows.Questions(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	doc, err := h.flows.ExportQuestions(questions)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="questions_export.json"`)
	w.Write(doc)
}

func (h *AdminHandler) importQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := h.identity(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	doc, err := io.ReadAll(r.Body)
	if err != nil {
		h.fail(w, domain.Validationf("unreadable import body: %v", err))
		return
	}
	report, err := h.flows.ImportQuestions(r.Context(), id, doc)
	if err != nil {
		var ie *domain.ImportError
		if !errors.As(err, &ie) {
			h.fail(w, err)
			return
		}
		// Partial failure: report exactly what landed and what did not.
		failures := make([]map[string]any, 0, len(ie.Failures))
		for _, f := range ie.Failures {
			failures = append(failures, map[string]any{
				"index":       f.Index,
				"question_id": f.QuestionID,
				"error":       f.Err.Error(),
			})
		}
		h.respond(w, http.StatusMultiStatus, map[string]any{
			"attempted": report.Attempted,
			"imported":  report.Imported,
			"failures":  failures,
		})
		return
	}
	h.respond(w, http.StatusOK, map[string]any{
		"attempted": report.Attempted,
		"imported":  report.Imported,
	})
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	id, err := h.identity(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	users, err := h.flows.Users(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"users": users})
}

func (h *AdminHandler) listScores(w http.ResponseWriter, r *http.Request) {
	id, err := h.identity(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	scores, err := h.flows.Scores(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"scores": scores})
}

func (h *AdminHandler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn("encode response", "err", err)
	}
}

func (h *AdminHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "err", err)
	}
	h.respond(w, status, map[string]string{"error": err.Error()})
}
