package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/cardfit-services/internal/ranksvc/service"
	"github.com/avvvet/cardfit-services/internal/ranksvc/store"
	"github.com/avvvet/cardfit-services/internal/ranksvc/ws"
	"github.com/avvvet/cardfit-services/internal/scoring"
)

const maxBodyBytes = 4 << 20

// Ranker is the service behind the HTTP routes.
type Ranker interface {
	Recommend(ctx context.Context, answers scoring.Answers) ([]scoring.ScoreResult, error)
	Explain(ctx context.Context, id string, answers scoring.Answers) (scoring.Breakdown, error)
	Cards(ctx context.Context) ([]scoring.Card, error)
	UpsertCards(ctx context.Context, cards []scoring.Card) (int, error)
	RulesetVersion() string
}

type Handler struct {
	tokenAuth  *jwtauth.JWTAuth
	ranker     Ranker
	socket     *ws.Ws
	instanceId string
}

func NewHandler(ranker Ranker, instanceId string) *Handler {
	return &Handler{ranker: ranker, instanceId: instanceId}
}

// SetSocket mounts the websocket ranking endpoint on the next SetRoutes.
func (h *Handler) SetSocket(s *ws.Ws) {
	h.socket = s
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	writeJSON(w, rsp.Code, rsp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("unable to write response: %s", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func decodeAnswers(w http.ResponseWriter, r *http.Request) (scoring.Answers, bool) {
	var answers scoring.Answers
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		writeError(w, http.StatusBadRequest, "invalid answers: "+err.Error())
		return answers, false
	}
	return answers, true
}

// RecommendHandler ranks the catalog for the posted answers and writes the
// result array.
func (h *Handler) RecommendHandler(w http.ResponseWriter, r *http.Request) {
	answers, ok := decodeAnswers(w, r)
	if !ok {
		return
	}

	results, err := h.ranker.Recommend(r.Context(), answers)
	if err != nil {
		log.Errorf("Error [RankService.Recommend] %s", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) ExplainHandler(w http.ResponseWriter, r *http.Request) {
	answers, ok := decodeAnswers(w, r)
	if !ok {
		return
	}

	b, err := h.ranker.Explain(r.Context(), chi.URLParam(r, "id"), answers)
	switch {
	case errors.Is(err, service.ErrCardNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		log.Errorf("Error [RankService.Explain] %s", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, b)
	}
}

func (h *Handler) ListCardsHandler(w http.ResponseWriter, r *http.Request) {
	cards, err := h.ranker.Cards(r.Context())
	if err != nil {
		log.Errorf("Error [RankService.Cards] %s", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: err.Error()})
		return
	}
	h.CreateResponse(w, Response{Message: "catalog", Code: http.StatusOK, Data: cards})
}

func (h *Handler) UpsertCardsHandler(w http.ResponseWriter, r *http.Request) {
	cards, err := store.DecodeCatalog(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: err.Error()})
		return
	}

	n, err := h.ranker.UpsertCards(r.Context(), cards)
	switch {
	case errors.Is(err, store.ErrReadOnly):
		h.CreateResponse(w, Response{Code: http.StatusNotImplemented, Error: err.Error()})
	case err != nil:
		log.Errorf("Error [RankService.UpsertCards] %s", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: err.Error()})
	default:
		h.CreateResponse(w, Response{
			Message: "catalog updated",
			Code:    http.StatusOK,
			Data:    map[string]int{"upserted": n},
		})
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"instance": h.instanceId,
		"ruleset":  h.ranker.RulesetVersion(),
	}
	if h.socket != nil {
		data["sockets"] = h.socket.Count()
	}
	h.CreateResponse(w, Response{
		Message: "rank service is running",
		Code:    http.StatusOK,
		Data:    data,
	})
}
