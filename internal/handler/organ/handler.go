package organ

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/organ"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/synth"
	"github.com/zhouzirui/anatomy-explorer/backend/pkg/utils"
)

// Renderer produces the clip for a sound kind.
type Renderer interface {
	Render(kind organ.SoundKind) (synth.Clip, error)
}

// Handler organ目录的HTTP处理器
type Handler struct {
	organs organ.Store
	sounds Renderer
}

// New 创建organ处理器
func New(organs organ.Store, sounds Renderer) *Handler {
	return &Handler{organs: organs, sounds: sounds}
}

// RegisterRoutes 注册organ相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/organs", h.handleListOrgans)
	r.Get("/organs/{organID}", h.handleGetOrgan)
	r.Get("/organs/{organID}/sound", h.handleOrganSound)
	r.Get("/sounds/{kind}", h.handleSound)
}

func (h *Handler) handleListOrgans(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.organs.List())
}

func (h *Handler) handleGetOrgan(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.organs.FindByID(chi.URLParam(r, "organID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "organ not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleOrganSound(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.organs.FindByID(chi.URLParam(r, "organID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "organ not found")
		return
	}
	h.writeClip(w, rec.SoundKind)
}

func (h *Handler) handleSound(w http.ResponseWriter, r *http.Request) {
	h.writeClip(w, organ.SoundKind(chi.URLParam(r, "kind")))
}

func (h *Handler) writeClip(w http.ResponseWriter, kind organ.SoundKind) {
	if h.sounds == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "sound synthesis unavailable")
		return
	}

	clip, err := h.sounds.Render(kind)
	if errors.Is(err, synth.ErrUnknownKind) {
		utils.RespondError(w, http.StatusNotFound, "unknown sound kind")
		return
	}
	if err != nil {
		slog.Error("render sound failed", "kind", kind, "err", err)
		utils.RespondError(w, http.StatusInternalServerError, "render failed")
		return
	}

	data, err := synth.WAVBytes(clip)
	if err != nil {
		slog.Error("encode sound failed", "kind", kind, "err", err)
		utils.RespondError(w, http.StatusInternalServerError, "encode failed")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
