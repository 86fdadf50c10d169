package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/edytjahyadi/AI-Fashion/internal/domain"
	"github.com/edytjahyadi/AI-Fashion/internal/imaging"
	"github.com/edytjahyadi/AI-Fashion/pkg/zip"
)

type slotResponse struct {
	Index   int    `json:"index"`
	Pose    string `json:"pose"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Image   string `json:"image,omitempty"`
}

type sessionResponse struct {
	ID         string         `json:"id"`
	Phase      string         `json:"phase"`
	HasPerson  bool           `json:"has_person"`
	HasGarment bool           `json:"has_garment"`
	Slots      []slotResponse `json:"slots"`
}

func (a *App) sessionResponse(sess domain.Session) sessionResponse {
	poses := a.Orchestrator.Poses()
	slots := lo.Map(sess.Slots[:], func(r domain.SlotResult, i int) slotResponse {
		out := slotResponse{
			Index:   i,
			Pose:    poses[i].Label(),
			Status:  string(r.Status),
			Message: r.Message,
		}
		if r.Status == domain.SlotDone {
			out.Image = r.Image.DataURL()
		}
		return out
	})
	return sessionResponse{
		ID:         sess.ID,
		Phase:      string(sess.Phase),
		HasPerson:  sess.Person != nil,
		HasGarment: sess.Garment != nil,
		Slots:      slots,
	}
}

func (a *App) SessionCreate(w http.ResponseWriter, r *http.Request) {
	sess := a.Sessions.Create()
	a.json(w, http.StatusCreated, a.sessionResponse(sess))
}

func (a *App) SessionGet(w http.ResponseWriter, r *http.Request) {
	sess, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, a.sessionResponse(sess))
}

func (a *App) UploadPerson(w http.ResponseWriter, r *http.Request) {
	a.uploadSource(w, r, domain.SourcePerson)
}

func (a *App) UploadGarment(w http.ResponseWriter, r *http.Request) {
	a.uploadSource(w, r, domain.SourceGarment)
}

func (a *App) uploadSource(w http.ResponseWriter, r *http.Request, kind domain.SourceKind) {
	r.Body = http.MaxBytesReader(w, r.Body, a.Config.MaxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "multipart field \"image\" is required")
		return
	}
	defer file.Close()

	img, err := imaging.DecodeUpload(file, header.Header.Get("Content-Type"))
	if err != nil {
		a.domainError(w, err)
		return
	}

	sess, err := a.Sessions.Dispatch(chi.URLParam(r, "id"), domain.SetSourceImage{Kind: kind, Image: img})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, a.sessionResponse(sess))
}

func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	sess, err := a.Orchestrator.Generate(chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, a.sessionResponse(sess))
}

func (a *App) Regenerate(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "slot index must be an integer")
		return
	}
	sess, err := a.Orchestrator.Regenerate(chi.URLParam(r, "id"), slot)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, a.sessionResponse(sess))
}

func (a *App) Reset(w http.ResponseWriter, r *http.Request) {
	sess, err := a.Sessions.Dispatch(chi.URLParam(r, "id"), domain.Reset{})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, a.sessionResponse(sess))
}

func (a *App) DownloadSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "slot index must be an integer")
		return
	}
	if slot < 0 || slot >= domain.SlotCount {
		a.domainError(w, fmt.Errorf("%w: %d", domain.ErrSlotIndex, slot))
		return
	}
	sess, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	result := sess.Slots[slot]
	if result.Status != domain.SlotDone {
		a.error(w, http.StatusConflict, "slot_not_done", fmt.Sprintf("slot %d has no completed image", slot))
		return
	}

	pose := a.Orchestrator.Poses()[slot]
	filename := fmt.Sprintf("tryon-%s%s", pose.Slug, domain.ExtensionByMIME(result.Image.MIME))
	w.Header().Set("Content-Type", result.Image.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Image.Data)
}

func (a *App) DownloadAll(w http.ResponseWriter, r *http.Request) {
	sess, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}

	poses := a.Orchestrator.Poses()
	var assets []zip.Asset
	for i, result := range sess.Slots {
		if result.Status != domain.SlotDone {
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("tryon-%s", poses[i].Slug),
			MIME:     result.Image.MIME,
			Data:     result.Image.Data,
		})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusConflict, "no_results", "no completed images to download")
		return
	}

	archive := zip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=tryon-%s.zip", sess.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
