package handlers_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/edytjahyadi/AI-Fashion/internal/domain"
	"github.com/edytjahyadi/AI-Fashion/internal/http/handlers"
	"github.com/edytjahyadi/AI-Fashion/internal/http/httpapi"
	"github.com/edytjahyadi/AI-Fashion/internal/imaging"
	"github.com/edytjahyadi/AI-Fashion/internal/infra"
	"github.com/edytjahyadi/AI-Fashion/internal/session"
)

type generatorFunc func(ctx context.Context, person, garment domain.EncodedImage, instruction string) (domain.EncodedImage, error)

func (f generatorFunc) TryOn(ctx context.Context, person, garment domain.EncodedImage, instruction string) (domain.EncodedImage, error) {
	return f(ctx, person, garment, instruction)
}

type sessionBody struct {
	ID         string `json:"id"`
	Phase      string `json:"phase"`
	HasPerson  bool   `json:"has_person"`
	HasGarment bool   `json:"has_garment"`
	Slots      []struct {
		Index   int    `json:"index"`
		Pose    string `json:"pose"`
		Status  string `json:"status"`
		Message string `json:"message"`
		Image   string `json:"image"`
	} `json:"slots"`
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img, err := imaging.EncodePNG(image.NewRGBA(image.Rect(0, 0, 32, 32)))
	if err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return img.Data
}

func newTestServer(t *testing.T, gen session.Generator) (*httptest.Server, *session.Store) {
	t.Helper()
	cfg := &infra.Config{
		MaxUploadBytes:     8 << 20,
		RateLimitPerMin:    10000,
		CORSAllowedOrigins: []string{"*"},
	}
	store := session.NewStore()
	orch := session.NewOrchestrator(store, gen, imaging.NewWatermarker("test-mark"), 5*time.Second, zerolog.Nop())
	app := handlers.NewApp(cfg, zerolog.Nop(), store, orch)
	ts := httptest.NewServer(httpapi.NewRouter(app))
	t.Cleanup(ts.Close)
	return ts, store
}

func okGenerator(t *testing.T) generatorFunc {
	t.Helper()
	img, err := imaging.EncodePNG(image.NewRGBA(image.Rect(0, 0, 32, 32)))
	if err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return func(ctx context.Context, person, garment domain.EncodedImage, instruction string) (domain.EncodedImage, error) {
		return img, nil
	}
}

func decodeSession(t *testing.T, resp *http.Response, wantStatus int) sessionBody {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, wantStatus, raw)
	}
	var body sessionBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode session body: %v", err)
	}
	return body
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	body := decodeSession(t, resp, http.StatusCreated)
	if body.ID == "" || body.Phase != "idle" {
		t.Fatalf("unexpected new session: %+v", body)
	}
	return body.ID
}

func uploadImage(t *testing.T, ts *httptest.Server, id, kind string, payload []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "upload.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = mw.Close()

	resp, err := http.Post(ts.URL+"/v1/sessions/"+id+"/"+kind, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload %s: %v", kind, err)
	}
	return resp
}

func pollPhase(t *testing.T, ts *httptest.Server, id, phase string) sessionBody {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/v1/sessions/" + id)
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		body := decodeSession(t, resp, http.StatusOK)
		if body.Phase == phase {
			return body
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached phase %s", phase)
	return sessionBody{}
}

func TestSessionFlowEndToEnd(t *testing.T) {
	ts, _ := newTestServer(t, okGenerator(t))
	id := createSession(t, ts)
	png := tinyPNG(t)

	body := decodeSession(t, uploadImage(t, ts, id, "person", png), http.StatusOK)
	if !body.HasPerson || body.Phase != "idle" {
		t.Fatalf("after person upload: %+v", body)
	}
	body = decodeSession(t, uploadImage(t, ts, id, "garment", png), http.StatusOK)
	if !body.HasGarment || body.Phase != "sources_ready" {
		t.Fatalf("after garment upload: %+v", body)
	}

	resp, err := http.Post(ts.URL+"/v1/sessions/"+id+"/generate", "application/json", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	body = decodeSession(t, resp, http.StatusAccepted)
	if body.Phase != "processing" {
		t.Fatalf("phase after generate = %s, want processing", body.Phase)
	}
	for _, slot := range body.Slots {
		if slot.Status != "pending" {
			t.Fatalf("slot %d status = %q right after generate", slot.Index, slot.Status)
		}
	}

	body = pollPhase(t, ts, id, "results_ready")
	if len(body.Slots) != domain.SlotCount {
		t.Fatalf("slot count = %d, want %d", len(body.Slots), domain.SlotCount)
	}
	for _, slot := range body.Slots {
		if slot.Status != "done" {
			t.Fatalf("slot %d status = %q (message: %s)", slot.Index, slot.Status, slot.Message)
		}
		if !strings.HasPrefix(slot.Image, "data:image/png;base64,") {
			t.Fatalf("slot %d image is not a png data url", slot.Index)
		}
		if slot.Pose == "" {
			t.Fatalf("slot %d has no pose label", slot.Index)
		}
	}
}

func TestDownloadSlotAndArchive(t *testing.T) {
	ts, _ := newTestServer(t, okGenerator(t))
	id := createSession(t, ts)
	png := tinyPNG(t)
	decodeSession(t, uploadImage(t, ts, id, "person", png), http.StatusOK)
	decodeSession(t, uploadImage(t, ts, id, "garment", png), http.StatusOK)
	resp, err := http.Post(ts.URL+"/v1/sessions/"+id+"/generate", "application/json", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	decodeSession(t, resp, http.StatusAccepted)
	pollPhase(t, ts, id, "results_ready")

	resp, err = http.Get(ts.URL + "/v1/sessions/" + id + "/slots/0/download")
	if err != nil {
		t.Fatalf("download slot: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download slot status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q, want image/png", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "tryon-front-standing.png") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	data, _ := io.ReadAll(resp.Body)
	if _, err := imaging.Decode(domain.EncodedImage{Data: data, MIME: "image/png"}); err != nil {
		t.Fatalf("downloaded slot is not a decodable image: %v", err)
	}

	resp, err = http.Get(ts.URL + "/v1/sessions/" + id + "/download")
	if err != nil {
		t.Fatalf("download archive: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download archive status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("Content-Type = %q, want application/zip", ct)
	}
	archive, _ := io.ReadAll(resp.Body)
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != domain.SlotCount {
		t.Fatalf("archive entries = %d, want %d", len(zr.File), domain.SlotCount)
	}
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "tryon-") || !strings.HasSuffix(f.Name, ".png") {
			t.Fatalf("unexpected archive entry name: %s", f.Name)
		}
	}
}

func TestDownloadBeforeResultsConflicts(t *testing.T) {
	ts, _ := newTestServer(t, okGenerator(t))
	id := createSession(t, ts)

	resp, err := http.Get(ts.URL + "/v1/sessions/" + id + "/slots/0/download")
	if err != nil {
		t.Fatalf("download slot: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("slot download status = %d, want 409", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/v1/sessions/" + id + "/download")
	if err != nil {
		t.Fatalf("download archive: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("archive download status = %d, want 409", resp.StatusCode)
	}
}

func TestUploadRejectsNonImagePayload(t *testing.T) {
	ts, _ := newTestServer(t, okGenerator(t))
	id := createSession(t, ts)

	resp := uploadImage(t, ts, id, "person", []byte("definitely not pixels"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["code"] != "invalid_image" {
		t.Fatalf("error code = %q, want invalid_image", body["code"])
	}
}

func TestGenerateBeforeSourcesConflicts(t *testing.T) {
	ts, _ := newTestServer(t, okGenerator(t))
	id := createSession(t, ts)

	resp, err := http.Post(ts.URL+"/v1/sessions/"+id+"/generate", "application/json", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestRegeneratePendingSlotConflicts(t *testing.T) {
	release := make(chan struct{})
	blocked := okGenerator(t)
	gen := generatorFunc(func(ctx context.Context, person, garment domain.EncodedImage, instruction string) (domain.EncodedImage, error) {
		<-release
		return blocked(ctx, person, garment, instruction)
	})
	ts, _ := newTestServer(t, gen)
	defer close(release)

	id := createSession(t, ts)
	png := tinyPNG(t)
	decodeSession(t, uploadImage(t, ts, id, "person", png), http.StatusOK)
	decodeSession(t, uploadImage(t, ts, id, "garment", png), http.StatusOK)
	resp, err := http.Post(ts.URL+"/v1/sessions/"+id+"/generate", "application/json", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	decodeSession(t, resp, http.StatusAccepted)

	resp, err = http.Post(ts.URL+"/v1/sessions/"+id+"/slots/1/regenerate", "application/json", nil)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["code"] != "slot_pending" {
		t.Fatalf("error code = %q, want slot_pending", body["code"])
	}
}

func TestRegenerateMovesPhaseBackToProcessing(t *testing.T) {
	ts, _ := newTestServer(t, okGenerator(t))
	id := createSession(t, ts)
	png := tinyPNG(t)
	decodeSession(t, uploadImage(t, ts, id, "person", png), http.StatusOK)
	decodeSession(t, uploadImage(t, ts, id, "garment", png), http.StatusOK)
	resp, err := http.Post(ts.URL+"/v1/sessions/"+id+"/generate", "application/json", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	decodeSession(t, resp, http.StatusAccepted)
	pollPhase(t, ts, id, "results_ready")

	resp, err = http.Post(ts.URL+"/v1/sessions/"+id+"/slots/3/regenerate", "application/json", nil)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	body := decodeSession(t, resp, http.StatusAccepted)
	if body.Phase != "processing" {
		t.Fatalf("phase after regenerate = %s, want processing", body.Phase)
	}
	if body.Slots[3].Status != "pending" {
		t.Fatalf("slot 3 status = %q, want pending", body.Slots[3].Status)
	}
	pollPhase(t, ts, id, "results_ready")
}

func TestResetReturnsSessionToIdle(t *testing.T) {
	ts, _ := newTestServer(t, okGenerator(t))
	id := createSession(t, ts)
	png := tinyPNG(t)
	decodeSession(t, uploadImage(t, ts, id, "person", png), http.StatusOK)
	decodeSession(t, uploadImage(t, ts, id, "garment", png), http.StatusOK)

	resp, err := http.Post(ts.URL+"/v1/sessions/"+id+"/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	body := decodeSession(t, resp, http.StatusOK)
	if body.Phase != "idle" || body.HasPerson || body.HasGarment {
		t.Fatalf("after reset: %+v", body)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	ts, _ := newTestServer(t, okGenerator(t))

	resp, err := http.Get(ts.URL + "/v1/sessions/no-such-id")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestBadSlotIndexIsRejected(t *testing.T) {
	ts, _ := newTestServer(t, okGenerator(t))
	id := createSession(t, ts)

	for _, path := range []string{
		fmt.Sprintf("/v1/sessions/%s/slots/9/download", id),
		fmt.Sprintf("/v1/sessions/%s/slots/x/download", id),
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("GET %s status = %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, okGenerator(t))

	resp, err := http.Get(ts.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
