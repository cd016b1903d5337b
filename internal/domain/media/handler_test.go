package media

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/gramacare/gramacare/internal/platform/auth"
)

func newHandlerFixture() (*Handler, *Service, *mockRepo) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	return NewHandler(svc), svc, repo
}

func asUser(req *http.Request, userID uuid.UUID, role string) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), userID.String(), role))
}

func videoUpload(t *testing.T, title, description, filename, contentType, payload string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("title", title)
	w.WriteField("description", description)

	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="video"; filename="` + filename + `"`},
		"Content-Type":        {contentType},
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	part.Write([]byte(payload))
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHandlerPublish(t *testing.T) {
	h, _, _ := newHandlerFixture()
	doctorID := uuid.New()

	buf, contentType := videoUpload(t, "CPR basics", "hands-only CPR", "cpr.mp4", "video/mp4", "video-bytes")
	req := httptest.NewRequest(http.MethodPost, "/videos", buf)
	req.Header.Set(echo.HeaderContentType, contentType)
	req = asUser(req, doctorID, auth.RoleDoctor)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := h.Publish(c); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var v EmergencyVideo
	json.Unmarshal(rec.Body.Bytes(), &v)
	if v.Title != "CPR basics" || !strings.Contains(v.VideoURL, "cpr.mp4") {
		t.Errorf("video = %+v", v)
	}
}

func TestHandlerPublishMissingFile(t *testing.T) {
	h, _, _ := newHandlerFixture()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("title", "CPR basics")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/videos", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req = asUser(req, uuid.New(), auth.RoleDoctor)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	err := h.Publish(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandlerList(t *testing.T) {
	h, svc, repo := newHandlerFixture()
	doctorID := uuid.New()
	repo.uploaders[doctorID] = "Dr. Meena"
	svc.Publish(context.Background(), doctorID, PublishInput{
		Title: "CPR basics", Filename: "cpr.mp4", ContentType: "video/mp4",
	}, strings.NewReader("a"))

	req := asUser(httptest.NewRequest(http.MethodGet, "/videos", nil), uuid.New(), auth.RoleVillager)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}

	var resp struct {
		Data  []*VideoWithUploader `json:"data"`
		Total int                  `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Data[0].UploaderName != "Dr. Meena" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHandlerGetNotFound(t *testing.T) {
	h, _, _ := newHandlerFixture()

	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New(), auth.RoleVillager)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}
