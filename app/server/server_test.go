package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"pdfcrop/cropper"
	"pdfcrop/filestore"
	"pdfcrop/internal/pdftest"
	"pdfcrop/pdfdoc"
	"pdfcrop/store"
	"pdfcrop/types"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func setupApp(t *testing.T) (*fiber.App, *store.SQLiteStore) {
	t.Helper()

	root := t.TempDir()
	files, err := filestore.New(filepath.Join(root, "uploads"), filepath.Join(root, "output"))
	if err != nil {
		t.Fatalf("filestore.New() error = %v", err)
	}

	presets, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := presets.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { presets.Close() })

	cfg := types.Config{
		MaxUploadSize: 16 * 1024 * 1024,
		DefaultMargin: types.DefaultMargin,
	}
	return NewApp(cfg, presets, files), presets
}

func cropRequest(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/crop", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBoxes(t *testing.T, data []byte) []cropper.Rect {
	t.Helper()
	f, err := pdfdoc.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("response is not a PDF: %v", err)
	}
	var out []cropper.Rect
	for _, p := range f.Document().Pages {
		out = append(out, p.Box)
	}
	return out
}

func TestHealthy(t *testing.T) {
	app, _ := setupApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/check/healthy", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCropWithMargins(t *testing.T) {
	app, _ := setupApp(t)
	pdf := pdftest.Build(pdftest.Page{MediaBox: [4]float64{0, 0, 600, 800}, Rotate: 90})

	req := cropRequest(t, "scan.pdf", pdf, map[string]string{
		"top": "10", "right": "20", "bottom": "5", "left": "15",
	})
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if cd := resp.Header.Get(fiber.HeaderContentDisposition); !strings.Contains(cd, "cropped_scan.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	want := []cropper.Rect{cropper.NewRect(60, 120, 570, 640)}
	if diff := cmp.Diff(want, decodeBoxes(t, body), cmpopts.EquateApprox(0, 1e-3)); diff != "" {
		t.Errorf("boxes mismatch (-want +got):\n%s", diff)
	}
}

func TestCropDefaultMargin(t *testing.T) {
	app, _ := setupApp(t)
	pdf := pdftest.Build(pdftest.Page{MediaBox: [4]float64{0, 0, 1000, 1000}})

	resp, err := app.Test(cropRequest(t, "a.pdf", pdf, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	want := []cropper.Rect{cropper.NewRect(100, 100, 900, 900)}
	if diff := cmp.Diff(want, decodeBoxes(t, body), cmpopts.EquateApprox(0, 1e-3)); diff != "" {
		t.Errorf("boxes mismatch (-want +got):\n%s", diff)
	}
}

func TestCropWithPreset(t *testing.T) {
	app, presets := setupApp(t)
	preset := (&types.PresetParams{Name: "wide", Left: 20, Right: 20}).ToPreset()
	if err := presets.SavePreset(context.Background(), preset); err != nil {
		t.Fatal(err)
	}
	pdf := pdftest.Build(pdftest.Page{MediaBox: [4]float64{0, 0, 1000, 1000}})

	resp, err := app.Test(cropRequest(t, "a.pdf", pdf, map[string]string{"preset": "wide", "top": "5"}), -1)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	want := []cropper.Rect{cropper.NewRect(200, 0, 800, 950)}
	if diff := cmp.Diff(want, decodeBoxes(t, body), cmpopts.EquateApprox(0, 1e-3)); diff != "" {
		t.Errorf("boxes mismatch (-want +got):\n%s", diff)
	}
}

func TestCropRejected(t *testing.T) {
	pdf := pdftest.Build(pdftest.Letter(0))

	tests := []struct {
		name     string
		filename string
		data     []byte
		fields   map[string]string
		status   int
		contains string
	}{
		{"no file", "", nil, nil, fiber.StatusBadRequest, "No file selected"},
		{"wrong extension", "notes.txt", []byte("hello"), nil, fiber.StatusBadRequest, "Invalid file type"},
		{"margin above range", "a.pdf", pdf, map[string]string{"top": "50.0001"}, fiber.StatusUnprocessableEntity, "Invalid top margin value"},
		{"margin below range", "a.pdf", pdf, map[string]string{"left": "-0.0001"}, fiber.StatusUnprocessableEntity, "Invalid left margin value"},
		{"non numeric", "a.pdf", pdf, map[string]string{"bottom": "ten"}, fiber.StatusUnprocessableEntity, "Invalid bottom margin value"},
		{"unknown preset", "a.pdf", pdf, map[string]string{"preset": "nope"}, fiber.StatusNotFound, "preset with nope not found"},
		{"unsupported rotation", "a.pdf", pdftest.Build(pdftest.Letter(0), pdftest.Letter(45)), nil, fiber.StatusUnprocessableEntity, "page 2: rotation 45 is not a multiple of 90 degrees"},
		{"malformed pdf", "a.pdf", []byte("%PDF-1.4 garbage"), nil, fiber.StatusUnprocessableEntity, "not a valid PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := setupApp(t)
			resp, err := app.Test(cropRequest(t, tt.filename, tt.data, tt.fields), -1)
			if err != nil {
				t.Fatal(err)
			}
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.status, body)
			}
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body %s does not contain %q", body, tt.contains)
			}
		})
	}
}

func TestPresetEndpoints(t *testing.T) {
	app, _ := setupApp(t)

	create := httptest.NewRequest(http.MethodPost, "/api/v1/presets",
		strings.NewReader(`{"name":"book","top":5,"right":8,"bottom":5,"left":8}`))
	create.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(create, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("create status = %d, body %s", resp.StatusCode, body)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/presets/book", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	var got types.Preset
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode preset: %v", err)
	}
	if got.Margins != (types.MarginSpec{Top: 5, Right: 8, Bottom: 5, Left: 8}) {
		t.Errorf("preset margins = %v", got.Margins)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/presets", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	var list []types.Preset
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil || len(list) != 1 {
		t.Errorf("list = %v, err %v", list, err)
	}

	invalid := httptest.NewRequest(http.MethodPost, "/api/v1/presets",
		strings.NewReader(`{"name":"bad","top":70}`))
	invalid.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(invalid, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Errorf("invalid preset status = %d, want 422", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/presets/book", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/presets/book", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", resp.StatusCode)
	}
}
