package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bestsbot/backend/internal/logging"
	"github.com/bestsbot/backend/internal/storage/memory"
)

func newTestAPI() http.Handler {
	log := logging.New(logging.Config{Output: io.Discard})
	api := New(Config{
		Store:  memory.New(),
		Logger: log,
		Hub:    NewHub(log),
	})
	return api.Router()
}

func marshal(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(data)
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response: %v (%s)", err, resp.Body.String())
	}
	return out
}

func TestRecordLifecycle(t *testing.T) {
	h := newTestAPI()

	body := marshal(t, map[string]any{
		"id":    "r1",
		"name":  "invoice",
		"date":  "2026-03-01",
		"file":  "https://example.com/invoice.pdf",
		"extra": "kept",
	})
	resp := do(t, h, http.MethodPost, "/api/records", body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	out := decode(t, resp)
	if out["ok"] != true {
		t.Fatalf("expected ok envelope, got %v", out)
	}
	rec := out["record"].(map[string]any)
	if rec["file_url"] != "https://example.com/invoice.pdf" {
		t.Fatalf("expected file normalized to file_url, got %v", rec)
	}
	payload := rec["payload"].(map[string]any)
	if payload["extra"] != "kept" {
		t.Fatalf("expected payload preserved, got %v", payload)
	}
	if rec["created_at"] == "" {
		t.Fatal("expected created_at stamp")
	}

	resp = do(t, h, http.MethodGet, "/api/records", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	out = decode(t, resp)
	if out["count"].(float64) != 1 {
		t.Fatalf("expected count 1, got %v", out["count"])
	}
}

func TestRecordNumericIDCoerced(t *testing.T) {
	h := newTestAPI()

	body := marshal(t, map[string]any{
		"id":       12345,
		"name":     "n",
		"date":     "2026-01-01",
		"file_url": "https://example.com/f",
	})
	resp := do(t, h, http.MethodPost, "/api/records", body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	rec := decode(t, resp)["record"].(map[string]any)
	if rec["id"] != "12345" {
		t.Fatalf("expected numeric id coerced to string, got %v", rec["id"])
	}
}

func TestRecordMissingFieldErrors(t *testing.T) {
	h := newTestAPI()

	cases := []struct {
		name    string
		body    map[string]any
		wantMsg string
	}{
		{"missing id", map[string]any{"name": "n", "date": "d", "file": "f"}, "field 'id' is required"},
		{"missing name", map[string]any{"id": "1", "date": "d", "file": "f"}, "field 'name' is required"},
		{"missing date", map[string]any{"id": "1", "name": "n", "file": "f"}, "field 'date' is required"},
		{"missing file", map[string]any{"id": "1", "name": "n", "date": "d"}, "field 'file' or 'file_url' is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, h, http.MethodPost, "/api/records", marshal(t, tc.body))
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.Code)
			}
			if got := decode(t, resp)["error"]; got != tc.wantMsg {
				t.Fatalf("expected %q, got %q", tc.wantMsg, got)
			}
		})
	}
}

func TestRecordRejectsNonObjectBody(t *testing.T) {
	h := newTestAPI()

	resp := do(t, h, http.MethodPost, "/api/records", bytes.NewReader([]byte(`[1,2,3]`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for array body, got %d", resp.Code)
	}

	resp = do(t, h, http.MethodPost, "/api/records", bytes.NewReader([]byte(`{broken`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid JSON, got %d", resp.Code)
	}
}

func TestRecordRepeatedIDsAccepted(t *testing.T) {
	h := newTestAPI()

	body := map[string]any{
		"id":   "r1",
		"name": "report",
		"date": "2026-02-01",
		"file": "https://example.com/report.pdf",
	}
	for i := 0; i < 2; i++ {
		resp := do(t, h, http.MethodPost, "/api/records", marshal(t, body))
		if resp.Code != http.StatusCreated {
			t.Fatalf("submission %d: expected 201, got %d: %s", i+1, resp.Code, resp.Body.String())
		}
	}

	resp := do(t, h, http.MethodGet, "/api/records", nil)
	out := decode(t, resp)
	if out["count"].(float64) != 2 {
		t.Fatalf("expected both submissions stored, got %v", out["count"])
	}
}

func TestManagerUpsertModes(t *testing.T) {
	h := newTestAPI()

	resp := do(t, h, http.MethodPost, "/api/managers", marshal(t, map[string]any{"id": "m9", "name": "Dana"}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if mode := decode(t, resp)["mode"]; mode != "created" {
		t.Fatalf("expected mode created, got %v", mode)
	}

	resp = do(t, h, http.MethodPost, "/api/managers", marshal(t, map[string]any{"id": "m9", "name": "Dana S."}))
	if mode := decode(t, resp)["mode"]; mode != "updated" {
		t.Fatalf("expected mode updated, got %v", mode)
	}
}

func TestManagersSeededAndDeleted(t *testing.T) {
	h := newTestAPI()

	resp := do(t, h, http.MethodGet, "/api/managers", nil)
	out := decode(t, resp)
	if out["count"].(float64) != 2 {
		t.Fatalf("expected 2 seeded managers, got %v", out["count"])
	}

	resp = do(t, h, http.MethodDelete, "/api/managers/m1", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	out = decode(t, resp)
	if out["deleted_id"] != "m1" || out["count"].(float64) != 1 {
		t.Fatalf("unexpected delete response: %v", out)
	}

	resp = do(t, h, http.MethodDelete, "/api/managers/m1", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for repeated delete, got %d", resp.Code)
	}
}

func TestManagersReseededAfterDeletingAll(t *testing.T) {
	h := newTestAPI()

	for _, id := range []string{"m1", "m2"} {
		resp := do(t, h, http.MethodDelete, "/api/managers/"+id, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("delete %s: expected 200, got %d", id, resp.Code)
		}
	}

	resp := do(t, h, http.MethodGet, "/api/managers", nil)
	out := decode(t, resp)
	if out["count"].(float64) != 2 {
		t.Fatalf("expected defaults restored after emptying, got %v", out["count"])
	}
}

func TestOrderAlternativeKeysAndReplace(t *testing.T) {
	h := newTestAPI()

	resp := do(t, h, http.MethodPost, "/api/orders", marshal(t, map[string]any{
		"id":           "o1",
		"name_company": "Acme",
		"bin_company":  "123456789012",
		"id_manager":   "m1",
		"items":        []string{"a", "b"},
	}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	o := decode(t, resp)["order"].(map[string]any)
	if o["company_name"] != "Acme" || o["manager_id"] != "m1" {
		t.Fatalf("expected alternative keys normalized, got %v", o)
	}
	full := o["full_data"].(map[string]any)
	if _, ok := full["items"]; !ok {
		t.Fatalf("expected full payload preserved, got %v", full)
	}

	// Canonical keys work too, and the order is replaced by id.
	resp = do(t, h, http.MethodPost, "/api/orders", marshal(t, map[string]any{
		"id":           "o1",
		"company_name": "Acme LLP",
		"company_bin":  "123456789012",
		"manager_id":   "m2",
	}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp = do(t, h, http.MethodGet, "/api/orders", nil)
	out := decode(t, resp)
	if out["count"].(float64) != 1 {
		t.Fatalf("expected replace-by-id, got count %v", out["count"])
	}
	orders := out["orders"].([]any)
	if orders[0].(map[string]any)["company_name"] != "Acme LLP" {
		t.Fatalf("expected replaced order, got %v", orders[0])
	}
}

func TestOrderMissingManagerRejected(t *testing.T) {
	h := newTestAPI()

	resp := do(t, h, http.MethodPost, "/api/orders", marshal(t, map[string]any{
		"id":           "o1",
		"name_company": "Acme",
		"bin_company":  "123",
	}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if got := decode(t, resp)["error"]; got != "field 'id_manager' (manager_id) is required" {
		t.Fatalf("unexpected error message: %v", got)
	}
}

func TestRootAndHealth(t *testing.T) {
	h := newTestAPI()

	resp := do(t, h, http.MethodGet, "/", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	out := decode(t, resp)
	if out["service"] != ServiceName || out["ok"] != true {
		t.Fatalf("unexpected root response: %v", out)
	}

	resp = do(t, h, http.MethodGet, "/healthz", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if decode(t, resp)["status"] != "ok" {
		t.Fatal("expected status ok")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestAPI()

	resp := do(t, h, http.MethodGet, "/metrics", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Body.Len() == 0 {
		t.Fatal("expected metrics output to be non-empty")
	}
}
