// Package httpapi exposes the REST API consumed by the mini app.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/bestsbot/backend/internal/domain/manager"
	"github.com/bestsbot/backend/internal/domain/order"
	"github.com/bestsbot/backend/internal/domain/record"
	"github.com/bestsbot/backend/internal/logging"
	"github.com/bestsbot/backend/internal/metrics"
	"github.com/bestsbot/backend/internal/storage"
)

// ServiceName appears in the root info endpoint.
const ServiceName = "bestsbot-backend"

// API bundles the HTTP endpoints over the configured store.
type API struct {
	store storage.Store
	log   *logging.Logger
	hub   *Hub
}

// Config configures the API.
type Config struct {
	Store  storage.Store
	Logger *logging.Logger
	Hub    *Hub
}

// New creates the API. The hub is optional; without one no realtime events
// are published.
func New(cfg Config) *API {
	return &API{
		store: cfg.Store,
		log:   cfg.Logger,
		hub:   cfg.Hub,
	}
}

// Router returns the route table.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/records", a.createRecord).Methods(http.MethodPost)
	r.HandleFunc("/api/records", a.listRecords).Methods(http.MethodGet)
	r.HandleFunc("/api/managers", a.upsertManager).Methods(http.MethodPost)
	r.HandleFunc("/api/managers", a.listManagers).Methods(http.MethodGet)
	r.HandleFunc("/api/managers/{id}", a.deleteManager).Methods(http.MethodDelete)
	r.HandleFunc("/api/orders", a.upsertOrder).Methods(http.MethodPost)
	r.HandleFunc("/api/orders", a.listOrders).Methods(http.MethodGet)

	if a.hub != nil {
		r.HandleFunc("/api/events", a.hub.HandleWS)
	}

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", a.healthz).Methods(http.MethodGet)
	r.HandleFunc("/", a.root).Methods(http.MethodGet)

	return r
}

func (a *API) createRecord(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	payload, ok := parseObject(body)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body"))
		return
	}

	id := payloadString(body, "id")
	name := payloadString(body, "name")
	date := payloadString(body, "date")
	fileURL := payloadString(body, "file", "file_url")

	switch {
	case id == "":
		writeError(w, http.StatusBadRequest, fmt.Errorf("field 'id' is required"))
		return
	case name == "":
		writeError(w, http.StatusBadRequest, fmt.Errorf("field 'name' is required"))
		return
	case date == "":
		writeError(w, http.StatusBadRequest, fmt.Errorf("field 'date' is required"))
		return
	case fileURL == "":
		writeError(w, http.StatusBadRequest, fmt.Errorf("field 'file' or 'file_url' is required"))
		return
	}

	rec := record.Record{
		ID:        id,
		Name:      name,
		Date:      date,
		FileURL:   fileURL,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	created, err := a.store.CreateRecord(r.Context(), rec)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a.publish("record.created", created)
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "record": created})
}

func (a *API) listRecords(w http.ResponseWriter, r *http.Request) {
	records, err := a.store.ListRecords(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []record.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(records), "records": records})
}

func (a *API) upsertManager(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if _, ok := parseObject(body); !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body"))
		return
	}

	id := payloadString(body, "id")
	name := payloadString(body, "name")
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("field 'id' is required"))
		return
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("field 'name' is required"))
		return
	}

	m, created, err := a.store.UpsertManager(r.Context(), manager.Manager{ID: id, Name: name})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	mode := "updated"
	if created {
		mode = "created"
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "mode": mode, "manager": m})
}

func (a *API) listManagers(w http.ResponseWriter, r *http.Request) {
	managers, err := a.store.ListManagers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if managers == nil {
		managers = []manager.Manager{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(managers), "managers": managers})
}

func (a *API) deleteManager(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	remaining, err := a.store.DeleteManager(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("manager not found"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted_id": id, "count": remaining})
}

func (a *API) upsertOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	payload, ok := parseObject(body)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body"))
		return
	}

	id := payloadString(body, "id")
	companyName := payloadString(body, "name_company", "company_name")
	companyBIN := payloadString(body, "bin_company", "company_bin")
	managerID := payloadString(body, "id_manager", "manager_id")

	switch {
	case id == "":
		writeError(w, http.StatusBadRequest, fmt.Errorf("field 'id' is required"))
		return
	case companyName == "":
		writeError(w, http.StatusBadRequest, fmt.Errorf("field 'name_company' (company_name) is required"))
		return
	case companyBIN == "":
		writeError(w, http.StatusBadRequest, fmt.Errorf("field 'bin_company' (company_bin) is required"))
		return
	case managerID == "":
		writeError(w, http.StatusBadRequest, fmt.Errorf("field 'id_manager' (manager_id) is required"))
		return
	}

	o := order.Order{
		ID:          id,
		CompanyName: companyName,
		CompanyBIN:  companyBIN,
		ManagerID:   managerID,
		FullData:    payload,
		CreatedAt:   time.Now().UTC(),
	}

	stored, err := a.store.UpsertOrder(r.Context(), o)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a.publish("order.created", stored)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "order": stored})
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.store.ListOrders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(orders), "orders": orders})
}

func (a *API) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": ServiceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) publish(eventType string, data any) {
	if a.hub != nil {
		a.hub.Broadcast(eventType, data)
	}
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
