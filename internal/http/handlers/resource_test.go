package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/services"
)

type stubResourceService struct {
	listResult *services.ListResult
	getResult  map[string]any
	createID   uuid.UUID
	err        error

	gotParams  services.ListParams
	gotID      uuid.UUID
	gotPayload map[string]any
}

func (s *stubResourceService) List(_ context.Context, _ *services.ResourceDefinition, params services.ListParams) (*services.ListResult, error) {
	s.gotParams = params
	return s.listResult, s.err
}

func (s *stubResourceService) Get(_ context.Context, _ *services.ResourceDefinition, id uuid.UUID, _ bool) (map[string]any, error) {
	s.gotID = id
	return s.getResult, s.err
}

func (s *stubResourceService) Create(_ context.Context, _ *services.ResourceDefinition, payload map[string]any) (uuid.UUID, error) {
	s.gotPayload = payload
	return s.createID, s.err
}

func (s *stubResourceService) Update(_ context.Context, _ *services.ResourceDefinition, id uuid.UUID, payload map[string]any) error {
	s.gotID = id
	s.gotPayload = payload
	return s.err
}

func (s *stubResourceService) Delete(_ context.Context, _ *services.ResourceDefinition, id uuid.UUID) error {
	s.gotID = id
	return s.err
}

func resourceRouter(stub *stubResourceService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	rh := NewResourceHandler(stub, &services.ResourceDefinition{Name: "patient-cases"})
	r := gin.New()
	r.GET("/api/patient-cases", rh.List)
	r.GET("/api/patient-cases/:id", rh.Get)
	r.POST("/api/patient-cases", rh.Create)
	r.PUT("/api/patient-cases/:id", rh.Update)
	r.DELETE("/api/patient-cases/:id", rh.Delete)
	return r
}

func TestResourceListStripsReservedParams(t *testing.T) {
	stub := &stubResourceService{listResult: &services.ListResult{
		Items: []map[string]any{{"id": "x"}}, Total: 1, Page: 3, PageSize: 25,
	}}
	r := resourceRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/patient-cases?page=3&pageSize=25&sort=-center&anonymized=true&center=Mainz", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if stub.gotParams.Page != 3 || stub.gotParams.PageSize != 25 {
		t.Errorf("params = %+v", stub.gotParams)
	}
	if stub.gotParams.Sort != "-center" {
		t.Errorf("sort = %q", stub.gotParams.Sort)
	}
	if !stub.gotParams.Anonymized {
		t.Errorf("anonymized flag not picked up")
	}
	if stub.gotParams.Query.Get("center") != "Mainz" {
		t.Errorf("filter param lost: %v", stub.gotParams.Query)
	}
	for _, reserved := range []string{"page", "pageSize", "sort", "anonymized"} {
		if stub.gotParams.Query.Has(reserved) {
			t.Errorf("reserved param %q leaked into filters", reserved)
		}
	}

	var body struct {
		Items    []map[string]any `json:"items"`
		Total    int64            `json:"total"`
		Page     int              `json:"page"`
		PageSize int              `json:"pageSize"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Total != 1 || body.Page != 3 || body.PageSize != 25 || len(body.Items) != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestResourceGet(t *testing.T) {
	id := uuid.New()
	stub := &stubResourceService{getResult: map[string]any{"id": id.String()}}
	r := resourceRouter(stub)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/patient-cases/"+id.String(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if stub.gotID != id {
		t.Errorf("id = %s, want %s", stub.gotID, id)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/patient-cases/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid id: status = %d, want 400", w.Code)
	}
}

func TestResourceGetNotFound(t *testing.T) {
	stub := &stubResourceService{err: errs.NotFoundf("patient case gone")}
	r := resourceRouter(stub)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/patient-cases/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestResourceCreate(t *testing.T) {
	id := uuid.New()
	stub := &stubResourceService{createID: id}
	r := resourceRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/patient-cases", strings.NewReader(`{"center":"Mainz"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if stub.gotPayload["center"] != "Mainz" {
		t.Errorf("payload = %v", stub.gotPayload)
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ID != id.String() {
		t.Errorf("id = %q, want %q", body.ID, id)
	}
}

func TestResourceCreateRejectsBadJSON(t *testing.T) {
	r := resourceRouter(&stubResourceService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/patient-cases", strings.NewReader(`{"center":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestResourceCreateInvalidArgument(t *testing.T) {
	stub := &stubResourceService{err: errs.InvalidArgumentf("unknown field")}
	r := resourceRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/patient-cases", strings.NewReader(`{"nope":1}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestResourceUpdateAndDelete(t *testing.T) {
	id := uuid.New()
	stub := &stubResourceService{}
	r := resourceRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/patient-cases/"+id.String(), strings.NewReader(`{"center":"Bonn"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("update status = %d", w.Code)
	}
	if stub.gotID != id || stub.gotPayload["center"] != "Bonn" {
		t.Errorf("update got id=%s payload=%v", stub.gotID, stub.gotPayload)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/patient-cases/"+id.String(), nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
}
