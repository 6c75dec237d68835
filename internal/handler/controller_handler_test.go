package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"vx4-service/internal/config"
	"vx4-service/internal/middleware"
	"vx4-service/internal/protocol"
	"vx4-service/internal/service"
	"vx4-service/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestController(t *testing.T) (*gin.Engine, *fakeController, *service.ControllerService) {
	t.Helper()
	fake := newFakeController()
	svc := service.NewControllerService(fake, nil, &config.ControllerConfig{Stations: []int{1, 2}}, zap.NewNop())
	h := NewControllerHandler(svc, zap.NewNop())

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	api := r.Group("/api/v1")
	api.GET("/controller", h.GetStatus)
	api.POST("/controller/connect", h.Connect)
	api.POST("/controller/disconnect", h.Disconnect)
	api.GET("/stations", h.ListStations)
	api.GET("/stations/:station/pv", h.ReadPV)
	api.GET("/stations/:station/sv", h.ReadSV)
	api.PUT("/stations/:station/sv", h.SetSV)
	return r, fake, svc
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Error     *utils.APIError `json:"error"`
	RequestID string          `json:"request_id"`
}

func do(t *testing.T, r http.Handler, method, path string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: bad body %q: %v", method, path, w.Body.String(), err)
	}
	return w, env
}

func TestReadPVReturnsReading(t *testing.T) {
	r, _, _ := newTestController(t)

	w, env := do(t, r, http.MethodGet, "/api/v1/stations/1/pv", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}

	var reading struct {
		Station  int      `json:"station"`
		Quantity string   `json:"quantity"`
		Value    *float64 `json:"value"`
		Valid    bool     `json:"valid"`
	}
	if err := json.Unmarshal(env.Data, &reading); err != nil {
		t.Fatalf("decode reading: %v", err)
	}
	if reading.Station != 1 || !reading.Valid || reading.Value == nil || *reading.Value != 20.0 {
		t.Fatalf("unexpected reading %+v", reading)
	}
	if env.RequestID == "" || w.Header().Get(middleware.RequestIDHeader) != env.RequestID {
		t.Fatalf("request id not propagated: header %q body %q", w.Header().Get(middleware.RequestIDHeader), env.RequestID)
	}
}

func TestReadSVReturnsReading(t *testing.T) {
	r, _, _ := newTestController(t)

	w, env := do(t, r, http.MethodGet, "/api/v1/stations/2/sv", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var reading struct {
		Value *float64 `json:"value"`
	}
	_ = json.Unmarshal(env.Data, &reading)
	if reading.Value == nil || *reading.Value != 30.0 {
		t.Fatalf("unexpected value %s", env.Data)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		setup  func(*fakeController)
		status int
		code   string
	}{
		{"bad station text", "/api/v1/stations/abc/pv", nil, http.StatusBadRequest, "INVALID_STATION"},
		{"station out of range", "/api/v1/stations/100/pv", nil, http.StatusBadRequest, "INVALID_STATION"},
		{"no reply", "/api/v1/stations/7/pv", nil, http.StatusGatewayTimeout, "TIMEOUT"},
		{"not connected", "/api/v1/stations/1/pv", func(f *fakeController) { _ = f.Disconnect() }, http.StatusConflict, "NOT_CONNECTED"},
		{"malformed", "/api/v1/stations/1/sv", func(f *fakeController) {
			f.setErr(1, &protocol.Error{Op: "read_sv", Kind: protocol.ErrMalformedResponse, Response: "OK"})
		}, http.StatusBadGateway, "MALFORMED_RESPONSE"},
		{"decode", "/api/v1/stations/1/pv", func(f *fakeController) {
			f.setErr(1, &protocol.Error{Op: "read_pv", Kind: protocol.ErrDecodeFailure})
		}, http.StatusBadGateway, "DECODE_FAILURE"},
		{"io", "/api/v1/stations/1/pv", func(f *fakeController) {
			f.setErr(1, &protocol.Error{Op: "transact", Kind: protocol.ErrIO, Err: errors.New("unplugged")})
		}, http.StatusBadGateway, "IO_FAILURE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fake, _ := newTestController(t)
			if tt.setup != nil {
				tt.setup(fake)
			}
			w, env := do(t, r, http.MethodGet, tt.path, nil)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if env.Success || env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("unexpected error body %s", w.Body.String())
			}
		})
	}
}

func TestSetSV(t *testing.T) {
	r, fake, _ := newTestController(t)

	w, _ := do(t, r, http.MethodPut, "/api/v1/stations/1/sv", []byte(`{"value": 23.5}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	if got := fake.svOf(1); got != 23.5 {
		t.Fatalf("set-point not written: %v", got)
	}
}

func TestSetSVRequiresValue(t *testing.T) {
	r, fake, _ := newTestController(t)

	w, env := do(t, r, http.MethodPut, "/api/v1/stations/1/sv", []byte(`{}`))
	if w.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	var data struct {
		ValidationErrors map[string]string `json:"validation_errors"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.ValidationErrors["value"] != "required" {
		t.Fatalf("unexpected validation errors %v", data.ValidationErrors)
	}

	for _, body := range []string{`not json`, `{"value": "hot"}`} {
		w, env := do(t, r, http.MethodPut, "/api/v1/stations/1/sv", []byte(body))
		if w.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code == "VALIDATION_ERROR" {
			t.Fatalf("body %q: status %d body %s", body, w.Code, w.Body.String())
		}
	}
	if got := fake.svOf(1); got != 25.0 {
		t.Fatalf("set-point changed by a bad request: %v", got)
	}
}

func TestSetSVRejected(t *testing.T) {
	r, fake, _ := newTestController(t)
	fake.setErr(2, &protocol.Error{Op: "set_sv", Kind: protocol.ErrRejected, Response: "NG,02"})

	w, env := do(t, r, http.MethodPut, "/api/v1/stations/2/sv", []byte(`{"value": 10}`))
	if w.Code != http.StatusBadGateway || env.Error == nil || env.Error.Code != "REJECTED" {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
}

func TestConnectDisconnectStatus(t *testing.T) {
	r, _, svc := newTestController(t)

	if w, _ := do(t, r, http.MethodPost, "/api/v1/controller/disconnect", nil); w.Code != http.StatusOK {
		t.Fatalf("disconnect status %d", w.Code)
	}
	if svc.IsConnected() {
		t.Fatalf("still connected")
	}

	w, env := do(t, r, http.MethodGet, "/api/v1/controller", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var status struct {
		Connected bool  `json:"connected"`
		Stations  []int `json:"stations"`
	}
	_ = json.Unmarshal(env.Data, &status)
	if status.Connected || len(status.Stations) != 2 {
		t.Fatalf("unexpected status %s", env.Data)
	}

	if w, _ := do(t, r, http.MethodPost, "/api/v1/controller/connect", nil); w.Code != http.StatusOK {
		t.Fatalf("connect status %d", w.Code)
	}
	if !svc.IsConnected() {
		t.Fatalf("not connected")
	}
}

func TestListStationsIncludesConfigured(t *testing.T) {
	r, _, _ := newTestController(t)
	do(t, r, http.MethodGet, "/api/v1/stations/5/pv", nil) // times out, still listed

	_, env := do(t, r, http.MethodGet, "/api/v1/stations", nil)
	var data struct {
		Stations []struct {
			Station int `json:"station"`
		} `json:"stations"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var got []int
	for _, s := range data.Stations {
		got = append(got, s.Station)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 5 {
		t.Fatalf("stations = %v", got)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&protocol.Error{Kind: protocol.ErrInvalidValue}, http.StatusBadRequest},
		{&protocol.Error{Kind: protocol.ErrCanceled}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusForError(tt.err); got != tt.want {
			t.Errorf("StatusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestServerErrorLogCarriesRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc := service.NewControllerService(newFakeController(), nil, &config.ControllerConfig{Stations: []int{1, 2}}, zap.NewNop())
	h := NewControllerHandler(svc, zap.New(core))

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.GET("/stations/:station/pv", h.ReadPV)

	w, env := do(t, r, http.MethodGet, "/stations/7/pv", nil)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}

	entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != env.RequestID || env.RequestID == "" {
		t.Fatalf("request id %v, response carried %q", fields["request_id"], env.RequestID)
	}
	if fields["error_kind"] != "TIMEOUT" {
		t.Fatalf("error kind %v", fields["error_kind"])
	}
}
