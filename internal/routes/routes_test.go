package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vx4-service/internal/config"
	"vx4-service/internal/discovery"
	"vx4-service/internal/handler"
	"vx4-service/internal/protocol"
	"vx4-service/internal/service"
)

type idleController struct{}

func (idleController) Connect(context.Context) error { return nil }
func (idleController) Disconnect() error             { return nil }
func (idleController) IsConnected() bool             { return false }
func (idleController) ReadPV(context.Context, int) (float64, error) {
	return 0, &protocol.Error{Op: "transact", Kind: protocol.ErrNotConnected}
}
func (idleController) ReadSV(context.Context, int) (float64, error) {
	return 0, &protocol.Error{Op: "transact", Kind: protocol.ErrNotConnected}
}
func (idleController) SetSV(context.Context, int, float64) error {
	return &protocol.Error{Op: "transact", Kind: protocol.ErrNotConnected}
}
func (idleController) Stats() protocol.ProtocolStats { return protocol.ProtocolStats{} }
func (idleController) Link() protocol.LinkConfig     { return protocol.LinkConfig{Port: "COM1"} }

type noPorts struct{}

func (noPorts) Scan(context.Context) ([]*discovery.DiscoveredPort, error) { return nil, nil }

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		App:      config.AppConfig{Name: "vx4-service", Environment: "test"},
		Security: config.SecurityConfig{AllowedOrigins: []string{"*"}},
	}
	bus := handler.NewEventBus(nil)
	bus.Start(ctx)

	ctrl := service.NewControllerService(idleController{}, bus, &cfg.Controller, zap.NewNop())
	disc := service.NewDiscoveryService(noPorts{}, idleController{}, zap.NewNop())
	mon := service.NewMonitorService(ctrl, 0, zap.NewNop())

	return NewRouter(ctx, cfg, zap.NewNop(), ctrl, disc, mon, bus).SetupRouter()
}

func TestRoutesRegistered(t *testing.T) {
	engine := newTestEngine(t)

	want := map[string]bool{
		"GET /health":                        false,
		"GET /ready":                         false,
		"GET /live":                          false,
		"GET /api/v1/controller":             false,
		"POST /api/v1/controller/connect":    false,
		"POST /api/v1/controller/disconnect": false,
		"GET /api/v1/stations":               false,
		"GET /api/v1/stations/:station/pv":   false,
		"GET /api/v1/stations/:station/sv":   false,
		"PUT /api/v1/stations/:station/sv":   false,
		"GET /api/v1/ports":                  false,
		"GET /api/v1/discovery/stations":     false,
		"POST /api/v1/monitor/start":         false,
		"POST /api/v1/monitor/stop":          false,
		"GET /ws/events":                     false,
		"GET /ws/stations/:station":          false,
		"GET /swagger/*any":                  false,
		"GET /docs":                          false,
	}
	for _, route := range engine.Routes() {
		key := route.Method + " " + route.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, found := range want {
		if !found {
			t.Errorf("route %s not registered", key)
		}
	}
}

func TestReadOnClosedLinkIsConflict(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations/1/pv", nil)
	req.Header.Set("X-Request-ID", "6f1c1a4e-8d1b-4c1e-9a55-2f5e3d8f1b10")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Request-ID"); got != "6f1c1a4e-8d1b-4c1e-9a55-2f5e3d8f1b10" {
		t.Fatalf("request id not echoed: %q", got)
	}
}
