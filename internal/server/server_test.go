package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yz4230/sitehost/internal/builder"
	"github.com/yz4230/sitehost/internal/config"
	"github.com/yz4230/sitehost/internal/entity"
	"github.com/yz4230/sitehost/internal/notify"
	"github.com/yz4230/sitehost/internal/publisher"
	"github.com/yz4230/sitehost/internal/repository"
	"github.com/yz4230/sitehost/internal/testutil"
)

// exportRunner pretends to be the node toolchain: the build step writes a
// static export into out/.
type exportRunner struct{}

func (exportRunner) Run(ctx context.Context, command, dir string) (*builder.Result, error) {
	if command != builder.DefaultBuildCommand {
		return &builder.Result{}, nil
	}
	if err := os.MkdirAll(filepath.Join(dir, "out"), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "out", "index.html"), []byte("<html></html>"), 0o644); err != nil {
		return nil, err
	}
	return &builder.Result{}, nil
}

type testServer struct {
	srv    *Server
	bucket *testutil.MemoryS3
	orders repository.OrderRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	root := t.TempDir()
	source := filepath.Join(root, "sources", "landing", "landing-page-producto")
	require.NoError(t, os.MkdirAll(source, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "package.json"), []byte(`{"name":"landing"}`), 0o644))

	cfg := &config.Config{
		Templates: config.TemplatesConfig{Root: root},
		AWS:       config.AWSConfig{Region: "eu-west-1", Bucket: "sites"},
		Build:     config.BuildConfig{Runner: config.RunnerExec},
		Deploy:    config.DeployConfig{Concurrency: 1},
	}
	injector := NewInjector(cfg, zerolog.Nop())
	bucket := testutil.NewMemoryS3()
	do.OverrideValue[publisher.S3API](injector, bucket)
	do.OverrideValue[builder.Runner](injector, exportRunner{})

	srv := New(&Config{Logger: zerolog.Nop(), Injector: injector})
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return &testServer{
		srv:    srv,
		bucket: bucket,
		orders: do.MustInvoke[repository.OrderRepository](injector),
	}
}

func (s *testServer) seed(t *testing.T, paid bool) (entity.ID, entity.ID) {
	t.Helper()
	ctx := context.Background()
	order, err := s.orders.CreateOrder(ctx, &entity.Order{IsPaid: paid})
	require.NoError(t, err)
	product, err := s.orders.CreateProduct(ctx, &entity.Product{
		Title:        "Mi Tienda",
		Slug:         "landing-page-producto",
		TemplateType: "landing",
	})
	require.NoError(t, err)
	item, err := s.orders.CreateOrderItem(ctx, &entity.OrderItem{
		OrderID:    order.ID,
		ProductID:  product.ID,
		SiteConfig: entity.NewSiteConfig(map[string]any{"siteName": "Mi Tienda"}),
	})
	require.NoError(t, err)
	return order.ID, item.ID
}

func (s *testServer) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) entity.DeployResult {
	t.Helper()
	var result entity.DeployResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestDeployLifecycle(t *testing.T) {
	s := newTestServer(t)
	_, itemID := s.seed(t, true)

	rec := s.do(t, http.MethodPost, "/api/order-items/"+itemID.String()+"/deploy")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeResult(t, rec)
	assert.True(t, result.OK)
	assert.Equal(t, itemID, result.OrderItemID)
	assert.NotEmpty(t, result.DeploymentURL)
	assert.Len(t, s.bucket.Keys(), 1)

	rec = s.do(t, http.MethodGet, "/api/order-items/"+itemID.String()+"/deployment")
	require.Equal(t, http.StatusOK, rec.Code)
	var unit entity.DeploymentUnit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unit))
	assert.Equal(t, entity.DeploymentStatusDeployed, unit.Status)
	assert.Equal(t, result.DeploymentURL, unit.DeploymentURL)

	rec = s.do(t, http.MethodDelete, "/api/order-items/"+itemID.String()+"/deployment")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, s.bucket.Keys())

	rec = s.do(t, http.MethodDelete, "/api/order-items/"+itemID.String()+"/deployment")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, entity.FailureNotDeployed, decodeResult(t, rec).Kind)

	rec = s.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sitehost_deploy_results_total{outcome="success"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/api/order-items/:id/deploy"`)
}

func TestDeployFailures(t *testing.T) {
	s := newTestServer(t)
	_, unpaid := s.seed(t, false)

	rec := s.do(t, http.MethodPost, "/api/order-items/"+unpaid.String()+"/deploy")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, entity.FailureNotPaid, decodeResult(t, rec).Kind)

	rec = s.do(t, http.MethodPost, "/api/order-items/missing/deploy")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/order-items/missing/deployment")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeployOrder(t *testing.T) {
	s := newTestServer(t)
	orderID, itemID := s.seed(t, true)

	rec := s.do(t, http.MethodPost, "/api/orders/"+orderID.String()+"/deploy")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Results []entity.DeployResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.True(t, body.Results[0].OK)
	assert.Equal(t, itemID, body.Results[0].OrderItemID)

	rec = s.do(t, http.MethodPost, "/api/orders/missing/deploy")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderEventsOverWebsocket(t *testing.T) {
	s := newTestServer(t)
	orderID, itemID := s.seed(t, true)

	ts := httptest.NewServer(s.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/orders/" + orderID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hub := do.MustInvoke[*notify.Hub](s.srv.config.Injector)
	require.Eventually(t, func() bool { return hub.Subscribers(orderID) == 1 }, time.Second, 10*time.Millisecond)

	rec := s.do(t, http.MethodPost, "/api/order-items/"+itemID.String()+"/deploy")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event notify.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, notify.EventOrderStale, event.Type)
	assert.Equal(t, orderID, event.OrderID)
}
