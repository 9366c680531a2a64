package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yz4230/sitehost/internal/builder"
	"github.com/yz4230/sitehost/internal/entity"
	"github.com/yz4230/sitehost/internal/locker"
	"github.com/yz4230/sitehost/internal/metrics"
	"github.com/yz4230/sitehost/internal/notify"
	"github.com/yz4230/sitehost/internal/publisher"
	"github.com/yz4230/sitehost/internal/repository"
	"github.com/yz4230/sitehost/internal/storage"
	"github.com/yz4230/sitehost/internal/testutil"
	"github.com/yz4230/sitehost/internal/tracker"
)

const (
	installCommand = "npm install"
	buildCommand   = "npm run build"
)

// fakeRunner plays the node toolchain: the build step writes a static
// export into out/ unless told otherwise.
type fakeRunner struct {
	fs billy.Filesystem

	mu         sync.Mutex
	calls      []string
	dirs       []string
	builds     int
	running    int
	maxRunning int

	failures map[string]*builder.Result
	noOutput bool

	// block holds every command until release is closed or ctx ends.
	block   bool
	release chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, command, dir string) (*builder.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, command)
	f.dirs = append(f.dirs, dir)
	f.running++
	f.maxRunning = max(f.maxRunning, f.running)
	failure := f.failures[command]
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}()

	if f.block {
		select {
		case <-ctx.Done():
			return &builder.Result{ExitCode: -1}, ctx.Err()
		case <-f.release:
		}
	}
	if failure != nil {
		return failure, nil
	}
	if command != buildCommand || f.noOutput {
		return &builder.Result{}, nil
	}

	f.mu.Lock()
	f.builds++
	n := f.builds
	f.mu.Unlock()

	rel, err := filepath.Rel(f.fs.Root(), dir)
	if err != nil {
		return nil, err
	}
	files := map[string]string{
		"out/index.html":          fmt.Sprintf("<html>build %d</html>", n),
		"out/_next/static/app.js": "console.log('app')",
	}
	for name, content := range files {
		path := filepath.Join(rel, name)
		if err := f.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := util.WriteFile(f.fs, path, []byte(content), 0o644); err != nil {
			return nil, err
		}
	}
	time.Sleep(5 * time.Millisecond)
	return &builder.Result{Stdout: "compiled successfully"}, nil
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type recordingNotifier struct {
	mu    sync.Mutex
	stale []entity.ID
}

func (r *recordingNotifier) OrderStale(_ context.Context, orderID entity.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale = append(r.stale, orderID)
}

func (r *recordingNotifier) calls() []entity.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.ID(nil), r.stale...)
}

type harness struct {
	injector  *do.Injector
	fs        billy.Filesystem
	bucket    *testutil.MemoryS3
	runner    *fakeRunner
	notifier  *recordingNotifier
	orders    repository.OrderRepository
	items     repository.OrderItemRepository
	tracker   tracker.Tracker
	workspace storage.Workspace
}

func newHarness(t *testing.T, options DeployOptions) *harness {
	t.Helper()
	log := zerolog.Nop()

	db, err := repository.NewDB("")
	require.NoError(t, err)
	ws, err := storage.NewOSWorkspace(t.TempDir(), log)
	require.NoError(t, err)

	h := &harness{
		fs:        ws.Filesystem(),
		bucket:    testutil.NewMemoryS3(),
		notifier:  &recordingNotifier{},
		orders:    repository.NewOrderRepository(db),
		items:     repository.NewOrderItemRepository(db),
		workspace: ws,
	}
	h.runner = &fakeRunner{fs: h.fs, release: make(chan struct{})}
	h.tracker = tracker.NewTracker(h.items, log)

	injector := do.New()
	do.ProvideValue(injector, log)
	do.ProvideValue(injector, options)
	do.ProvideValue[*gorm.DB](injector, db)
	do.ProvideValue(injector, h.items)
	do.ProvideValue(injector, h.tracker)
	do.ProvideValue(injector, h.workspace)
	do.ProvideValue(injector, builder.NewBuilder(h.runner, builder.Config{
		InstallCommand: installCommand,
		BuildCommand:   buildCommand,
	}, log))
	do.ProvideValue(injector, publisher.NewPublisher(h.bucket, h.fs, publisher.Config{
		Bucket: "sites",
		Region: "eu-west-1",
	}, log))
	do.ProvideValue[locker.Locker](injector, locker.NewMemoryLocker())
	do.ProvideValue[notify.Notifier](injector, h.notifier)
	do.ProvideValue(injector, metrics.New())
	do.Provide(injector, NewDeployOrderItemUsecase)
	do.Provide(injector, NewDeployOrderUsecase)
	do.Provide(injector, NewDeleteDeploymentUsecase)
	do.Provide(injector, NewGetDeploymentUsecase)
	h.injector = injector
	return h
}

func (h *harness) addTemplate(t *testing.T, templateType, slug string) {
	t.Helper()
	dir := filepath.Join(storage.SourcesDir, templateType, slug)
	files := map[string]string{
		"package.json":               `{"name":"template","scripts":{"build":"next build"}}`,
		"next.config.js":             `module.exports = { output: "export" }`,
		"app/page.tsx":               `export default function Page() { return null }`,
		"node_modules/next/index.js": "module.exports = {}",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, h.fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, util.WriteFile(h.fs, path, []byte(content), 0o644))
	}
}

type itemSpec struct {
	paid         bool
	templateType string
	slug         string
	title        string
	config       string
}

func (h *harness) seedOrder(t *testing.T, specs ...itemSpec) (entity.ID, []entity.ID) {
	t.Helper()
	ctx := context.Background()
	paid := len(specs) > 0 && specs[0].paid
	order, err := h.orders.CreateOrder(ctx, &entity.Order{IsPaid: paid})
	require.NoError(t, err)

	ids := make([]entity.ID, len(specs))
	for i, spec := range specs {
		product, err := h.orders.CreateProduct(ctx, &entity.Product{
			Title:        spec.title,
			Slug:         spec.slug,
			TemplateType: spec.templateType,
		})
		require.NoError(t, err)
		cfg, err := entity.ParseSiteConfig([]byte(spec.config))
		require.NoError(t, err)
		item, err := h.orders.CreateOrderItem(ctx, &entity.OrderItem{
			OrderID:    order.ID,
			ProductID:  product.ID,
			SiteConfig: cfg,
		})
		require.NoError(t, err)
		ids[i] = item.ID
	}
	return order.ID, ids
}

func (h *harness) seedItem(t *testing.T, spec itemSpec) (entity.ID, entity.ID) {
	t.Helper()
	orderID, ids := h.seedOrder(t, spec)
	return orderID, ids[0]
}

func (h *harness) unit(t *testing.T, id entity.ID) *entity.DeploymentUnit {
	t.Helper()
	unit, err := h.items.GetOrderItem(context.Background(), id)
	require.NoError(t, err)
	return unit
}

func (h *harness) deploy(id entity.ID) entity.DeployResult {
	return h.deployContext(context.Background(), id)
}

func (h *harness) deployContext(ctx context.Context, id entity.ID) entity.DeployResult {
	return do.MustInvoke[DeployOrderItemUsecase](h.injector).Execute(ctx, id)
}

func (h *harness) remove(id entity.ID) entity.DeployResult {
	return do.MustInvoke[DeleteDeploymentUsecase](h.injector).Execute(context.Background(), id)
}

var landingItem = itemSpec{
	paid:         true,
	templateType: "landing",
	slug:         "landing-page-producto",
	title:        "Landing Page Producto",
	config:       `{"siteName":"Mi Tienda","email":"hola@mitienda.es","primaryColor":"#FF0000"}`,
}
