package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/yz4230/sitehost/internal/entity"
	"github.com/yz4230/sitehost/internal/site"
)

const (
	SourcesDir = "sources"
	BuildsDir  = "builds"
	OutputDir  = "out"
)

var (
	envFiles = []string{".env", ".env.local"}

	// Entries never copied into a build workspace.
	skippedEntries = []string{"node_modules", ".next", ".git"}
)

// Workspace manages template sources and build workspaces below a templates
// root. Every path it takes or returns is relative to that root; use Abs to
// hand one to an external process.
type Workspace interface {
	FindTemplateSource(templateType, templateSlug string) (string, error)
	Prepare(sourceDir, subdomain string) (string, error)
	ConfigureEnvironment(buildDir string, cfg entity.SiteConfig) error
	LocateOutput(buildDir string) (string, bool)
	BuildDir(subdomain string) (string, error)
	RemoveBuild(subdomain string) error

	CopyDirectory(src, dest string) error
	DirectoryExists(path string) bool
	RemoveDirectory(path string) error
	WriteFile(path string, content []byte) error

	Abs(path string) string
	Filesystem() billy.Filesystem
}

type WorkspaceImpl struct {
	fs  billy.Filesystem
	log zerolog.Logger
}

// FindTemplateSource implements Workspace.
func (w *WorkspaceImpl) FindTemplateSource(templateType, templateSlug string) (string, error) {
	if !isPathElement(templateType) {
		return "", fmt.Errorf("template type %q: %w", templateType, entity.ErrTemplateMissing)
	}
	typeDir := filepath.Join(SourcesDir, templateType)

	if isPathElement(templateSlug) {
		dir := filepath.Join(typeDir, templateSlug)
		if w.DirectoryExists(dir) {
			return dir, nil
		}
	}

	entries, err := w.fs.ReadDir(typeDir)
	if err != nil {
		return "", fmt.Errorf("no template for %s: %w", templateType, entity.ErrTemplateMissing)
	}
	names := lo.Map(entries, func(fi os.FileInfo, _ int) string { return fi.Name() })
	slices.Sort(names)
	first, ok := lo.Find(names, func(name string) bool { return !strings.HasPrefix(name, ".") })
	if !ok {
		return "", fmt.Errorf("no template for %s: %w", templateType, entity.ErrTemplateMissing)
	}

	w.log.Debug().Str("type", templateType).Str("slug", templateSlug).Str("fallback", first).Msg("using generic template")
	return filepath.Join(typeDir, first), nil
}

// Prepare implements Workspace.
func (w *WorkspaceImpl) Prepare(sourceDir, subdomain string) (string, error) {
	buildDir, err := w.BuildDir(subdomain)
	if err != nil {
		return "", err
	}
	if err := w.CopyDirectory(sourceDir, buildDir); err != nil {
		return "", fmt.Errorf("prepare build dir: %w", err)
	}
	w.log.Debug().Str("src", sourceDir).Str("dir", buildDir).Msg("prepared build workspace")
	return buildDir, nil
}

// ConfigureEnvironment implements Workspace.
func (w *WorkspaceImpl) ConfigureEnvironment(buildDir string, cfg entity.SiteConfig) error {
	content := []byte(site.GenerateEnvContent(cfg))
	for _, name := range envFiles {
		if err := w.WriteFile(filepath.Join(buildDir, name), content); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// LocateOutput implements Workspace.
func (w *WorkspaceImpl) LocateOutput(buildDir string) (string, bool) {
	outDir := filepath.Join(buildDir, OutputDir)
	if !w.DirectoryExists(outDir) {
		return "", false
	}
	return outDir, true
}

// BuildDir implements Workspace.
func (w *WorkspaceImpl) BuildDir(subdomain string) (string, error) {
	if !isPathElement(subdomain) {
		return "", fmt.Errorf("invalid workspace name %q: %w", subdomain, entity.ErrInvalid)
	}
	return filepath.Join(BuildsDir, subdomain), nil
}

// RemoveBuild implements Workspace.
func (w *WorkspaceImpl) RemoveBuild(subdomain string) error {
	dir, err := w.BuildDir(subdomain)
	if err != nil {
		return err
	}
	return w.RemoveDirectory(dir)
}

// CopyDirectory implements Workspace. Copying into an existing destination
// overlays it.
func (w *WorkspaceImpl) CopyDirectory(src, dest string) error {
	if err := w.fs.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	entries, err := w.fs.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	for _, entry := range entries {
		if slices.Contains(skippedEntries, entry.Name()) {
			continue
		}
		srcPath := filepath.Join(src, entry.Name())
		destPath := filepath.Join(dest, entry.Name())

		switch {
		case entry.IsDir():
			if err := w.CopyDirectory(srcPath, destPath); err != nil {
				return err
			}
		case entry.Mode()&os.ModeSymlink != 0:
			if err := w.copySymlink(srcPath, destPath); err != nil {
				return err
			}
		default:
			if err := w.copyFile(srcPath, destPath, entry.Mode().Perm()); err != nil {
				return err
			}
		}
	}
	return nil
}

// DirectoryExists implements Workspace.
func (w *WorkspaceImpl) DirectoryExists(path string) bool {
	fi, err := w.fs.Stat(path)
	return err == nil && fi.IsDir()
}

// RemoveDirectory implements Workspace.
func (w *WorkspaceImpl) RemoveDirectory(path string) error {
	if _, err := w.fs.Lstat(path); os.IsNotExist(err) {
		return nil
	}
	if err := util.RemoveAll(w.fs, path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	w.log.Debug().Str("dir", path).Msg("removed directory")
	return nil
}

// WriteFile implements Workspace.
func (w *WorkspaceImpl) WriteFile(path string, content []byte) error {
	if err := w.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	return util.WriteFile(w.fs, path, content, 0o644)
}

// Abs implements Workspace.
func (w *WorkspaceImpl) Abs(path string) string {
	return filepath.Join(w.fs.Root(), path)
}

// Filesystem implements Workspace.
func (w *WorkspaceImpl) Filesystem() billy.Filesystem { return w.fs }

func (w *WorkspaceImpl) copyFile(src, dest string, perm os.FileMode) error {
	in, err := w.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if perm == 0 {
		perm = 0o644
	}
	out, err := w.fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

func (w *WorkspaceImpl) copySymlink(src, dest string) error {
	target, err := w.fs.Readlink(src)
	if err != nil {
		return fmt.Errorf("readlink %s: %w", src, err)
	}
	if _, err := w.fs.Lstat(dest); err == nil {
		if err := w.fs.Remove(dest); err != nil {
			return fmt.Errorf("replace %s: %w", dest, err)
		}
	}
	return w.fs.Symlink(target, dest)
}

func isPathElement(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// NewWorkspace returns a Workspace on an arbitrary filesystem rooted at the
// templates directory.
func NewWorkspace(fs billy.Filesystem, log zerolog.Logger) Workspace {
	return &WorkspaceImpl{fs: fs, log: log}
}

// NewOSWorkspace returns a Workspace on the local disk below root.
func NewOSWorkspace(root string, log zerolog.Logger) (Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve templates root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, BuildsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create builds dir: %w", err)
	}
	return NewWorkspace(osfs.New(abs), log), nil
}
