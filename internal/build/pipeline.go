// Package build implements the site build pipeline: clean the build root,
// copy data files, and compile every page through the site compiler. A run
// produces a single Outcome; per-page problems are logged and skipped, only
// failures touching the shared build root flip the outcome to failure.
package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/stanza-dev/stanza/internal/config"
	"github.com/stanza-dev/stanza/internal/logging"
	"github.com/stanza-dev/stanza/internal/site"
)

// Outcome is the result of one pipeline run. Log carries the human-readable
// step-by-step record of what the run did.
type Outcome struct {
	Success bool
	Log     string
}

// Pipeline orchestrates one full site build. It is safe to call Run
// repeatedly; every run rewrites the build root from scratch.
type Pipeline struct {
	cfg      *config.Config
	logger   logging.Logger
	resolver *site.Resolver
}

// New creates a build pipeline for the given project configuration.
func New(cfg *config.Config, logger logging.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		logger:   logger.WithComponent("build"),
		resolver: site.NewResolver(cfg.Site.TemplatesDir),
	}
}

// run-scoped log that feeds both the structured logger and the Outcome log.
type runLog struct {
	ctx    context.Context
	logger logging.Logger
	buf    strings.Builder
}

func (r *runLog) infof(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	r.buf.WriteString(line + "\n")
	r.logger.Info(r.ctx, line)
}

func (r *runLog) errorf(err error, format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	r.buf.WriteString(line + ": " + err.Error() + "\n")
	r.logger.Error(r.ctx, err, line)
}

// Run executes clean, copy-data, and compile-pages in order. The templates
// root must exist before anything else happens; without it the run fails
// immediately and the build root is left untouched.
func (p *Pipeline) Run(ctx context.Context) Outcome {
	log := &runLog{ctx: ctx, logger: p.logger}
	log.infof("starting site build")

	if info, err := os.Stat(p.cfg.Site.TemplatesDir); err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", p.cfg.Site.TemplatesDir)
		}
		log.errorf(err, "templates directory missing, aborting build")
		return Outcome{Success: false, Log: log.buf.String()}
	}

	if err := p.clean(log); err != nil {
		log.errorf(err, "clean failed")
		return Outcome{Success: false, Log: log.buf.String()}
	}
	if err := p.copyData(log); err != nil {
		log.errorf(err, "copying data files failed")
		return Outcome{Success: false, Log: log.buf.String()}
	}
	if err := p.compilePages(log); err != nil {
		log.errorf(err, "compiling pages failed")
		return Outcome{Success: false, Log: log.buf.String()}
	}

	log.infof("build completed successfully")
	return Outcome{Success: true, Log: log.buf.String()}
}

// clean empties the build root without removing the root itself. The dev
// server may be serving from inside it; deleting and recreating the root
// would break the open directory handle.
func (p *Pipeline) clean(log *runLog) error {
	buildDir := p.cfg.Site.BuildDir

	entries, err := os.ReadDir(buildDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(buildDir, 0o755); mkErr != nil {
				return mkErr
			}
			log.infof("created build directory: %s", buildDir)
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(buildDir, entry.Name())); err != nil {
			return err
		}
	}
	log.infof("cleaned build directory: %s", buildDir)
	return nil
}

// copyData mirrors every regular file under the data root into the build
// root, preserving file mode and modification time. A missing data root is
// a logged no-op.
func (p *Pipeline) copyData(log *runLog) error {
	dataDir := p.cfg.Site.DataDir
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		log.infof("no data directory found, skipping data files")
		return nil
	}

	return filepath.WalkDir(dataDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dataDir, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(p.cfg.Site.BuildDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := copyFile(path, dest, info); err != nil {
			return err
		}
		log.infof("copied data file: %s", rel)
		return nil
	})
}

func copyFile(src, dest string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}

// compilePages compiles every page file independently. A page that cannot
// be compiled is logged and skipped; it never blocks the others and never
// fails the run.
func (p *Pipeline) compilePages(log *runLog) error {
	pagesDir := p.cfg.Site.PagesDir
	if _, err := os.Stat(pagesDir); os.IsNotExist(err) {
		log.infof("no pages directory found, skipping pages")
		return nil
	}

	paths, err := filepath.Glob(filepath.Join(pagesDir, "*.html"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.infof("no page files found in %s", pagesDir)
		return nil
	}

	for _, path := range paths {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		raw, err := os.ReadFile(path)
		if err != nil {
			log.errorf(err, "skipping page %s: unreadable", stem)
			continue
		}

		result, err := site.Compile(stem, string(raw), p.resolver)
		if err != nil {
			log.errorf(err, "skipping page %s", stem)
			continue
		}
		if result.Skipped {
			log.infof("skipping page %s: %s", stem, result.Reason)
			continue
		}

		dest := filepath.Join(p.cfg.Site.BuildDir, result.Page.OutputPath)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := writeFileAtomic(dest, []byte(result.Page.HTML)); err != nil {
			return err
		}
		log.infof("built page: %s -> %s", stem, result.Page.OutputPath)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the destination directory
// and renames it into place, so a concurrent reader sees either the old
// file or the new one, never a partial write.
func writeFileAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".stanza-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
