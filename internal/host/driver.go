package host

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/roach88/turbine/internal/host/srcscan"
	"github.com/roach88/turbine/internal/ir"
	"github.com/roach88/turbine/internal/store"
)

// DefaultMaxPasses bounds the number of generation passes a Driver runs
// before giving up.
const DefaultMaxPasses = 64

// Driver is a multi-pass host over Go sources.
//
// Pass 1 scans the source directories. Each later pass scans the Go files
// generators created in SourceOutput since the previous pass. When a pass
// creates no new Go source, the next pass is final.
type Driver struct {
	scanner   *srcscan.Scanner
	filer     store.Filer
	dirs      []string
	logger    *slog.Logger
	maxPasses int

	pass    int
	created int
	final   bool
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithMaxPasses overrides DefaultMaxPasses.
func WithMaxPasses(n int) DriverOption {
	return func(d *Driver) {
		if n > 0 {
			d.maxPasses = n
		}
	}
}

// WithDriverLogger sets the driver logger.
func WithDriverLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDriver creates a driver scanning dirs and reading generated files
// through filer.
func NewDriver(scanner *srcscan.Scanner, filer store.Filer, dirs []string, opts ...DriverOption) *Driver {
	d := &Driver{
		scanner:   scanner,
		filer:     filer,
		dirs:      dirs,
		logger:    slog.New(slog.DiscardHandler),
		maxPasses: DefaultMaxPasses,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NextPass implements engine.Host.
func (d *Driver) NextPass(ctx context.Context) (ir.TaggedSet, bool, error) {
	if d.final {
		return nil, false, ErrExhausted
	}
	d.pass++

	if d.pass == 1 {
		decls, err := d.scanner.ScanDirs(ctx, d.dirs...)
		if err != nil {
			return nil, false, err
		}
		d.created = len(d.filer.Created())
		d.logger.Debug("scanned sources", "dirs", len(d.dirs), "decls", len(decls))
		return TagAll(decls), false, nil
	}

	files, err := d.generatedSources()
	if err != nil {
		return nil, false, err
	}
	if len(files) == 0 {
		d.final = true
		return ir.TaggedSet{}, true, nil
	}
	if d.pass > d.maxPasses {
		return nil, false, fmt.Errorf("generation did not settle after %d passes", d.maxPasses)
	}

	decls, err := d.scanner.ScanFiles(ctx, files)
	if err != nil {
		return nil, false, err
	}
	d.logger.Debug("scanned generated sources", "pass", d.pass, "files", len(files), "decls", len(decls))
	return TagAll(decls), false, nil
}

// generatedSources reads the Go files created since the previous pass.
func (d *Driver) generatedSources() ([]srcscan.File, error) {
	created := store.CreatedSince(d.filer, d.created)
	d.created += len(created)

	var files []srcscan.File
	for _, cf := range created {
		if cf.Location != store.SourceOutput || !srcscan.IsGoSource(cf.Path) {
			continue
		}
		rc, err := d.filer.Open(cf.Location, cf.Path)
		if err != nil {
			return nil, fmt.Errorf("open generated %s: %w", cf.Path, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read generated %s: %w", cf.Path, err)
		}
		// The location prefix keeps generated IDs apart from scanned sources.
		files = append(files, srcscan.File{Path: path.Join(string(cf.Location), cf.Path), Source: data})
	}
	return files, nil
}
