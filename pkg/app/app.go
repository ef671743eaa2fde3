// Package app wires the five core components (spec §2) into one scheduler
// process: the MIME graph, the printer registry and attribute builder, the
// policy/authorization engine, the format-discovery cache, and the readiness
// multiplexer. It owns the single cooperative main loop and the full/partial
// reload transitions (spec §4.6), the way lazydocker's pkg/app.App wires its
// Gui/OSCommand/Config together behind one Run.
package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"printsched/pkg/config"
	"printsched/pkg/discovery"
	"printsched/pkg/errkind"
	"printsched/pkg/mimetype"
	"printsched/pkg/policy"
	"printsched/pkg/printerreg"
	"printsched/pkg/readiness"
)

// Core is the assembled scheduler: every registry plus the multiplexer that
// drives the main loop.
type Core struct {
	Log *logrus.Entry

	Process config.ProcessConfig

	Graph     *mimetype.Database
	Locations *policy.LocationSet
	Policies  *policy.PolicySet
	Registry  *printerreg.Registry
	Discovery *discovery.Cache
	Mux       readiness.Multiplexer
}

// New assembles a Core from process configuration. The registries start
// empty; call FullReload to populate them from disk.
func New(log *logrus.Entry, proc config.ProcessConfig) *Core {
	graph := mimetype.NewDatabase()
	locations := policy.NewLocationSet()
	policies := policy.NewPolicySet()
	disc := discovery.NewCache()
	disc.Init()

	c := &Core{
		Log:       log,
		Process:   proc,
		Graph:     graph,
		Locations: locations,
		Policies:  policies,
		Discovery: disc,
		Mux:       readiness.New(),
	}
	c.Registry = printerreg.NewRegistry(graph, policies, c, proc.ServerName)
	return c
}

// PrinterStateChanged implements printerreg.EventSink by logging the
// transition; distributing it to notification subscribers is an external
// collaborator's job (spec §1 non-goal).
func (c *Core) PrinterStateChanged(ev printerreg.StateChangeEvent) {
	c.Log.WithFields(logrus.Fields{
		"printer": ev.Printer,
		"from":    ev.Old.String(),
		"to":      ev.New.String(),
	}).Info("printer state changed")
}

// FullReload implements spec §4.6's full reload: delete the existing
// printers, rebuild the MIME graph from the configured type/filter
// directories, then reload printers from the printers file. Job and
// subscription state belong to external collaborators (spec §1) and aren't
// touched here.
func (c *Core) FullReload(ctx context.Context, printersFilePath string) error {
	c.Log.Info("full reload starting")

	for _, p := range c.Registry.Printers() {
		c.Registry.DeletePrinter(p)
	}

	newGraph := mimetype.NewDatabase()
	var loadErrs []error
	for _, dir := range c.Process.MimeTypeDirs {
		if err := newGraph.LoadDirectory(dir); err != nil {
			loadErrs = append(loadErrs, err)
		}
	}
	c.Graph = newGraph
	c.Registry = printerreg.NewRegistry(c.Graph, c.Policies, c, c.Process.ServerName)
	c.Discovery.Clear()

	if printersFilePath != "" {
		if err := c.loadPrintersFile(printersFilePath); err != nil {
			loadErrs = append(loadErrs, err)
		}
	}

	if err := c.loadDriverCachesAndRebuild(ctx); err != nil {
		loadErrs = append(loadErrs, err)
	}

	if len(loadErrs) > 0 {
		c.Log.WithField("errorCount", len(loadErrs)).Warn("full reload completed with recoverable errors")
		return errkind.New(errkind.IOTransient, "full reload: %d recoverable errors", len(loadErrs))
	}
	c.Log.Info("full reload complete")
	return nil
}

// PartialReload implements spec §4.6's partial reload: only common
// attributes and the per-printer attribute builder re-run. The MIME graph
// and printer set are left untouched.
func (c *Core) PartialReload() {
	c.Log.Info("partial reload")
	common := printerreg.DefaultCommonAttrs()
	for _, p := range c.Registry.Printers() {
		c.Registry.SetPrinterAttributes(p, common, nil)
	}
}

func (c *Core) loadPrintersFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errkind.New(errkind.IOFatal, "open printers file %s: %v", path, err)
	}
	defer f.Close()
	return config.ParsePrintersFile(f, c.Registry)
}

// loadDriverCachesAndRebuild resolves each printer's driver description
// cache path under the process cache directory, loads them with bounded
// concurrency (golang.org/x/sync/errgroup), and re-runs the attribute
// builder for every printer, with or without a driver.
func (c *Core) loadDriverCachesAndRebuild(ctx context.Context) error {
	printers := c.Registry.Printers()
	for _, p := range printers {
		if p.Model == "" {
			continue
		}
		p.DriverPath = filepath.Join(c.Process.CacheDir, "drivers", p.Model+".yaml")
	}

	descs, err := printerreg.LoadDriverCaches(ctx, printers, readCacheFile)

	common := printerreg.DefaultCommonAttrs()
	for _, p := range printers {
		c.Registry.SetPrinterAttributes(p, common, descs[p.Name])
	}
	return err
}

func readCacheFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WritePrintersFile persists the current registry state back to path
// (spec §6 roundtrip requirement).
func (c *Core) WritePrintersFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errkind.New(errkind.IOFatal, "create printers file %s: %v", path, err)
	}
	defer f.Close()
	return config.WritePrintersFile(f, c.Registry)
}

// Run starts the multiplexer and drives the cooperative main loop until ctx
// is canceled (spec §5 "Scheduling model"): a single loop repeatedly calls
// Poll, and callbacks run to completion before the next Poll.
func (c *Core) Run(ctx context.Context, pollTimeout time.Duration) error {
	if err := c.Mux.Start(); err != nil {
		return errkind.New(errkind.IOFatal, "start readiness multiplexer: %v", err)
	}
	defer c.Mux.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if _, err := c.Mux.Poll(pollTimeout); err != nil {
			return err
		}
	}
}

// Authorize evaluates an incoming request against the best-matching
// location bound to path (spec §4.3). A path with no matching location is
// left unrestricted, matching FindBest's "dormant" semantics for a limit of
// zero: nothing has been configured to guard it.
func (c *Core) Authorize(path string, method uint32, req policy.Request, owner string) policy.Verdict {
	loc, ok := c.Locations.FindBest(path, method)
	if !ok {
		return policy.OK
	}
	return policy.IsAuthorized(loc, req, owner)
}
