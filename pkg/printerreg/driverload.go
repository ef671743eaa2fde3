package printerreg

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"printsched/pkg/ppd"
)

// driverLoadConcurrency bounds how many driver description caches a full
// reload (spec §4.6) decodes at once.
const driverLoadConcurrency = 8

// LoadDriverCaches loads every printer's driver description cache
// concurrently, bounded by driverLoadConcurrency, and returns the decoded
// descriptions keyed by printer name. A printer with no DriverPath is
// skipped. One printer's load failure does not abort the others: that
// printer is left out of the returned map and no error is returned for it.
// A non-nil error comes only from ctx being cancelled.
func LoadDriverCaches(ctx context.Context, printers []*Printer, open func(path string) ([]byte, error)) (map[string]*ppd.Description, error) {
	results := make(map[string]*ppd.Description)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(driverLoadConcurrency)

	for _, p := range printers {
		p := p
		if p.DriverPath == "" {
			continue
		}
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			drv, err := ppd.Cache(p.DriverPath, open)
			if err != nil {
				// A single unreadable cache is an IOTransient condition
				// (spec §7); skip this printer's driver, not the reload.
				return nil
			}
			mu.Lock()
			results[p.Name] = drv
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
