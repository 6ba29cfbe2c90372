package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/nodegate/errors"
	"github.com/c360/nodegate/registry"
)

// HealthReport maps module name to reachability. It is built fresh on every call.
type HealthReport map[string]bool

// ModuleHealth is the detailed outcome of one module check.
type ModuleHealth struct {
	Module     string
	URL        string
	Reachable  bool
	StatusCode int // zero when no response was received
	Latency    time.Duration
	Err        error
}

// CheckHealth checks every registered module and reports which answered 200.
func (d *Dispatcher) CheckHealth(ctx context.Context) HealthReport {
	report := make(HealthReport, d.registry.Len())
	for _, mh := range d.CheckHealthDetailed(ctx) {
		report[mh.Module] = mh.Reachable
	}
	return report
}

// CheckHealthDetailed checks every registered module concurrently and returns
// the outcomes in registration order.
func (d *Dispatcher) CheckHealthDetailed(ctx context.Context) []ModuleHealth {
	bindings := d.registry.Bindings()
	results := make([]ModuleHealth, len(bindings))
	index := make(map[string]int, len(bindings))
	for i, b := range bindings {
		index[b.Name] = i
	}

	// Each callback writes its own slot.
	d.CheckHealthFunc(ctx, func(mh ModuleHealth) {
		results[index[mh.Module]] = mh
	})
	return results
}

// CheckHealthFunc checks every registered module concurrently and calls fn as
// soon as each check completes, so a fast module is reported without waiting
// for a slow one. fn may be called from several goroutines at once.
// CheckHealthFunc returns after every check has completed.
func (d *Dispatcher) CheckHealthFunc(ctx context.Context, fn func(ModuleHealth)) {
	var g errgroup.Group
	if d.healthConcurrency > 0 {
		g.SetLimit(d.healthConcurrency)
	}

	for _, b := range d.registry.Bindings() {
		b := b
		g.Go(func() error {
			fn(d.checkModule(ctx, b))
			return nil
		})
	}

	// Checks never return errors; a failing module is a false entry.
	_ = g.Wait()
}

func (d *Dispatcher) checkModule(ctx context.Context, b registry.Binding) (mh ModuleHealth) {
	mh = ModuleHealth{
		Module: b.Name,
		URL:    strings.TrimSuffix(b.BaseURL, "/"),
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			mh.Reachable = false
			mh.Err = fmt.Errorf("health check panicked: %v", r)
		}
		mh.Latency = time.Since(start)
		d.recorder.RecordHealthCheck(mh.Module, mh.Reachable, mh.Latency)
		d.logHealth(mh)
	}()

	ctx, cancel := context.WithTimeout(ctx, d.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mh.URL, nil)
	if err != nil {
		mh.Err = err
		return mh
	}

	resp, err := d.healthClient.Do(req)
	if err != nil {
		mh.Err = err
		return mh
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	mh.StatusCode = resp.StatusCode
	mh.Reachable = resp.StatusCode == http.StatusOK
	return mh
}

func (d *Dispatcher) logHealth(mh ModuleHealth) {
	if mh.Reachable {
		d.logger.Debug("Module reachable",
			"module", mh.Module, "url", mh.URL, "status", mh.StatusCode, "latency", mh.Latency)
		return
	}

	if mh.Err != nil {
		d.logger.Warn("Module unreachable",
			"module", mh.Module, "url", mh.URL, "error_class", healthErrorClass(mh.Err), "error", mh.Err)
		return
	}

	d.logger.Warn("Module unhealthy",
		"module", mh.Module, "url", mh.URL, "status", mh.StatusCode)
}

func healthErrorClass(err error) string {
	switch {
	case errors.IsConnectionRefused(err):
		return KindConnectionUnavailable.String()
	case errors.IsTimeout(err):
		return KindTimeout.String()
	default:
		return KindTransport.String()
	}
}
