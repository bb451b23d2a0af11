// Package browser attaches to a debuggable Chrome over CDP, injects the
// page-side agent, and exposes the scan / apply surface the resolver
// works against.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/wayfind-ai/wayfind/internal/devlog"
	"github.com/wayfind-ai/wayfind/internal/scan"
)

// opTimeout bounds a single CDP evaluate/navigate round-trip.
const opTimeout = 10 * time.Second

// Browser is a connection to one Chrome instance. It owns the launched
// process when we started Chrome ourselves; attaching to an existing
// Chrome leaves proc nil and Close never kills the user's browser.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	proc        *Process
}

// Options controls how Connect reaches Chrome.
type Options struct {
	Path     string // executable override
	Port     int    // CDP port, default 9222
	Headless bool
	DataDir  string // profile parent dir when launching
}

// Connect attaches to the Chrome on opts.Port, launching one if nothing
// answers there.
func Connect(opts Options) (*Browser, error) {
	port := opts.Port
	if port == 0 {
		port = 9222
	}

	var proc *Process
	if !IsRunning(port, time.Second) {
		exe, err := FindChrome(opts.Path)
		if err != nil {
			return nil, err
		}
		proc, err = Launch(exe, port, opts.Headless, opts.DataDir)
		if err != nil {
			return nil, err
		}
	} else {
		devlog.Tagf("Browser", "attaching to existing Chrome on port %d", port)
	}

	wsURL, err := WebSocketURL(port, 2*time.Second)
	if err != nil {
		if proc != nil {
			_ = proc.Stop(2 * time.Second)
		}
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), wsURL)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Prime the connection so failures surface here, not on first use.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		if proc != nil {
			_ = proc.Stop(2 * time.Second)
		}
		return nil, fmt.Errorf("failed to attach to Chrome: %w", err)
	}

	return &Browser{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		proc:        proc,
	}, nil
}

// Page returns the working tab.
func (b *Browser) Page() *Page {
	return &Page{ctx: b.tabCtx}
}

// Close tears down the CDP session and stops Chrome if we launched it.
func (b *Browser) Close() {
	b.tabCancel()
	b.allocCancel()
	if b.proc != nil {
		_ = b.proc.Stop(3 * time.Second)
	}
}

// Page is one browser tab. All operations run with a bounded timeout so
// a wedged renderer cannot hang the step loop.
type Page struct {
	ctx context.Context
}

func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(p.ctx, opTimeout)
	defer cancel()
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-opCtx.Done():
			}
		}()
	}
	return chromedp.Run(opCtx, actions...)
}

// Navigate drives the tab to url.
func (p *Page) Navigate(ctx context.Context, url string) error {
	devlog.Tagf("Browser", "navigate %s", url)
	return p.run(ctx, chromedp.Navigate(url))
}

// Info returns the tab's current URL and title.
func (p *Page) Info(ctx context.Context) (scan.PageInfo, error) {
	var info scan.PageInfo
	err := p.run(ctx,
		chromedp.Location(&info.URL),
		chromedp.Title(&info.Title),
	)
	return info, err
}

// WaitLoadComplete polls document.readyState once a second for up to
// maxWait, returning early when the document reaches "complete". A page
// that never settles is not an error; the scan works with what is there.
func (p *Page) WaitLoadComplete(ctx context.Context, maxWait time.Duration) {
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		var state string
		if err := p.run(ctx, chromedp.Evaluate("document.readyState", &state)); err == nil && state == "complete" {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// EnsureAgent injects the page-side agent if this document has not seen
// it yet. Navigation wipes the injected script, so this runs before
// every scan and apply.
func (p *Page) EnsureAgent(ctx context.Context) error {
	var ready bool
	if err := p.run(ctx, chromedp.Evaluate("!!window.__wayfindReady", &ready)); err != nil {
		return fmt.Errorf("agent ping failed: %w", err)
	}
	if ready {
		return nil
	}
	var out string
	if err := p.run(ctx, chromedp.Evaluate(agentJS, &out)); err != nil {
		return fmt.Errorf("agent injection failed: %w", err)
	}
	devlog.Tagf("Browser", "agent injected")
	return nil
}

// Scan runs one scan pass and returns the element snapshot. The indices
// in the result are valid only until the next Scan or navigation.
func (p *Page) Scan(ctx context.Context) (*scan.Result, error) {
	if err := p.EnsureAgent(ctx); err != nil {
		return nil, err
	}
	var result scan.Result
	if err := p.run(ctx, chromedp.Evaluate("window.__wayfind.scan()", &result)); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	devlog.Tagf("Browser", "scan: %d elements on %s", len(result.Elements), result.Page.URL)
	return &result, nil
}

// Command is one actuation request for the page-side agent. Index is
// tried first against the live cache; XPath (+FramePath) is the
// fallback locator.
type Command struct {
	Kind        string `json:"kind"` // "click" or "type"
	Index       int    `json:"index"`
	XPath       string `json:"xpath,omitempty"`
	FramePath   string `json:"framePath,omitempty"`
	Label       string `json:"label,omitempty"`
	Value       string `json:"value,omitempty"`
	SubmitAfter bool   `json:"submitAfter,omitempty"`
}

// ApplyResult is the agent's verdict on one Command.
type ApplyResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Apply executes a command against the current element cache.
func (p *Page) Apply(ctx context.Context, cmd Command) (*ApplyResult, error) {
	if err := p.EnsureAgent(ctx); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	var result ApplyResult
	expr := fmt.Sprintf("window.__wayfind.apply(%s)", payload)
	if err := p.run(ctx, chromedp.Evaluate(expr, &result)); err != nil {
		return nil, fmt.Errorf("apply failed: %w", err)
	}
	devlog.Tagf("Browser", "apply %s index=%d ok=%v reason=%s", cmd.Kind, cmd.Index, result.OK, result.Reason)
	return &result, nil
}

// SearchInput describes the search box the agent found, if any. Index
// refers to the cache of the most recent Scan.
type SearchInput struct {
	Found       bool   `json:"found"`
	Index       int    `json:"index"`
	Placeholder string `json:"placeholder,omitempty"`
}

// FindSearchInput looks for a search box among the scanned inputs.
func (p *Page) FindSearchInput(ctx context.Context) (*SearchInput, error) {
	if err := p.EnsureAgent(ctx); err != nil {
		return nil, err
	}
	var result SearchInput
	if err := p.run(ctx, chromedp.Evaluate("window.__wayfind.findSearchInput()", &result)); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearHighlight removes any actuation highlight left on the page.
func (p *Page) ClearHighlight(ctx context.Context) {
	if err := p.EnsureAgent(ctx); err != nil {
		return
	}
	var result ApplyResult
	_ = p.run(ctx, chromedp.Evaluate("window.__wayfind.clearHighlight()", &result))
}

// Evaluate runs an arbitrary expression in the page. Used by the doctor
// command and tests.
func (p *Page) Evaluate(ctx context.Context, expr string, out any) error {
	return p.run(ctx, chromedp.Evaluate(expr, out))
}
