package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/agent-first/agentmap/config"
	"github.com/agent-first/agentmap/models"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// fetchFunc produces rendered HTML for a URL. The default implementation
// drives a headless Chromium; tests swap in a stub.
type fetchFunc func(ctx context.Context, url string) (string, error)

type jobResult struct {
	html string
	err  error
}

type job struct {
	ctx  context.Context
	url  string
	resp chan jobResult
}

// Worker renders pages in a dedicated goroutine, one at a time. Serializing
// render jobs keeps at most one Chromium alive and makes a crashed render
// unable to corrupt a concurrent one. Each job launches a fresh browser and
// tears it down before the next job starts.
type Worker struct {
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	fetch      fetchFunc
	jobs       chan *job
	quit       chan struct{}
	done       chan struct{}
}

// NewWorker starts the render loop.
func NewWorker(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) *Worker {
	w := &Worker{
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		jobs:       make(chan *job),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	w.fetch = w.renderOnce
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case j := <-w.jobs:
			html, err := w.fetch(j.ctx, j.url)
			j.resp <- jobResult{html: html, err: err}
		}
	}
}

// Render queues a render job and waits for its result. The whole operation,
// queue wait included, is bounded by the configured render budget regardless
// of how long navigation itself is allowed to take.
func (w *Worker) Render(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.scraperCfg.RenderBudget)
	defer cancel()

	j := &job{ctx: ctx, url: pageURL, resp: make(chan jobResult, 1)}

	select {
	case w.jobs <- j:
	case <-w.done:
		return "", models.NewScrapeError(models.ErrCodeRenderUnavailable,
			"render worker is shut down", nil)
	case <-ctx.Done():
		return "", models.NewScrapeError(models.ErrCodeTimeout,
			fmt.Sprintf("rendering %s exceeded the render budget while queued", pageURL), ctx.Err())
	}

	select {
	case r := <-j.resp:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return "", models.NewScrapeError(models.ErrCodeTimeout,
				fmt.Sprintf("rendering %s exceeded the render budget", pageURL), r.err)
		}
		return r.html, r.err
	case <-ctx.Done():
		// The in-flight job sees the same context and will abort on its own;
		// the buffered resp channel lets the loop move on without us.
		return "", models.NewScrapeError(models.ErrCodeTimeout,
			fmt.Sprintf("rendering %s exceeded the render budget", pageURL), ctx.Err())
	}
}

// Close stops the worker. Any job already running finishes (or hits its
// budget) first.
func (w *Worker) Close() {
	close(w.quit)
	<-w.done
	slog.Info("render worker stopped")
}

// renderOnce launches a fresh Chromium, renders one page and tears the
// browser down. A fresh browser per job costs a couple of seconds but
// guarantees no cross-page state (cookies, challenge tokens) leaks between
// targets.
func (w *Worker) renderOnce(ctx context.Context, pageURL string) (string, error) {
	l := launcher.New().
		Headless(w.browserCfg.Headless).
		NoSandbox(w.browserCfg.NoSandbox)

	if w.browserCfg.Bin != "" {
		l = l.Bin(w.browserCfg.Bin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeRenderUnavailable,
			"failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return "", models.NewScrapeError(models.ErrCodeRenderUnavailable,
			"failed to connect to browser", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			slog.Warn("browser close failed", "error", closeErr)
		}
		l.Kill()
	}()

	page, err := stealth.Page(browser)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeRenderUnavailable,
			"failed to open stealth page", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("viewport override failed", "error", err)
	}
	_ = proto.EmulationSetLocaleOverride{Locale: "en-US"}.Call(page)
	_ = proto.EmulationSetTimezoneOverride{TimezoneID: "America/New_York"}.Call(page)
	_ = proto.NetworkSetUserAgentOverride{
		UserAgent:      browserUA,
		AcceptLanguage: "en-US,en;q=0.9",
	}.Call(page)

	if u, parseErr := url.Parse(pageURL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(page)
	}

	p := page.Context(ctx)

	if err := p.Timeout(w.scraperCfg.NavTimeout).Navigate(pageURL); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", models.NewScrapeError(models.ErrCodeTimeout,
				fmt.Sprintf("navigation to %s timed out", pageURL), err)
		}
		return "", models.NewScrapeError(models.ErrCodeInternal,
			fmt.Sprintf("navigation to %s failed", pageURL), err)
	}
	if err := p.Timeout(w.scraperCfg.NavTimeout).WaitLoad(); err != nil {
		slog.Debug("load event not observed, capturing current DOM", "url", pageURL, "error", err)
	}

	// Challenge interstitials redirect shortly after load; give them time
	// to resolve before the DOM is captured.
	select {
	case <-time.After(w.scraperCfg.SettleWait):
	case <-ctx.Done():
		return "", models.NewScrapeError(models.ErrCodeTimeout,
			fmt.Sprintf("rendering %s exceeded the render budget", pageURL), ctx.Err())
	}

	html, err := p.HTML()
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeInternal,
			"failed to capture rendered HTML", err)
	}
	return html, nil
}

func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
