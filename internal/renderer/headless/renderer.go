// Package headless renders pages with headless Chrome via chromedp and
// applies the content heuristics against the live DOM.
package headless

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/bracekit/linkextract/internal/extract"
)

// Config controls the behavior of the headless renderer.
type Config struct {
	ViewportWidth     int
	ViewportHeight    int
	UserAgent         string
	NavigationTimeout time.Duration
	IdleWindow        time.Duration
	MaxTabs           int
}

// Renderer implements extract.PageExtractor using a shared browser process.
// The browser is launched lazily on first use and reused to spawn one
// isolated tab per URL.
type Renderer struct {
	cfg    Config
	logger *zap.Logger

	limiter chan struct{}

	startOnce   sync.Once
	startErr    error
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
}

const previewAttr = "data-linkextract-preview"

// New creates a headless renderer. The browser process is not started until
// the first RenderAndExtract call.
func New(cfg Config, logger *zap.Logger) (*Renderer, error) {
	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		return nil, fmt.Errorf("viewport dimensions must be > 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.IdleWindow <= 0 {
		cfg.IdleWindow = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxTabs > 0 {
		limiter = make(chan struct{}, cfg.MaxTabs)
	}
	return &Renderer{
		cfg:     cfg,
		logger:  logger,
		limiter: limiter,
	}, nil
}

// ensureBrowser launches the shared browser exactly once.
func (r *Renderer) ensureBrowser() error {
	r.startOnce.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", "new"),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("hide-scrollbars", true),
		)
		if r.cfg.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(r.cfg.UserAgent))
		}
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, browserStop := chromedp.NewContext(allocCtx)
		if err := chromedp.Run(browserCtx); err != nil {
			allocCancel()
			browserStop()
			r.startErr = fmt.Errorf("chromedp warmup: %w", err)
			return
		}
		r.allocCancel = allocCancel
		r.browserCtx = browserCtx
		r.browserStop = browserStop
		r.logger.Info("headless browser started")
	})
	return r.startErr
}

// Close tears down the browser and allocator contexts.
func (r *Renderer) Close() {
	if r.browserStop != nil {
		r.browserStop()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
}

// RenderAndExtract navigates a fresh tab to url, waits for network idle, and
// applies the title and image heuristics. The tab is torn down regardless of
// outcome.
func (r *Renderer) RenderAndExtract(ctx context.Context, url string) (extract.PageContent, error) {
	if err := r.ensureBrowser(); err != nil {
		return extract.PageContent{}, err
	}
	if err := r.acquire(ctx); err != nil {
		return extract.PageContent{}, err
	}
	defer r.release()

	tabCtx, closeTab := chromedp.NewContext(r.browserCtx)
	defer closeTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.cfg.NavigationTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	idle := newIdleTracker(r.cfg.IdleWindow)
	chromedp.ListenTarget(tabCtx, idle.handle)

	var (
		h1, h2, docTitle string
		img              imagePick
	)
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetDeviceMetricsOverride(
			int64(r.cfg.ViewportWidth), int64(r.cfg.ViewportHeight), 1, false),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		idle.waitAction(),
		chromedp.Evaluate(firstTextExpr("h1"), &h1),
		chromedp.Evaluate(firstTextExpr("h2"), &h2),
		chromedp.Title(&docTitle),
		chromedp.Evaluate(pickImageExpr, &img),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return extract.PageContent{}, fmt.Errorf("chromedp run: %w", err)
	}

	// TODO: try Open Graph / Twitter card tags before the DOM heuristics.
	title := extract.ChooseTitle(h1, h2, docTitle)

	image, err := r.captureImage(taskCtx, img)
	if err != nil {
		return extract.PageContent{}, err
	}
	return extract.PageContent{Title: title, Image: image}, nil
}

// captureImage screenshots the qualifying candidate, or the full page when
// none qualifies, so successful extractions always carry an image.
func (r *Renderer) captureImage(ctx context.Context, img imagePick) ([]byte, error) {
	var buf []byte
	if img.Found && extract.QualifiesAsPreview(img.Width, img.Height, r.cfg.ViewportWidth) {
		sel := fmt.Sprintf("img[%s]", previewAttr)
		if err := chromedp.Run(ctx, chromedp.Screenshot(sel, &buf, chromedp.ByQuery)); err != nil {
			return nil, fmt.Errorf("element screenshot: %w", err)
		}
		return buf, nil
	}
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	return buf, nil
}

func (r *Renderer) acquire(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	select {
	case r.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("tab slot wait canceled: %w", ctx.Err())
	}
}

func (r *Renderer) release() {
	if r.limiter == nil {
		return
	}
	select {
	case <-r.limiter:
	default:
	}
}

type imagePick struct {
	Found  bool `json:"found"`
	Width  int  `json:"width"`
	Height int  `json:"height"`
}

// firstTextExpr returns a JS expression yielding the text of the first
// element with the given tag, or the empty string.
func firstTextExpr(tag string) string {
	return fmt.Sprintf(`(() => {
	const el = document.getElementsByTagName(%q)[0];
	if (!el) return '';
	return 'innerText' in el ? el.innerText : el.textContent;
})()`, tag)
}

// pickImageExpr sorts all img elements by rendered area descending, tags the
// largest with the preview attribute, and reports its dimensions.
const pickImageExpr = `(() => {
	for (const el of document.querySelectorAll('img[` + previewAttr + `]')) {
		el.removeAttribute('` + previewAttr + `');
	}
	const imgs = [...document.getElementsByTagName('img')].sort(
		(a, b) => b.width * b.height - a.width * a.height
	);
	const el = imgs[0];
	if (!el) return { found: false, width: 0, height: 0 };
	el.setAttribute('` + previewAttr + `', '1');
	return { found: true, width: el.width, height: el.height };
})()`

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
