// Package static extracts titles and images from raw HTML using Colly,
// without executing JavaScript. It serves deployments that cannot run a
// browser; pages whose preview depends on scripting degrade accordingly.
package static

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/bracekit/linkextract/internal/extract"
)

// ErrNoPreviewImage indicates no inline image qualified as a preview. The
// static renderer cannot take screenshots, so there is no fallback here.
var ErrNoPreviewImage = errors.New("no qualifying preview image")

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	Timeout       time.Duration
	ViewportWidth int
}

// Renderer implements extract.PageExtractor with plain HTTP fetches.
type Renderer struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Renderer.
func New(cfg Config) *Renderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1280
	}
	c := colly.NewCollector(colly.Async(false))
	c.SetRequestTimeout(cfg.Timeout)
	return &Renderer{
		cfg:           cfg,
		baseCollector: c,
	}
}

type pageScan struct {
	h1         string
	h2         string
	docTitle   string
	candidates []extract.ImageCandidate
}

// RenderAndExtract fetches the page, applies the title heuristics to the
// static DOM, and downloads the largest qualifying image. Dimensions come
// from width/height attributes; images sized only by CSS are invisible here.
func (r *Renderer) RenderAndExtract(ctx context.Context, url string) (extract.PageContent, error) {
	if err := ctx.Err(); err != nil {
		return extract.PageContent{}, fmt.Errorf("render canceled: %w", err)
	}

	scan, err := r.scanPage(url)
	if err != nil {
		return extract.PageContent{}, err
	}

	title := extract.ChooseTitle(scan.h1, scan.h2, scan.docTitle)

	largest, ok := extract.LargestCandidate(scan.candidates)
	if !ok || !extract.QualifiesAsPreview(largest.Width, largest.Height, r.cfg.ViewportWidth) {
		return extract.PageContent{}, ErrNoPreviewImage
	}
	image, err := r.fetchImage(largest.Src)
	if err != nil {
		return extract.PageContent{}, err
	}
	return extract.PageContent{Title: title, Image: image}, nil
}

func (r *Renderer) scanPage(url string) (pageScan, error) {
	collector := r.baseCollector.Clone()
	if r.cfg.UserAgent != "" {
		collector.UserAgent = r.cfg.UserAgent
	}

	var (
		scan     pageScan
		fetchErr error
	)
	collector.OnHTML("h1", func(e *colly.HTMLElement) {
		if scan.h1 == "" {
			scan.h1 = e.Text
		}
	})
	collector.OnHTML("h2", func(e *colly.HTMLElement) {
		if scan.h2 == "" {
			scan.h2 = e.Text
		}
	})
	collector.OnHTML("title", func(e *colly.HTMLElement) {
		if scan.docTitle == "" {
			scan.docTitle = e.Text
		}
	})
	collector.OnHTML("img[src]", func(e *colly.HTMLElement) {
		width, _ := strconv.Atoi(e.Attr("width"))
		height, _ := strconv.Atoi(e.Attr("height"))
		scan.candidates = append(scan.candidates, extract.ImageCandidate{
			Src:    e.Request.AbsoluteURL(e.Attr("src")),
			Width:  width,
			Height: height,
		})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(url); err != nil {
		return pageScan{}, fmt.Errorf("visit %s: %w", url, err)
	}
	collector.Wait()
	if fetchErr != nil {
		return pageScan{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	return scan, nil
}

func (r *Renderer) fetchImage(src string) ([]byte, error) {
	collector := r.baseCollector.Clone()
	if r.cfg.UserAgent != "" {
		collector.UserAgent = r.cfg.UserAgent
	}

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(resp *colly.Response) {
		body = append([]byte(nil), resp.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(src); err != nil {
		return nil, fmt.Errorf("visit image %s: %w", src, err)
	}
	collector.Wait()
	if fetchErr != nil {
		return nil, fmt.Errorf("fetch image %s: %w", src, fetchErr)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty image body for %s", src)
	}
	return body, nil
}
