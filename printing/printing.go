// Package printing turns HTML documents into PDF files with headless Chrome.
package printing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/irsalhamdi/honey-shop/config"
	"github.com/sirupsen/logrus"
)

var ErrEmptyDocument = errors.New("document is empty")

type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// A4 portrait with 10mm margins, in inches.
const (
	paperWidth  = 8.27
	paperHeight = 11.69
	margin      = 0.39
)

type Chrome struct {
	log         logrus.FieldLogger
	timeout     time.Duration
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChrome connects to the remote browser at cfg.RemoteURL or starts a
// local headless one on first use.
func NewChrome(cfg config.Printing, log logrus.FieldLogger) *Chrome {
	c := Chrome{log: log, timeout: cfg.Timeout}
	if c.timeout == 0 {
		c.timeout = 30 * time.Second
	}

	if cfg.RemoteURL != "" {
		c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("font-render-hinting", "none"),
		)
		c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	return &c
}

func (c *Chrome) Render(ctx context.Context, html string) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, ErrEmptyDocument
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(c.allocCtx,
		chromedp.WithLogf(c.log.Debugf),
	)
	defer browserCancel()

	// chromedp contexts do not inherit the request deadline.
	go func() {
		select {
		case <-ctx.Done():
			browserCancel()
		case <-browserCtx.Done():
		}
	}()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("rendering pdf: %w", ctx.Err())
		}
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}

	if len(pdf) == 0 {
		return nil, errors.New("rendering pdf: empty output")
	}
	return pdf, nil
}

func (c *Chrome) Close() {
	c.allocCancel()
}
