package capture

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/chromedp"

	appLog "progcal/internal/log"
	"progcal/internal/model"
)

// Viewport and timeout used when Options leaves them zero.
const (
	DefaultWidth   = 1280
	DefaultHeight  = 960
	DefaultTimeout = 30 * time.Second
)

// readySelector matches the root element of the /calendar page once it has
// rendered.
const readySelector = `[data-ready="true"]`

// Options describes one month snapshot.
type Options struct {
	// BaseURL is the running server, e.g. "http://127.0.0.1:8080".
	BaseURL string
	Month   model.Month

	// OutputPath receives the PNG.
	OutputPath string

	Width   int
	Height  int
	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.BaseURL == "" {
		return errors.New("capture: base URL is required")
	}
	if o.OutputPath == "" {
		return errors.New("capture: output path is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// PageURL returns the /calendar address for month m under base.
func PageURL(base string, m model.Month) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("capture: base URL %q: %w", base, err)
	}
	u.Path = "/calendar"
	u.RawQuery = url.Values{"month": {m.String()}}.Encode()
	return u.String(), nil
}

// MonthPNG drives headless Chromium to the month view, waits for the page
// to report data-ready, and writes a full-page PNG.
func MonthPNG(parent context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}
	target, err := PageURL(opts.BaseURL, opts.Month)
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	err = chromedp.Run(ctx,
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(target),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	)
	if err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	appLog.Info("calendar snapshot written", "month", opts.Month.String(), "path", opts.OutputPath, "bytes", len(png))
	return nil
}
