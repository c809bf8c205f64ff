package inspect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Browser evaluates scripts in a real page over the DevTools protocol. It
// either attaches to an existing browser by control URL or launches a
// managed headless instance.
type Browser struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	describe string
	logger   *slog.Logger
}

// ConnectBrowser attaches to the browser at controlURL, or launches a
// managed headless browser when controlURL is empty. The returned engine
// owns a single page, initially about:blank.
func ConnectBrowser(ctx context.Context, controlURL string, logger *slog.Logger) (*Browser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	describe := "browser at " + controlURL
	var managed *launcher.Launcher
	if controlURL == "" {
		managed = launcher.New().Headless(true)
		u, err := managed.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		describe = "managed headless browser"
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		if managed != nil {
			managed.Kill()
			managed.Cleanup()
		}
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		if managed != nil {
			managed.Kill()
			managed.Cleanup()
		}
		return nil, fmt.Errorf("open page: %w", err)
	}
	logger.Debug("browser attached", "control_url", controlURL, "managed", managed != nil)

	return &Browser{
		browser:  browser,
		page:     page,
		launcher: managed,
		describe: describe,
		logger:   logger,
	}, nil
}

// Evaluate runs source as an expression in the page. Exceptions thrown by
// the page surface in the Result; protocol failures surface as a Go error.
func (b *Browser) Evaluate(ctx context.Context, source string) (Result, error) {
	res, err := proto.RuntimeEvaluate{
		Expression:    source,
		ReturnByValue: true,
	}.Call(b.page.Context(ctx))
	if err != nil {
		return Result{}, fmt.Errorf("evaluate: %w", err)
	}
	if res.ExceptionDetails != nil {
		return Result{Thrown: true, Message: exceptionMessage(res.ExceptionDetails)}, nil
	}
	if res.Result == nil || res.Result.Type == proto.RuntimeRemoteObjectTypeUndefined {
		return Result{Undefined: true}, nil
	}
	if res.Result.UnserializableValue != "" {
		return Result{Value: string(res.Result.UnserializableValue)}, nil
	}
	return Result{Value: res.Result.Value.Val()}, nil
}

func exceptionMessage(details *proto.RuntimeExceptionDetails) string {
	if details.Exception != nil {
		if details.Exception.Description != "" {
			return details.Exception.Description
		}
		if v := details.Exception.Value.Val(); v != nil {
			return fmt.Sprint(v)
		}
	}
	return details.Text
}

// Navigate loads rawURL in the page and waits for the load event.
func (b *Browser) Navigate(ctx context.Context, rawURL string) error {
	page := b.page.Context(ctx)
	if err := page.Navigate(rawURL); err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for %s: %w", rawURL, err)
	}
	return nil
}

// Location reports the page's current URL.
func (b *Browser) Location() string {
	info, err := b.page.Info()
	if err != nil {
		b.logger.Debug("page info unavailable", "error", err)
		return ""
	}
	return info.URL
}

// Describe identifies the engine for status output.
func (b *Browser) Describe() string {
	return b.describe
}

// Close shuts the page and, for a managed browser, the browser process.
func (b *Browser) Close() error {
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
	return err
}
