// Package browser hosts pages in a real Chrome through go-rod. A Page is
// a dom.Document whose queries run against a snapshot of the live DOM,
// re-read on Refresh, while scrolling acts on the live tab.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"linkstash/pkg/config"
	"linkstash/pkg/errors"
	"linkstash/pkg/logger"
	"linkstash/pkg/retry"
)

// Browser owns one Chrome process or a connection to a running one
type Browser struct {
	cfg  config.BrowserConfig
	log  logger.Logger
	mu   sync.Mutex
	b    *rod.Browser
	lnch *launcher.Launcher
}

// Launch starts Chrome, or attaches to cfg.ControlURL when it is set
func Launch(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (*Browser, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("component", "browser")

	var wsURL string
	var l *launcher.Launcher
	if cfg.ControlURL != "" {
		wsURL = cfg.ControlURL
		log.WithField("url", wsURL).Info("connecting to running browser")
	} else {
		l = launcher.New().Context(ctx).Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		if cfg.UserDataDir != "" {
			l = l.UserDataDir(cfg.UserDataDir)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeBrowser, "launching chrome", err)
		}
		wsURL = u
		log.InfoWithFields("launched chrome", map[string]interface{}{
			"headless": cfg.Headless,
			"stealth":  cfg.Stealth,
		})
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Cleanup()
		}
		return nil, errors.Wrap(errors.ErrorTypeBrowser, "connecting to chrome", err)
	}
	return &Browser{cfg: cfg, log: log, b: b, lnch: l}, nil
}

// Open creates a tab, navigates to pageURL and takes the first snapshot.
// Navigation is retried with backoff; each attempt gets the configured
// navigation timeout.
func (br *Browser) Open(ctx context.Context, pageURL string) (*Page, error) {
	br.mu.Lock()
	b := br.b
	br.mu.Unlock()
	if b == nil {
		return nil, errors.New(errors.ErrorTypeBrowser, "browser is closed")
	}

	var rp *rod.Page
	var err error
	if br.cfg.Stealth {
		rp, err = stealth.Page(b)
	} else {
		rp, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeBrowser, "creating tab", err)
	}

	p := newPage(rp, br.log.WithField("url", pageURL))
	if err := p.navigate(ctx, pageURL, br.policy(ctx), br.cfg.NavigationTimeout); err != nil {
		rp.Close()
		return nil, err
	}
	return p, nil
}

func (br *Browser) policy(ctx context.Context) retry.Policy {
	p := retry.DefaultPolicy()
	if br.cfg.RetryAttempts > 0 {
		p.Attempts = br.cfg.RetryAttempts
	}
	p.Logger = br.log
	// a timed-out attempt is worth retrying while the caller still waits
	p.RetryIf = func(err error) bool {
		return ctx.Err() == nil && errors.IsType(err, errors.ErrorTypeBrowser)
	}
	return p
}

// Close shuts the browser down. A launched Chrome is killed and its
// profile directory removed; an attached one is only disconnected.
func (br *Browser) Close() error {
	br.mu.Lock()
	defer br.mu.Unlock()
	var err error
	if br.b != nil {
		err = br.b.Close()
		br.b = nil
	}
	if br.lnch != nil {
		br.lnch.Cleanup()
		br.lnch = nil
	}
	return err
}

func navTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

func (p *Page) navigate(ctx context.Context, pageURL string, policy retry.Policy, timeout time.Duration) error {
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		navCtx, cancel := context.WithTimeout(ctx, navTimeout(timeout))
		defer cancel()

		if err := p.page.Context(navCtx).Navigate(pageURL); err != nil {
			return errors.Wrap(errors.ErrorTypeBrowser, fmt.Sprintf("navigating to %s", pageURL), err)
		}
		if err := p.page.Context(navCtx).WaitLoad(); err != nil {
			p.log.WithError(err).Warn("wait load timeout")
		}
		return nil
	})
	if err != nil {
		return err
	}
	return p.Refresh(ctx)
}
