package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// refAttr tags elements reported in a Rod snapshot so later calls can find
// them again by ref.
const refAttr = "data-clickcheck-ref"

// snapshotJS walks the document and emits one line per interactive element
// (tagged with a ref) and per short visible text leaf (untagged).
const snapshotJS = `() => {
  const lines = [];
  let n = 0;
  const interactive = 'button, input, textarea, select, a[href], [role=button]';
  const roleOf = (el) => {
    const role = el.getAttribute('role');
    if (role) return role;
    switch (el.tagName) {
      case 'BUTTON': return 'button';
      case 'A': return 'link';
      case 'SELECT': return 'combobox';
      case 'TEXTAREA': return 'textbox';
      case 'INPUT': {
        const t = (el.getAttribute('type') || 'text').toLowerCase();
        if (t === 'submit' || t === 'button') return 'button';
        if (t === 'checkbox') return 'checkbox';
        return 'textbox';
      }
    }
    return el.tagName.toLowerCase();
  };
  const nameOf = (el) => (el.getAttribute('aria-label') || el.innerText || el.value ||
    el.getAttribute('placeholder') || '').trim().replace(/\s+/g, ' ').slice(0, 120);
  for (const el of document.body.querySelectorAll('*')) {
    if (el.matches(interactive)) {
      n++;
      const ref = 'e' + n;
      el.setAttribute('` + refAttr + `', ref);
      const name = nameOf(el);
      lines.push('- ' + roleOf(el) + (name ? ' "' + name + '"' : '') + ' [ref=' + ref + ']');
    } else if (el.children.length === 0) {
      const text = (el.innerText || '').trim();
      if (text && text.length <= 120) lines.push('- text: ' + text.replace(/\s+/g, ' '));
    }
  }
  return lines.join('\n');
}`

// Rod drives Chrome directly. Each label gets its own incognito context so
// the two players never share cookies.
type Rod struct {
	// ControlURL of a running Chrome; when empty a local browser is launched.
	ControlURL        string
	Headless          bool
	SnapshotDir       string
	NavigationTimeout time.Duration
	Logger            *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
	pages   map[string]*rod.Page
}

func (r *Rod) connect(ctx context.Context) error {
	if r.browser != nil {
		return nil
	}
	controlURL := r.ControlURL
	if controlURL == "" {
		url, err := launcher.New().Headless(r.Headless).Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	r.browser = b
	r.pages = make(map[string]*rod.Page)
	return nil
}

func (r *Rod) page(ctx context.Context, label string) (*rod.Page, error) {
	p, ok := r.pages[label]
	if !ok {
		return nil, fmt.Errorf("session %s is not open", label)
	}
	return p.Context(ctx), nil
}

func (r *Rod) element(ctx context.Context, label, ref string) (*rod.Element, error) {
	p, err := r.page(ctx, label)
	if err != nil {
		return nil, err
	}
	el, err := p.Element(fmt.Sprintf("[%s=%q]", refAttr, ref))
	if err != nil {
		return nil, fmt.Errorf("session %s: element %s: %w", label, ref, err)
	}
	return el, nil
}

// Open navigates the session to url, creating an isolated context on first use.
func (r *Rod) Open(ctx context.Context, label, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.connect(ctx); err != nil {
		return err
	}
	p, ok := r.pages[label]
	if !ok {
		incognito, err := r.browser.Incognito()
		if err != nil {
			return fmt.Errorf("incognito context: %w", err)
		}
		p, err = incognito.Page(proto.TargetCreateTarget{})
		if err != nil {
			return fmt.Errorf("create page: %w", err)
		}
		r.pages[label] = p
	}
	timeout := r.NavigationTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	nav := p.Context(ctx).Timeout(timeout)
	if err := nav.Navigate(url); err != nil {
		return fmt.Errorf("session %s: navigate %s: %w", label, url, err)
	}
	return nav.WaitLoad()
}

// Fill replaces the element's value with value.
func (r *Rod) Fill(ctx context.Context, label, ref, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, err := r.element(ctx, label, ref)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("session %s: select %s: %w", label, ref, err)
	}
	return el.Input(value)
}

// Click clicks the element ref.
func (r *Rod) Click(ctx context.Context, label, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, err := r.element(ctx, label, ref)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Snapshot tags interactive elements and writes the snapshot to a
// timestamped artifact under SnapshotDir.
func (r *Rod) Snapshot(ctx context.Context, label string) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.page(ctx, label)
	if err != nil {
		return "", "", err
	}
	res, err := p.Eval(snapshotJS)
	if err != nil {
		r.logger().Debug("snapshot eval failed", zap.String("session", label), zap.Error(err))
		return "", "", nil
	}
	text := res.Value.String()

	dir := r.SnapshotDir
	if dir == "" {
		dir = ".clickcheck"
	}
	path := filepath.Join(dir, fmt.Sprintf("page-%s-%s.yml", label, time.Now().Format("20060102T150405.000")))
	if err := os.MkdirAll(dir, 0755); err == nil {
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			r.logger().Debug("snapshot artifact not written", zap.String("path", path), zap.Error(err))
		}
	}
	return text, path, nil
}

// Eval runs a function expression such as "() => document.title".
func (r *Rod) Eval(ctx context.Context, label, script string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.page(ctx, label)
	if err != nil {
		return "", err
	}
	res, err := p.Eval(script)
	if err != nil {
		// Eval failures are output, as with the CLI tool.
		return "Error: " + err.Error(), nil
	}
	return res.Value.String(), nil
}

// Screenshot saves a PNG of the viewport to path.
func (r *Rod) Screenshot(ctx context.Context, label, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.page(ctx, label)
	if err != nil {
		return err
	}
	data, err := p.Screenshot(false, nil)
	if err != nil {
		return fmt.Errorf("session %s: screenshot: %w", label, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create screenshot dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Close closes the session's page. The browser itself is released once the
// last session closes.
func (r *Rod) Close(ctx context.Context, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[label]
	if !ok {
		return nil
	}
	delete(r.pages, label)
	err := p.Close()
	if len(r.pages) == 0 && r.browser != nil {
		err = errors.Join(err, r.browser.Close())
		r.browser = nil
	}
	return err
}

func (r *Rod) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
