package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/browsergate/browsergate/pkg/logging"
)

// Session is one isolated browser context with a single tab. The
// default session runs in the browser's default context and has no
// cancel func; isolated sessions own their tab context and the
// browser-level context id used to dispose storage on close.
//
// The mutable metadata (last-used timestamp, current URL) is guarded
// by a mutex: socket clients are served concurrently, so a listing
// from one client can overlap an operation from another.
type Session struct {
	// ID is the unique identifier for this session
	ID string

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	mu         sync.RWMutex
	lastUsedAt time.Time
	currentURL string

	ctx              context.Context
	cancel           context.CancelFunc
	browserContextID cdp.BrowserContextID
	snapshotMaxNodes int
	logger           *logging.Logger
}

func newSession(id string, ctx context.Context, cancel context.CancelFunc, browserContextID cdp.BrowserContextID, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.NewNop()
	}
	now := time.Now()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		lastUsedAt: now,
		currentURL: "about:blank",
		ctx:        ctx,
		cancel:     cancel,

		browserContextID: browserContextID,
		snapshotMaxNodes: DefaultSnapshotMaxNodes,
		logger:           logger,
	}
}

// UpdateLastUsed updates the last used timestamp.
func (s *Session) UpdateLastUsed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsedAt = time.Now()
}

// LastUsedAt returns the timestamp of the last operation on this session.
func (s *Session) LastUsedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsedAt
}

// CurrentURL returns the URL the session last navigated to.
func (s *Session) CurrentURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentURL
}

func (s *Session) setCurrentURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentURL = url
}

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// elementExists probes for selector and fails fast with
// ErrElementNotFound when nothing matches. There are no retries.
func elementExists(selector string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		var found bool
		expr := fmt.Sprintf("document.querySelector(%s) !== null", jsString(selector))
		if err := chromedp.Evaluate(expr, &found).Do(ctx); err != nil {
			return fmt.Errorf("failed to probe selector %q: %w", selector, err)
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
		}
		return nil
	}
}

// Navigate loads url and reports where the page landed.
func (s *Session) Navigate(url string) (*NavigationResult, error) {
	s.UpdateLastUsed()

	result := &NavigationResult{}
	err := chromedp.Run(s.ctx,
		chromedp.Navigate(url),
		chromedp.Location(&result.URL),
		chromedp.Title(&result.Title),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	result.Status = "complete"
	s.setCurrentURL(result.URL)
	return result, nil
}

// Click clicks the element matching selector.
func (s *Session) Click(selector string) error {
	s.UpdateLastUsed()

	sel := ResolveSelector(selector)
	err := chromedp.Run(s.ctx,
		elementExists(sel),
		chromedp.Click(sel, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

// Fill focuses the element matching selector, clears its current value
// and types the new one.
func (s *Session) Fill(selector, value string) error {
	s.UpdateLastUsed()

	sel := ResolveSelector(selector)
	clearScript := fmt.Sprintf(
		`(() => { const el = document.querySelector(%s); if (el && "value" in el) { el.value = ""; } })()`,
		jsString(sel))

	err := chromedp.Run(s.ctx,
		elementExists(sel),
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.Evaluate(clearScript, nil),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	return nil
}

// Select sets the value of a select element and fires input/change so
// framework listeners see the update.
func (s *Session) Select(selector, value string) error {
	s.UpdateLastUsed()

	sel := ResolveSelector(selector)
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		el.value = %s;
		el.dispatchEvent(new Event("input", { bubbles: true }));
		el.dispatchEvent(new Event("change", { bubbles: true }));
	})()`, jsString(sel), jsString(value))

	err := chromedp.Run(s.ctx,
		elementExists(sel),
		chromedp.Evaluate(script, nil),
	)
	if err != nil {
		return fmt.Errorf("failed to select %q on %s: %w", value, selector, err)
	}
	return nil
}

// Check sets the checked state of a checkbox or radio element.
func (s *Session) Check(selector string, checked bool) error {
	s.UpdateLastUsed()

	sel := ResolveSelector(selector)
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		el.checked = %t;
		el.dispatchEvent(new Event("change", { bubbles: true }));
	})()`, jsString(sel), checked)

	err := chromedp.Run(s.ctx,
		elementExists(sel),
		chromedp.Evaluate(script, nil),
	)
	if err != nil {
		return fmt.Errorf("failed to set checked on %s: %w", selector, err)
	}
	return nil
}

// Hover moves the mouse to the center of the element matching selector.
func (s *Session) Hover(selector string) error {
	s.UpdateLastUsed()

	sel := ResolveSelector(selector)
	err := chromedp.Run(s.ctx,
		elementExists(sel),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var point [2]float64
			expr := fmt.Sprintf(`(() => {
				const r = document.querySelector(%s).getBoundingClientRect();
				return [r.left + r.width / 2, r.top + r.height / 2];
			})()`, jsString(sel))
			if err := chromedp.Evaluate(expr, &point).Do(ctx); err != nil {
				return err
			}
			return input.DispatchMouseEvent(input.MouseMoved, point[0], point[1]).Do(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to hover %s: %w", selector, err)
	}
	return nil
}

// Scroll scrolls the element matching selector into view, or scrolls
// the window by (deltaX, deltaY) when selector is empty.
func (s *Session) Scroll(selector string, deltaX, deltaY float64) error {
	s.UpdateLastUsed()

	if selector == "" {
		script := fmt.Sprintf("window.scrollBy(%f, %f)", deltaX, deltaY)
		if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, nil)); err != nil {
			return fmt.Errorf("failed to scroll window: %w", err)
		}
		return nil
	}

	sel := ResolveSelector(selector)
	script := fmt.Sprintf(
		`document.querySelector(%s).scrollIntoView({ block: "center", inline: "nearest" })`,
		jsString(sel))

	err := chromedp.Run(s.ctx,
		elementExists(sel),
		chromedp.Evaluate(script, nil),
	)
	if err != nil {
		return fmt.Errorf("failed to scroll to %s: %w", selector, err)
	}
	return nil
}

// Press sends a single key press to the focused element.
func (s *Session) Press(key string) error {
	return s.dispatchKey(key, 0)
}

// PressCombo sends a key press with modifiers held. The same modifier
// mask is attached to both the down and the up event.
func (s *Session) PressCombo(key string, modifiers []string) error {
	return s.dispatchKey(key, ModifierMask(modifiers))
}

func (s *Session) dispatchKey(key string, mask int64) error {
	s.UpdateLastUsed()

	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, ev := range keyEvents(key, mask) {
			if err := ev.Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("failed to press %q: %w", key, err)
	}
	return nil
}

// Upload attaches a local file to the file input matching selector.
// The path is resolved to an absolute path and must exist.
func (s *Session) Upload(selector, path string) error {
	s.UpdateLastUsed()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, abs)
		}
		return fmt.Errorf("failed to stat %s: %w", abs, err)
	}

	sel := ResolveSelector(selector)
	probe := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return el.tagName === "INPUT" && el.type === "file";
	})()`, jsString(sel))

	err = chromedp.Run(s.ctx,
		elementExists(sel),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var isFileInput bool
			if err := chromedp.Evaluate(probe, &isFileInput).Do(ctx); err != nil {
				return err
			}
			if !isFileInput {
				return fmt.Errorf("element %s is not a file input", selector)
			}
			return nil
		}),
		chromedp.SetUploadFiles(sel, []string{abs}, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to upload to %s: %w", selector, err)
	}
	return nil
}

// Screenshot captures the full page. When path is non-empty the image
// is written there, otherwise it is returned inline as base64.
func (s *Session) Screenshot(path string) (*ScreenshotResult, error) {
	s.UpdateLastUsed()

	var buf []byte
	var dims [2]int
	err := chromedp.Run(s.ctx,
		chromedp.FullScreenshot(&buf, DefaultScreenshotQuality),
		chromedp.Evaluate("[window.innerWidth, window.innerHeight]", &dims),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	result := &ScreenshotResult{Width: dims[0], Height: dims[1]}
	if path != "" {
		if err := os.WriteFile(path, buf, 0600); err != nil {
			return nil, fmt.Errorf("failed to write screenshot to %s: %w", path, err)
		}
		result.Path = path
	} else {
		result.Data = base64.StdEncoding.EncodeToString(buf)
	}
	return result, nil
}

// Cookies returns all cookies visible to this session.
func (s *Session) Cookies() ([]Cookie, error) {
	s.UpdateLastUsed()

	var raw []*network.Cookie
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to get cookies: %w", err)
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookie := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		}
		if !c.Session {
			expires := c.Expires
			cookie.Expires = &expires
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

// SetCookies installs cookies into this session.
func (s *Session) SetCookies(cookies []Cookie) error {
	s.UpdateLastUsed()

	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.SameSite != "" {
			param.SameSite = network.CookieSameSite(c.SameSite)
		}
		if c.Expires != nil {
			expires := cdp.TimeSinceEpoch(time.Unix(0, int64(*c.Expires*float64(time.Second))))
			param.Expires = &expires
		}
		params = append(params, param)
	}

	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	return nil
}

// LocalStorage returns the current origin's localStorage contents.
func (s *Session) LocalStorage() (*LocalStorageState, error) {
	s.UpdateLastUsed()

	state := &LocalStorageState{}
	script := `(() => {
		const items = {};
		for (let i = 0; i < localStorage.length; i++) {
			const key = localStorage.key(i);
			items[key] = localStorage.getItem(key);
		}
		return { origin: location.origin, items: items };
	})()`

	if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, state)); err != nil {
		return nil, fmt.Errorf("failed to read localStorage: %w", err)
	}
	if state.Items == nil {
		state.Items = map[string]string{}
	}
	return state, nil
}

// ReplaceLocalStorage clears the current origin's localStorage and
// replays items one key at a time. Individual setItem failures are
// skipped; the count of stored keys is returned.
func (s *Session) ReplaceLocalStorage(items map[string]string) (int, error) {
	s.UpdateLastUsed()

	payload, err := json.Marshal(items)
	if err != nil {
		return 0, fmt.Errorf("failed to encode localStorage items: %w", err)
	}

	script := fmt.Sprintf(`(() => {
		localStorage.clear();
		const items = %s;
		let stored = 0;
		for (const [key, value] of Object.entries(items)) {
			try {
				localStorage.setItem(key, value);
				stored++;
			} catch (e) {
				// quota or access failure on this key, keep going
			}
		}
		return stored;
	})()`, payload)

	var stored int
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, &stored)); err != nil {
		return 0, fmt.Errorf("failed to restore localStorage: %w", err)
	}
	return stored, nil
}
