package browser

import (
	"context"
	"fmt"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/browsergate/browsergate/pkg/logging"
)

// Options configures the managed browser process.
type Options struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// UserDataDir is the profile directory. Empty lets the launcher
	// pick a throwaway directory.
	UserDataDir string

	// SnapshotMaxNodes bounds snapshot size. Zero means the default;
	// a negative value removes the bound.
	SnapshotMaxNodes int
}

// Manager owns the browser process and the session registry. One
// manager means one browser; sessions are isolated contexts inside it.
type Manager struct {
	logger           *logging.Logger
	registry         *Registry
	snapshotMaxNodes int

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewManager launches the browser and creates the default session in
// the browser's default context. The returned manager is ready to
// serve operations.
func NewManager(opts Options, logger *logging.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	execOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !opts.Headless {
		execOpts = append(execOpts, chromedp.Flag("headless", false))
	}
	if opts.UserDataDir != "" {
		execOpts = append(execOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Debugf))

	// First Run starts the browser process and attaches the default tab
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	m := &Manager{
		logger:           logger,
		snapshotMaxNodes: opts.SnapshotMaxNodes,
		allocCancel:      allocCancel,
		browserCtx:       browserCtx,
		browserCancel:    browserCancel,
	}
	if m.snapshotMaxNodes == 0 {
		m.snapshotMaxNodes = DefaultSnapshotMaxNodes
	}

	defaultSession := newSession(DefaultSessionID, browserCtx, nil, "", logger)
	defaultSession.snapshotMaxNodes = m.snapshotMaxNodes
	m.registry = NewRegistry(defaultSession)

	logger.Infof("browser launched, default session ready")
	return m, nil
}

// Resolve returns the session for id, the default session for "".
func (m *Manager) Resolve(id string) (*Session, error) {
	return m.registry.Resolve(id)
}

// Sessions returns information about all live sessions.
func (m *Manager) Sessions() []SessionInfo {
	return m.registry.List()
}

// CreateSession creates an isolated session: its own browser context
// (cookies, storage and cache separate from every other session) with
// a single blank tab. An empty id gets a generated one. Creating a
// session whose id already exists returns the existing session.
func (m *Manager) CreateSession(id string) (*Session, error) {
	if id == "" {
		id = uuid.New().String()
	}
	if session, err := m.registry.Resolve(id); err == nil {
		return session, nil
	}

	var contextID cdp.BrowserContextID
	var targetID target.ID
	err := chromedp.Run(m.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		contextID, err = target.CreateBrowserContext().Do(ctx)
		if err != nil {
			return err
		}
		targetID, err = target.CreateTarget("about:blank").
			WithBrowserContextID(contextID).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCreation, err)
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx, chromedp.WithTargetID(targetID))
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("%w: %v", ErrContextCreation, err)
	}

	session := newSession(id, tabCtx, tabCancel, contextID, m.logger)
	session.snapshotMaxNodes = m.snapshotMaxNodes
	m.registry.Add(session)
	m.logger.Infof("created session %s", id)
	return session, nil
}

// CloseSession closes the tab and disposes the session's browser
// context, discarding its cookies and storage. Closing the default
// session is refused; closing an id that no longer exists succeeds.
func (m *Manager) CloseSession(id string) error {
	session, err := m.registry.Remove(id)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	if session.cancel != nil {
		session.cancel()
	}
	if session.browserContextID != "" {
		err := chromedp.Run(m.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			return target.DisposeBrowserContext(session.browserContextID).Do(ctx)
		}))
		if err != nil {
			return fmt.Errorf("failed to dispose browser context for %s: %w", id, err)
		}
	}

	m.logger.Infof("closed session %s", id)
	return nil
}

// Health round-trips the browser connection and returns the product
// version string.
func (m *Manager) Health() (string, error) {
	var product string
	err := chromedp.Run(m.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, p, _, _, _, err := cdpbrowser.GetVersion().Do(ctx)
		product = p
		return err
	}))
	if err != nil {
		return "", fmt.Errorf("browser health check failed: %w", err)
	}
	return product, nil
}

// Shutdown closes every session and stops the browser process.
func (m *Manager) Shutdown() {
	for _, info := range m.registry.List() {
		if info.ID == DefaultSessionID {
			continue
		}
		if err := m.CloseSession(info.ID); err != nil {
			m.logger.Warnf("failed to close session %s during shutdown: %v", info.ID, err)
		}
	}

	m.browserCancel()
	m.allocCancel()
	m.logger.Infof("browser stopped")
}
