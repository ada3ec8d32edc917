package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodie/internal/client/classifier"
	"github.com/dmitrijs2005/foodie/internal/client/client"
	"github.com/dmitrijs2005/foodie/internal/client/config"
	"github.com/dmitrijs2005/foodie/internal/client/identity"
	"github.com/dmitrijs2005/foodie/internal/client/imaging"
	"github.com/dmitrijs2005/foodie/internal/client/repositories/documents"
	"github.com/dmitrijs2005/foodie/internal/client/scan"
	"github.com/dmitrijs2005/foodie/internal/client/session"
	"github.com/dmitrijs2005/foodie/internal/client/store"
	"github.com/dmitrijs2005/foodie/internal/filex"
	"github.com/dmitrijs2005/foodie/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

const pingTimeout = 3 * time.Second

type App struct {
	config *config.Config
	log    logging.Logger
	db     *sql.DB
	remote client.Client
	ctrl   *session.Controller

	reader *bufio.Reader
	out    io.Writer

	mu   sync.Mutex
	mode Mode
}

// NewApp opens the local database and wires the session controller. The
// sync server is optional; without one the app runs in disabled mode.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	a := &App{
		config: c,
		log:    log,
		db:     db,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		mode:   ModeDisabled,
	}

	var (
		remote store.Remote
		auth   identity.Authenticator
		sess   session.Remote
	)
	if c.ServerEndpointAddr != "" {
		apiClient, err := client.NewFoodieClient(c.ServerEndpointAddr)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.remote = apiClient
		a.mode = ModeOffline
		remote, auth, sess = apiClient, apiClient, apiClient
	}

	docs := documents.NewSQLiteRepository(db)
	tc := classifier.NewTriageClassifier(nil)

	a.ctrl = session.NewController(session.Deps{
		Identity:   identity.NewManager(docs, auth, log),
		Store:      store.New(docs, remote, log, store.Config{WriteTimeout: c.WriteTimeout}),
		Remote:     sess,
		Compressor: imaging.NewCompressor(c.ThumbnailSize, c.JPEGQuality),
		Detector:   classifier.NewSimulatedDetector(tc, c.SimulatedLatency),
		Classifier: tc,
		Log:        log,
	}, session.Config{
		HistoryCap: c.HistoryCap,
		Scan: scan.Config{
			CompressTimeout: c.CompressTimeout,
			ClassifyTimeout: c.ClassifyTimeout,
		},
		OnRemoteChange: a.onRemoteChange,
	})

	return a, nil
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) onRemoteChange(ev store.Event) {
	switch ev.Key {
	case store.KeyAllergies:
		a.println("\n[sync] allergen profile updated from another device")
	case store.KeyHistory:
		a.println("\n[sync] scan history updated from another device")
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) session() *session.Session {
	return a.ctrl.Current()
}

func (a *App) isLoggedIn() bool {
	return a.session() != nil
}

func (a *App) status() string {
	s := ""
	if sess := a.session(); sess != nil {
		s = sess.User.DisplayName + " "
	}
	return s + string(a.Mode())
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.Close(context.Background())

	if a.remote != nil {
		a.probe(ctx)
		go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}

	a.println("Welcome to foodie (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
}

// Close ends the session and releases the database and server connection.
func (a *App) Close(ctx context.Context) {
	if a.isLoggedIn() {
		_ = a.ctrl.SignOut(ctx)
	}
	if a.remote != nil {
		_ = a.remote.Close()
	}
	_ = a.db.Close()
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := a.remote.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// StartOnlineStatusWatcher pings the server every interval until ctx ends.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
