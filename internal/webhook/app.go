// Package webhook hosts multiple bots behind one HTTP listener. Each
// hosted bot gets a route segment derived from its name; inbound updates
// are routed through the shared dispatcher and every admitted request is
// guarded against shutdown until its dispatch completes.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/telehost/telehost/internal/bot"
	"github.com/telehost/telehost/internal/config"
	"github.com/telehost/telehost/internal/logger"
	"github.com/telehost/telehost/internal/metrics"
	"github.com/telehost/telehost/internal/shutdown"
	"golang.org/x/sync/errgroup"
)

// maxUpdateBytes bounds the request body read per update.
const maxUpdateBytes = 1 << 20

var (
	// ErrRouteConflict means a derived route collides with a live one.
	ErrRouteConflict = errors.New("webhook route already assigned to another bot")
	// ErrRunnerExists means the bot is already hosted.
	ErrRunnerExists = errors.New("bot is already hosted")
	// ErrRunnerNotFound means the named bot is not currently hosted.
	ErrRunnerNotFound = errors.New("bot is not hosted")
)

// hostedRunner is one live route table entry with its job supervision.
type hostedRunner struct {
	runner *bot.Runner
	route  string
	cancel context.CancelFunc
	group  *errgroup.Group
}

// Config holds the collaborators an App needs.
type Config struct {
	// BaseURL is the public URL the remote side should deliver updates
	// to, without the /webhook suffix. Empty disables remote webhook
	// registration (tests, local runs behind a tunnel manager).
	BaseURL string

	// ProcessingTimeout bounds one update's dispatch. Zero uses the
	// default webhook processing budget.
	ProcessingTimeout time.Duration

	Dispatcher  *bot.Dispatcher
	Coordinator *shutdown.Coordinator
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
}

// App owns the route table. The table is read on every request and
// mutated only by AddRunner/RemoveRunner; readers never observe a
// half-applied update.
type App struct {
	baseURL           string
	processingTimeout time.Duration
	dispatcher        *bot.Dispatcher
	coordinator       *shutdown.Coordinator
	metrics           *metrics.Metrics
	log               *logger.Logger

	mu     sync.RWMutex
	routes map[string]*hostedRunner
	names  map[string]string
}

// NewApp creates an app with an empty route table.
func NewApp(cfg Config) *App {
	timeout := cfg.ProcessingTimeout
	if timeout <= 0 {
		timeout = config.WebhookProcessing
	}
	return &App{
		baseURL:           strings.TrimSuffix(cfg.BaseURL, "/"),
		processingTimeout: timeout,
		dispatcher:        cfg.Dispatcher,
		coordinator:       cfg.Coordinator,
		metrics:           cfg.Metrics,
		log:               cfg.Logger.WithModule("webhook"),
		routes:            make(map[string]*hostedRunner),
		names:             make(map[string]string),
	}
}

// Mount registers the webhook endpoint on the router. Both the bare and
// the trailing-slash form are accepted so senders that keep the slash do
// not depend on redirect-following.
func (a *App) Mount(r gin.IRouter) {
	r.POST("/webhook/:route", a.handleUpdate)
	r.POST("/webhook/:route/", a.handleUpdate)
}

// AddRunner hosts a bot: derives its route, registers the remote webhook
// (skipped when the remote already reports the intended URL) and starts
// its background jobs. It returns the assigned route. Safe to call while
// requests are in flight.
func (a *App) AddRunner(ctx context.Context, r *bot.Runner) (string, error) {
	name := r.Bot.Name()
	route := r.WebhookRoute()
	log := a.log.WithBot(name).WithField("route", route)

	a.mu.Lock()
	if _, ok := a.names[name]; ok {
		a.mu.Unlock()
		return "", fmt.Errorf("add runner %q: %w", name, ErrRunnerExists)
	}
	if prior, ok := a.routes[route]; ok {
		a.mu.Unlock()
		return "", fmt.Errorf("add runner %q: route %q held by %q: %w",
			name, route, prior.runner.Bot.Name(), ErrRouteConflict)
	}
	a.mu.Unlock()

	if err := a.registerRemoteWebhook(ctx, r.Bot, route); err != nil {
		return "", fmt.Errorf("add runner %q: %w", name, err)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(jobCtx)
	hosted := &hostedRunner{runner: r, route: route, cancel: cancel, group: group}

	a.mu.Lock()
	if _, ok := a.names[name]; ok {
		a.mu.Unlock()
		cancel()
		return "", fmt.Errorf("add runner %q: %w", name, ErrRunnerExists)
	}
	if prior, ok := a.routes[route]; ok {
		a.mu.Unlock()
		cancel()
		return "", fmt.Errorf("add runner %q: route %q held by %q: %w",
			name, route, prior.runner.Bot.Name(), ErrRouteConflict)
	}
	a.routes[route] = hosted
	a.names[name] = route
	a.mu.Unlock()

	for _, job := range r.Jobs {
		a.startJob(groupCtx, group, name, job)
	}

	if a.metrics != nil {
		a.metrics.HostedBots.Inc()
	}
	log.WithField("jobs", len(r.Jobs)).Info("Bot hosted")
	return route, nil
}

// RemoveRunner stops hosting the named bot. New requests to its route get
// 403 immediately; requests already admitted run to completion. The bot's
// background jobs are cancelled and awaited, and its remote webhook
// registration is removed.
func (a *App) RemoveRunner(ctx context.Context, name string) error {
	a.mu.Lock()
	route, ok := a.names[name]
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("remove runner %q: %w", name, ErrRunnerNotFound)
	}
	hosted := a.routes[route]
	delete(a.routes, route)
	delete(a.names, name)
	a.mu.Unlock()

	hosted.cancel()
	if err := hosted.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.log.WithBot(name).WithError(err).Warn("Background job exited with error")
	}

	if api := hosted.runner.Bot.API(); api != nil && a.baseURL != "" {
		if err := api.DeleteWebhook(ctx, false); err != nil {
			a.log.WithBot(name).WithError(err).Warn("Failed to delete remote webhook")
		}
	}

	if a.metrics != nil {
		a.metrics.HostedBots.Dec()
	}
	a.log.WithBot(name).WithField("route", route).Info("Bot unhosted")
	return nil
}

// Close removes every hosted runner. Called during teardown, after the
// listener stopped admitting requests.
func (a *App) Close(ctx context.Context) {
	for _, name := range a.HostedBots() {
		if err := a.RemoveRunner(ctx, name); err != nil {
			a.log.WithBot(name).WithError(err).Warn("Failed to remove runner during close")
		}
	}
}

// RouteFor returns the route currently assigned to the named bot.
func (a *App) RouteFor(name string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	route, ok := a.names[name]
	return route, ok
}

// HostedBots returns the names of all hosted bots, sorted.
func (a *App) HostedBots() []string {
	a.mu.RLock()
	names := make([]string, 0, len(a.names))
	for name := range a.names {
		names = append(names, name)
	}
	a.mu.RUnlock()
	sort.Strings(names)
	return names
}

// handleUpdate admits one inbound update. Unmapped routes get 403, a
// process in shutdown refuses with 500, everything else answers 200: the
// dispatcher contains decode and handler failures, and a 200 keeps the
// remote side from backing off delivery.
func (a *App) handleUpdate(c *gin.Context) {
	route := c.Param("route")

	if a.coordinator != nil && a.coordinator.IsShuttingDown() {
		if a.metrics != nil {
			a.metrics.RecordWebhookRequest("refused_shutdown")
			a.metrics.RecordHTTPError("shutting_down", route)
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	a.mu.RLock()
	hosted, ok := a.routes[route]
	a.mu.RUnlock()
	if !ok {
		if a.metrics != nil {
			a.metrics.RecordWebhookRequest("unmapped")
			a.metrics.RecordHTTPError("unmapped_route", route)
		}
		a.log.WithField("route", route).Warn("Update for unmapped route")
		c.Status(http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUpdateBytes))
	if err != nil {
		// A broken body is dispatched anyway; the dispatcher reports it
		// as undecodable and the remote side still gets its 200.
		a.log.WithError(err).WithField("route", route).Warn("Failed to read update body")
	}

	a.dispatchGuarded(c.Request.Context(), hosted.runner.Bot, body)

	if a.metrics != nil {
		a.metrics.RecordWebhookRequest("ok")
	}
	c.Status(http.StatusOK)
}

// dispatchGuarded runs one dispatch under a shutdown guard so a signal
// arriving mid-request waits for the dispatch to finish.
func (a *App) dispatchGuarded(ctx context.Context, b *bot.Bot, body []byte) {
	dispatch := func() {
		dispatchCtx, cancel := context.WithTimeout(ctx, a.processingTimeout)
		defer cancel()
		a.dispatcher.Dispatch(dispatchCtx, b, body)
	}
	if a.coordinator == nil {
		dispatch()
		return
	}
	shutdown.Prevent(a.coordinator, "processing webhook update for "+b.Name(), dispatch)
}

// startJob supervises one background job under the runner's errgroup.
func (a *App) startJob(ctx context.Context, group *errgroup.Group, botName string, job bot.Job) {
	log := a.log.WithBot(botName).WithField("job", job.Name)
	group.Go(func() error {
		if a.metrics != nil {
			a.metrics.BackgroundJobs.WithLabelValues(botName).Inc()
			defer a.metrics.BackgroundJobs.WithLabelValues(botName).Dec()
		}
		log.Info("Background job started")
		err := job.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Background job failed")
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
		log.Info("Background job stopped")
		return nil
	})
}

// registerRemoteWebhook points the remote side at this host's route. The
// call is skipped when no base URL or API client is configured, and when
// the remote already reports the intended URL.
func (a *App) registerRemoteWebhook(ctx context.Context, b *bot.Bot, route string) error {
	api := b.API()
	if api == nil || a.baseURL == "" {
		return nil
	}
	intended := a.baseURL + "/webhook/" + route

	info, err := api.GetWebhookInfo(ctx)
	if err != nil {
		return fmt.Errorf("query webhook registration: %w", err)
	}
	if info.URL == intended {
		a.log.WithBot(b.Name()).Debug("Remote webhook already registered, skipping")
		return nil
	}

	if info.URL != "" {
		if err := api.DeleteWebhook(ctx, false); err != nil {
			return fmt.Errorf("clear stale webhook registration: %w", err)
		}
	}
	if err := api.SetWebhook(ctx, intended); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}
	a.log.WithBot(b.Name()).WithField("url", intended).Info("Remote webhook registered")
	return nil
}
