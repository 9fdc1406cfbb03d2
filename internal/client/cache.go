package client

import (
	"context"
	"log"
	"maps"
	"sync"
	"time"

	"github.com/prudhvinik1/parlourpunch/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultReconcileInterval = 5 * time.Minute
	DefaultPageSize          = 50
	feedSize                 = 50
)

type CacheOptions struct {
	Logger            *log.Logger
	ReconcileInterval time.Duration
	// PageSize is the log page requested when seeding and reconciling.
	PageSize int
	Now      func() time.Time
}

// Cache is the client's view of who is currently in. It only ever reflects
// events it has observed: the seed page, live broadcasts and reconcile polls.
type Cache struct {
	backend  Backend
	store    LocalStore
	logger   *log.Logger
	interval time.Duration
	pageSize int
	now      func() time.Time

	mu        sync.RWMutex
	entries   map[string]EntryState
	employees []*models.Employee
	feed      []*models.AttendanceEvent

	cancel context.CancelFunc
	done   chan struct{}
}

func NewCache(backend Backend, store LocalStore, opts CacheOptions) *Cache {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.ReconcileInterval <= 0 {
		opts.ReconcileInterval = DefaultReconcileInterval
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		backend:  backend,
		store:    store,
		logger:   opts.Logger,
		interval: opts.ReconcileInterval,
		pageSize: opts.PageSize,
		now:      opts.Now,
		entries:  make(map[string]EntryState),
	}
}

// Seed loads the directory and a log page, merges them with the locally
// stored state and persists the result. Employees default to out. A log
// entry wins when the employee is not cached yet or when its timestamp is
// strictly newer than the cached one; the page is newest first, so the first
// entry seen for an employee is the one that sticks.
func (c *Cache) Seed(ctx context.Context) error {
	var (
		employees []*models.Employee
		logs      []*models.AttendanceEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		employees, err = c.backend.ListEmployees(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = c.backend.ListRecentLogs(gctx, c.pageSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	local, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Printf("local cache unreadable, starting empty: %v", err)
		local = nil
	}

	entries := make(map[string]EntryState, len(employees))
	for _, emp := range employees {
		if stored, ok := local[emp.ID]; ok {
			entries[emp.ID] = stored
		} else {
			entries[emp.ID] = EntryState{}
		}
	}

	for _, event := range logs {
		cached, ok := entries[event.EmployeeID]
		if !ok || event.Timestamp.After(cached.LastUpdated) {
			entries[event.EmployeeID] = EntryState{CurrentlyIn: event.CurrentlyIn(), LastUpdated: event.Timestamp}
		}
	}

	feed := logs
	if len(feed) > feedSize {
		feed = feed[:feedSize]
	}

	c.mu.Lock()
	c.entries = entries
	c.employees = employees
	c.feed = append([]*models.AttendanceEvent(nil), feed...)
	snapshot := maps.Clone(entries)
	c.mu.Unlock()

	return c.store.Save(ctx, snapshot)
}

// ApplyStatusUpdate trusts the broadcast unconditionally: it comes from an
// event the server has just persisted.
func (c *Cache) ApplyStatusUpdate(ctx context.Context, update models.StatusUpdate) error {
	state := EntryState{CurrentlyIn: update.Status, LastUpdated: c.now().UTC()}

	c.mu.Lock()
	c.entries[update.EmployeeID] = state
	c.mu.Unlock()

	return c.store.Put(ctx, update.EmployeeID, state)
}

// ApplyAttendanceEvent records a confirmed event in the display feed.
func (c *Cache) ApplyAttendanceEvent(event *models.AttendanceEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.feed {
		if existing.ID == event.ID {
			return
		}
	}
	c.feed = append([]*models.AttendanceEvent{event}, c.feed...)
	if len(c.feed) > feedSize {
		c.feed = c.feed[:feedSize]
	}
}

// Reconcile heals missed broadcasts: for every employee in a fresh log page
// the entry with the newest receipt time overwrites the cached state.
func (c *Cache) Reconcile(ctx context.Context) error {
	logs, err := c.backend.ListRecentLogs(ctx, c.pageSize)
	if err != nil {
		return err
	}

	newest := newestPerEmployee(logs)

	c.mu.Lock()
	for id, event := range newest {
		c.entries[id] = EntryState{CurrentlyIn: event.CurrentlyIn(), LastUpdated: event.Timestamp}
	}
	snapshot := maps.Clone(c.entries)
	c.mu.Unlock()

	return c.store.Save(ctx, snapshot)
}

// Start runs Reconcile on the configured interval until ctx is cancelled or
// Stop is called.
func (c *Cache) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.loop(ctx)
}

func (c *Cache) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *Cache) loop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Reconcile(ctx); err != nil && ctx.Err() == nil {
				c.logger.Printf("status refresh error: %v", err)
			}
		}
	}
}

func (c *Cache) Get(employeeID string) (EntryState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.entries[employeeID]
	return state, ok
}

func (c *Cache) Snapshot() map[string]EntryState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.entries)
}

func (c *Cache) Employees() []*models.Employee {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*models.Employee(nil), c.employees...)
}

func (c *Cache) Feed() []*models.AttendanceEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*models.AttendanceEvent(nil), c.feed...)
}

// Counts returns how many directory employees are in and out. Entries known
// only from the log are left out.
func (c *Cache) Counts() (in, out int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, emp := range c.employees {
		if c.entries[emp.ID].CurrentlyIn {
			in++
		} else {
			out++
		}
	}
	return in, out
}

// put writes one entry, returning what it replaced.
func (c *Cache) put(ctx context.Context, employeeID string, state EntryState) (EntryState, bool, error) {
	c.mu.Lock()
	prev, existed := c.entries[employeeID]
	c.entries[employeeID] = state
	c.mu.Unlock()

	return prev, existed, c.store.Put(ctx, employeeID, state)
}

// restore undoes put.
func (c *Cache) restore(ctx context.Context, employeeID string, prev EntryState, existed bool) {
	c.mu.Lock()
	if existed {
		c.entries[employeeID] = prev
	} else {
		delete(c.entries, employeeID)
	}
	snapshot := maps.Clone(c.entries)
	c.mu.Unlock()

	if err := c.store.Save(ctx, snapshot); err != nil {
		c.logger.Printf("failed to persist rollback for %s: %v", employeeID, err)
	}
}

// newestPerEmployee picks, per employee, the event with the latest receipt
// time, regardless of its position in the page.
func newestPerEmployee(logs []*models.AttendanceEvent) map[string]*models.AttendanceEvent {
	newest := make(map[string]*models.AttendanceEvent)
	for _, event := range logs {
		if current, ok := newest[event.EmployeeID]; ok && !event.CreatedAt.After(current.CreatedAt) {
			continue
		}
		newest[event.EmployeeID] = event
	}
	return newest
}
