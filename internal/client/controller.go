package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prudhvinik1/parlourpunch/internal/models"
)

// Sender submits a punch over the live channel. A nil error only means the
// frame left this process; confirmation arrives later as a broadcast.
type Sender interface {
	SendPunch(ctx context.Context, submission models.PunchSubmission) error
}

type Controller struct {
	cache    *Cache
	sender   Sender
	notifier Notifier
	now      func() time.Time
}

func NewController(cache *Cache, sender Sender, notifier Notifier) *Controller {
	return &Controller{cache: cache, sender: sender, notifier: notifier, now: time.Now}
}

// TogglePunch flips the cached state of an employee, applies it immediately
// and submits the matching punch. When the submission fails synchronously the
// prior state is restored. It returns the state that was requested.
func (c *Controller) TogglePunch(ctx context.Context, employeeID, employeeName string) (bool, error) {
	current, _ := c.cache.Get(employeeID)
	next := !current.CurrentlyIn
	at := c.now().UTC()

	submission := models.NewPunchSubmission(employeeID, employeeName, next, at)

	prev, existed, err := c.cache.put(ctx, employeeID, EntryState{CurrentlyIn: next, LastUpdated: at})
	if err != nil {
		// The in-memory state is already applied; a local write failure alone
		// is not a reason to skip the submission.
		c.cache.logger.Printf("failed to persist optimistic state for %s: %v", employeeID, err)
	}

	if err := c.sender.SendPunch(ctx, submission); err != nil {
		c.cache.restore(ctx, employeeID, prev, existed)
		c.notifier.Notify(Notice{
			Kind:        NoticeFailure,
			Title:       submission.Action + " Failed",
			Description: "Failed to " + strings.ToLower(submission.Action),
		})
		return current.CurrentlyIn, fmt.Errorf("failed to submit punch for %s: %w", employeeID, err)
	}

	verb := "punched out"
	if next {
		verb = "punched in"
	}
	c.notifier.Notify(Notice{
		Kind:        NoticeSuccess,
		Title:       submission.Action + " Successful",
		Description: fmt.Sprintf("%s has %s", employeeName, verb),
	})
	return next, nil
}
