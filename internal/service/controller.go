package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/balajivenky06/dandi/internal/clipboard"
	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/metrics"
	"github.com/balajivenky06/dandi/internal/secret"
	"github.com/balajivenky06/dandi/internal/storage"
	"github.com/balajivenky06/dandi/internal/validation"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

// Toast and banner texts shown by the dashboard.
const (
	MsgCreated  = "API Key created"
	MsgUpdated  = "API Key updated"
	MsgUndone   = "Edit undone"
	MsgDeleted  = "API Key deleted"
	MsgCopied   = "Copied API Key to clipboard"
	MsgLoadFail = "Failed to load API keys. Please try again later."

	msgCreateFail = "Failed to create API key. Please try again later."
	msgUpdateFail = "Failed to update API key. Please try again later."
	msgUndoFail   = "Failed to undo edit. Please try again later."
	msgDeleteFail = "Failed to delete API key. Please try again later."
	msgCopyFail   = "Failed to copy to clipboard. Please try selecting and copying manually."
)

// secretAttempts bounds secret regeneration when an insert hits an existing secret.
const secretAttempts = 3

// Limits holds the dashboard ceilings and timings.
type Limits struct {
	MaxKeys           int
	UndoWindow        time.Duration
	NotificationTTL   time.Duration
	ClipboardErrorTTL time.Duration
	LoadRetries       int
	LoadBackoff       time.Duration
}

// DefaultLimits returns the standard dashboard limits.
func DefaultLimits() Limits {
	return Limits{
		MaxKeys:           1000,
		UndoWindow:        5 * time.Second,
		NotificationTTL:   2 * time.Second,
		ClipboardErrorTTL: 3 * time.Second,
		LoadRetries:       3,
		LoadBackoff:       time.Second,
	}
}

// Option configures a Controller.
type Option func(*Controller)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithClipboard(clip clipboard.Clipboard) Option {
	return func(c *Controller) { c.clip = clip }
}

// WithGenerator replaces the secret generator.
func WithGenerator(gen func() (string, error)) Option {
	return func(c *Controller) { c.generate = gen }
}

func WithLimits(limits Limits) Option {
	return func(c *Controller) { c.limits = limits }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.log = logger }
}

// Controller owns the in-memory key list and drives the key lifecycle
// against the store. It is safe for concurrent use; at most one mutation is
// in flight at a time and competing mutations fail with domain.ErrBusy.
type Controller struct {
	store    storage.Storage
	clock    clockwork.Clock
	clip     clipboard.Clipboard
	generate func() (string, error)
	limits   Limits
	log      zerolog.Logger

	mu         sync.Mutex
	state      State
	closed     bool
	loading    bool
	mutating   bool
	loadGen    uint64
	loadCancel context.CancelFunc

	notifyTask *task
	undoTask   *task
	errorTask  *task
}

// NewController creates a controller over store. Call Load to populate it.
func NewController(store storage.Storage, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		clock:    clockwork.NewRealClock(),
		clip:     clipboard.NewSystem(nil),
		generate: secret.Generate,
		limits:   DefaultLimits(),
		log:      log.Logger,
		state: State{
			Keys:    []*domain.KeyRecord{},
			Visible: map[string]bool{},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "controller").Logger()
	c.notifyTask = newTask(&c.mu, c.clock)
	c.undoTask = newTask(&c.mu, c.clock)
	c.errorTask = newTask(&c.mu, c.clock)
	return c
}

// ============================================
// Load
// ============================================

// Load replaces the key list with the store's. Failed fetches are retried
// LoadRetries times with a linearly increasing delay. A newer Load or Close
// supersedes this one and its result is discarded.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClosed
	}
	if c.mutating {
		c.mu.Unlock()
		return domain.ErrBusy
	}
	if c.loadCancel != nil {
		c.loadCancel()
	}
	c.loadGen++
	gen := c.loadGen
	ctx, cancel := context.WithCancel(ctx)
	c.loadCancel = cancel
	c.loading = true
	c.mu.Unlock()
	defer cancel()

	keys, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrClosed
	}
	if gen != c.loadGen {
		return fmt.Errorf("load superseded: %w", context.Canceled)
	}
	c.loading = false
	c.loadCancel = nil

	if err != nil {
		c.log.Error().Err(err).Msg("Failed to load API keys")
		c.setBannerLocked(MsgLoadFail, domain.ErrLoadFailed)
		return fmt.Errorf("%w: %w", domain.ErrLoadFailed, err)
	}

	c.state.Keys = keys
	c.pruneLocked()
	c.clearBannerLocked()
	return nil
}

func (c *Controller) fetch(ctx context.Context) ([]*domain.KeyRecord, error) {
	var attempt int64
	var backoff retry.Backoff = retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * c.limits.LoadBackoff, false
	})
	backoff = retry.WithMaxRetries(uint64(c.limits.LoadRetries), backoff)

	var keys []*domain.KeyRecord
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		keys, err = c.store.ListKeys(ctx)
		if err != nil {
			c.log.Warn().Err(err).Msg("Listing API keys failed")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []*domain.KeyRecord{}
	}
	return keys, nil
}

// pruneLocked drops per-key UI state for keys that are no longer listed.
func (c *Controller) pruneLocked() {
	for id := range c.state.Visible {
		if c.indexLocked(id) < 0 {
			delete(c.state.Visible, id)
		}
	}
	if c.state.EditingID != "" && c.indexLocked(c.state.EditingID) < 0 {
		c.state.EditingID = ""
		c.state.EditBuffer = ""
	}
	if c.state.CopiedID != "" && c.indexLocked(c.state.CopiedID) < 0 {
		c.state.CopiedID = ""
	}
}

// ============================================
// Create
// ============================================

// Create generates a secret and stores a new key. Invalid input, a full list
// and a busy controller are rejected without contacting the store.
func (c *Controller) Create(ctx context.Context, name, keyType string) (*domain.KeyRecord, error) {
	name, err := validation.ValidateKeyName(name)
	if err != nil {
		return nil, err
	}
	kt, err := validation.ValidateKeyType(keyType)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if err := c.beginMutationLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if len(c.state.Keys) >= c.limits.MaxKeys {
		c.mutating = false
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: maximum of %d API keys", domain.ErrLimitReached, c.limits.MaxKeys)
	}
	c.mu.Unlock()

	rec, err := c.insert(ctx, name, kt)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mutating = false
	if c.closed {
		return nil, domain.ErrClosed
	}
	if err != nil {
		c.log.Error().Err(err).Str("name", name).Msg("Failed to create API key")
		c.setBannerLocked(msgCreateFail, domain.ErrCreateFailed)
		return nil, fmt.Errorf("%w: %w", domain.ErrCreateFailed, err)
	}

	c.state.Keys = append([]*domain.KeyRecord{rec}, c.state.Keys...)
	c.clearBannerLocked()
	c.notifyLocked(MsgCreated, NotificationSuccess)
	metrics.KeysCreated.Inc()
	c.log.Info().Str("id", rec.ID).Str("type", string(rec.Type)).Msg("API key created")
	return rec.Clone(), nil
}

// insert stores a key, regenerating the secret when it collides with an
// existing one. Other failures are returned as is.
func (c *Controller) insert(ctx context.Context, name string, kt domain.KeyType) (*domain.KeyRecord, error) {
	var lastErr error
	for i := 0; i < secretAttempts; i++ {
		s, err := c.generate()
		if err != nil {
			return nil, fmt.Errorf("generating secret: %w", err)
		}
		rec, err := c.store.InsertKey(ctx, &domain.NewKey{Name: name, Type: kt, Secret: s})
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, domain.ErrDuplicateSecret) {
			return nil, err
		}
		c.log.Warn().Int("attempt", i+1).Msg("Generated secret already exists, regenerating")
		lastErr = err
	}
	return nil, lastErr
}

// ============================================
// Rename
// ============================================

// StartEdit puts id into editing mode, seeding the buffer with its name.
// Any other key being edited leaves editing mode.
func (c *Controller) StartEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrClosed
	}
	i := c.indexLocked(id)
	if i < 0 {
		return domain.ErrNotFound
	}
	c.state.EditingID = id
	c.state.EditBuffer = c.state.Keys[i].Name
	return nil
}

// SetEditBuffer updates the pending name of the key being edited.
func (c *Controller) SetEditBuffer(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.EditingID != "" {
		c.state.EditBuffer = name
	}
}

func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.EditingID = ""
	c.state.EditBuffer = ""
}

// SaveEdit renames id. On success the record is replaced with the stored one
// and the previous name can be restored with UndoEdit until the undo window
// closes. On failure the key stays in editing mode.
func (c *Controller) SaveEdit(ctx context.Context, id, newName string) (*domain.KeyRecord, error) {
	name, err := validation.ValidateKeyName(newName)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if err := c.beginMutationLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	i := c.indexLocked(id)
	if i < 0 {
		c.mutating = false
		c.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	previous := c.state.Keys[i].Name
	c.mu.Unlock()

	rec, err := c.store.UpdateKey(ctx, id, domain.KeyUpdate{Name: &name})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mutating = false
	if c.closed {
		return nil, domain.ErrClosed
	}
	if err != nil {
		c.log.Error().Err(err).Str("id", id).Msg("Failed to update API key")
		c.setBannerLocked(msgUpdateFail, domain.ErrUpdateFailed)
		return nil, fmt.Errorf("%w: %w", domain.ErrUpdateFailed, err)
	}

	c.replaceLocked(rec)
	if c.state.EditingID == id {
		c.state.EditingID = ""
		c.state.EditBuffer = ""
	}
	c.armUndoLocked(id, previous)
	c.clearBannerLocked()
	c.notifyLocked(MsgUpdated, NotificationSuccess)
	return rec.Clone(), nil
}

func (c *Controller) armUndoLocked(id, previous string) {
	c.state.Undo = &UndoableEdit{
		RecordID:     id,
		PreviousName: previous,
		Expiry:       c.clock.Now().Add(c.limits.UndoWindow),
	}
	c.undoTask.schedule(c.limits.UndoWindow, func() {
		c.state.Undo = nil
	})
}

func (c *Controller) clearUndoLocked() {
	c.undoTask.cancel()
	c.state.Undo = nil
}

// UndoEdit restores the name replaced by the last rename. It reports false
// without contacting the store when nothing is armed or the window has
// closed. The undo slot is consumed even if the store call fails.
func (c *Controller) UndoEdit(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, domain.ErrClosed
	}
	u := c.state.Undo
	if u == nil || !c.clock.Now().Before(u.Expiry) {
		c.clearUndoLocked()
		c.mu.Unlock()
		return false, nil
	}
	if err := c.beginMutationLocked(); err != nil {
		c.mu.Unlock()
		return false, err
	}
	c.clearUndoLocked()
	c.mu.Unlock()

	name := u.PreviousName
	rec, err := c.store.UpdateKey(ctx, u.RecordID, domain.KeyUpdate{Name: &name})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mutating = false
	if c.closed {
		return false, domain.ErrClosed
	}
	if err != nil {
		c.log.Error().Err(err).Str("id", u.RecordID).Msg("Failed to undo edit")
		c.setBannerLocked(msgUndoFail, domain.ErrUpdateFailed)
		return false, fmt.Errorf("%w: %w", domain.ErrUpdateFailed, err)
	}

	c.replaceLocked(rec)
	c.clearBannerLocked()
	c.notifyLocked(MsgUndone, NotificationSuccess)
	return true, nil
}

// ============================================
// Delete
// ============================================

// RequestDelete marks id for deletion. Nothing is removed until ConfirmDelete.
func (c *Controller) RequestDelete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrClosed
	}
	if id == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	c.state.PendingDeleteID = id
	return nil
}

func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PendingDeleteID = ""
}

// ConfirmDelete removes the key marked by RequestDelete. With no marker it
// does nothing. A key the store no longer has is dropped locally and
// reported as domain.ErrNotFound once; if it was already gone locally too,
// the call succeeds.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClosed
	}
	id := c.state.PendingDeleteID
	if id == "" {
		c.mu.Unlock()
		return nil
	}
	if err := c.beginMutationLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	err := c.store.DeleteKey(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mutating = false
	if c.closed {
		return domain.ErrClosed
	}

	switch {
	case err == nil:
		c.state.PendingDeleteID = ""
		c.removeLocked(id)
		c.clearBannerLocked()
		c.notifyLocked(MsgDeleted, NotificationDelete)
		metrics.KeysDeleted.Inc()
		c.log.Info().Str("id", id).Msg("API key deleted")
		return nil
	case errors.Is(err, domain.ErrNotFound):
		c.state.PendingDeleteID = ""
		if c.removeLocked(id) {
			return fmt.Errorf("delete key %s: %w", id, domain.ErrNotFound)
		}
		return nil
	default:
		c.log.Error().Err(err).Str("id", id).Msg("Failed to delete API key")
		c.setBannerLocked(msgDeleteFail, domain.ErrDeleteFailed)
		return fmt.Errorf("%w: %w", domain.ErrDeleteFailed, err)
	}
}

// Delete requests and confirms deletion of id in one step.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.RequestDelete(id); err != nil {
		return err
	}
	return c.ConfirmDelete(ctx)
}

// ============================================
// Visibility and clipboard
// ============================================

// ToggleVisibility flips whether id's secret is shown unmasked and returns
// the new value.
func (c *Controller) ToggleVisibility(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Visible[id] {
		delete(c.state.Visible, id)
		return false
	}
	c.state.Visible[id] = true
	return true
}

// CopySecret writes id's full secret to the controller's clipboard.
func (c *Controller) CopySecret(ctx context.Context, id string) error {
	return c.CopySecretTo(ctx, id, c.clip)
}

// CopySecretTo writes id's full secret to clip. A failure shows a banner
// that clears itself after ClipboardErrorTTL.
func (c *Controller) CopySecretTo(ctx context.Context, id string, clip clipboard.Clipboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClosed
	}
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	s := c.state.Keys[i].Secret
	c.mu.Unlock()

	err := clip.WriteAll(s)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrClosed
	}
	if err != nil {
		c.log.Error().Err(err).Str("id", id).Msg("Failed to copy API key")
		c.setBannerLocked(msgCopyFail, domain.ErrClipboardFailed)
		c.errorTask.schedule(c.limits.ClipboardErrorTTL, func() {
			if c.state.Error != nil && errors.Is(c.state.Error.Err, domain.ErrClipboardFailed) {
				c.state.Error = nil
			}
		})
		return fmt.Errorf("%w: %w", domain.ErrClipboardFailed, err)
	}

	c.state.CopiedID = id
	c.notifyLocked(MsgCopied, NotificationSuccess)
	return nil
}

// ============================================
// Notifications and state
// ============================================

func (c *Controller) notifyLocked(message string, kind NotificationKind) {
	c.state.Notification = &Notification{Message: message, Kind: kind}
	c.notifyTask.schedule(c.limits.NotificationTTL, func() {
		c.state.Notification = nil
	})
}

func (c *Controller) DismissNotification() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyTask.cancel()
	c.state.Notification = nil
}

func (c *Controller) setBannerLocked(message string, kind error) {
	c.errorTask.cancel()
	c.state.Error = &Banner{Message: message, Err: kind}
}

func (c *Controller) clearBannerLocked() {
	c.errorTask.cancel()
	c.state.Error = nil
}

func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearBannerLocked()
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state.clone()
	s.Loading = c.loading || c.mutating
	return s
}

// Close stops all timers and cancels any in-flight load. Later operations
// fail with domain.ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.loadCancel != nil {
		c.loadCancel()
		c.loadCancel = nil
	}
	c.loading = false
	c.notifyTask.cancel()
	c.undoTask.cancel()
	c.errorTask.cancel()
}

// beginMutationLocked claims the single mutation slot.
func (c *Controller) beginMutationLocked() error {
	if c.closed {
		return domain.ErrClosed
	}
	if c.loading || c.mutating {
		return domain.ErrBusy
	}
	c.mutating = true
	return nil
}

func (c *Controller) indexLocked(id string) int {
	for i, k := range c.state.Keys {
		if k.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) replaceLocked(rec *domain.KeyRecord) {
	if i := c.indexLocked(rec.ID); i >= 0 {
		c.state.Keys[i] = rec.Clone()
	}
}

// removeLocked drops id and its UI state. It reports whether id was listed.
func (c *Controller) removeLocked(id string) bool {
	delete(c.state.Visible, id)
	if c.state.EditingID == id {
		c.state.EditingID = ""
		c.state.EditBuffer = ""
	}
	if c.state.CopiedID == id {
		c.state.CopiedID = ""
	}
	if c.state.Undo != nil && c.state.Undo.RecordID == id {
		c.clearUndoLocked()
	}
	i := c.indexLocked(id)
	if i < 0 {
		return false
	}
	c.state.Keys = append(c.state.Keys[:i:i], c.state.Keys[i+1:]...)
	return true
}
