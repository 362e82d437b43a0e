package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nhle/task-notifier/internal/member"
	"github.com/nhle/task-notifier/internal/model"
	"github.com/nhle/task-notifier/internal/notify"
	"github.com/nhle/task-notifier/internal/prompt"
	"github.com/nhle/task-notifier/internal/source"
	"github.com/nhle/task-notifier/internal/source/notion"
	"github.com/nhle/task-notifier/internal/store"
)

var (
	// ErrMissingField marks a task or meeting without its date.
	ErrMissingField = errors.New("missing required field")

	// ErrAborted is returned when the operator exits an interactive run.
	ErrAborted = errors.New("aborted by operator")
)

// Clock supplies the current time for the overdue check.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Notifier renders and delivers one notification.
type Notifier interface {
	Render(msg notify.Message) (string, error)
	Notify(ctx context.Context, msg notify.Message) (string, error)
}

// Options control a reconciliation run.
type Options struct {
	Mode             string
	Interactive      bool
	ReportOverdue    bool
	DryRun           bool
	MemberDatabaseID string
	Properties       model.PropertyConfig
	Values           model.ValueConfig
	Location         *time.Location
}

// Deps are the collaborators of a Reconciler. Prompter is only consulted
// in interactive mode; Clock and Logger default to the real clock and
// slog.Default.
type Deps struct {
	Source   source.RecordSource
	Store    store.Store
	Notifier Notifier
	Prompter prompt.Prompter
	Clock    Clock
	Logger   *slog.Logger
}

// Result summarizes one run.
type Result struct {
	Mode      string
	Tasks     int
	Meetings  int
	Skipped   int
	Unchanged int
	Failed    int

	// Overdue lists records whose date has passed. They are reported
	// only and resurface on every run until the record changes.
	Overdue []model.Record
}

// Sent returns the number of notifications delivered.
func (r *Result) Sent() int {
	return r.Tasks + r.Meetings
}

// candidate is a record that passed every check and awaits delivery.
type candidate struct {
	record        model.Record
	discriminator string
	message       notify.Message
	preview       string
}

// Reconciler compares the remote task database against the persisted
// notification state and notifies about new or changed records.
type Reconciler struct {
	deps Deps
	opts Options
}

// NewReconciler creates a Reconciler.
func NewReconciler(deps Deps, opts Options) *Reconciler {
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if !opts.Interactive || deps.Prompter == nil {
		deps.Prompter = prompt.Auto{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Mode == "" {
		opts.Mode = model.ModeCheckbox
	}
	return &Reconciler{deps: deps, opts: opts}
}

// Run performs one reconciliation. The returned Result is never nil and
// reflects whatever happened before an error.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	res := &Result{Mode: r.opts.Mode}
	log := r.deps.Logger

	members, err := member.LoadMembers(ctx, r.deps.Source, r.opts.MemberDatabaseID)
	if err != nil {
		return res, err
	}

	records, err := r.deps.Source.Query(ctx, r.filter())
	if err != nil {
		return res, err
	}
	log.Debug("fetched records", "count", len(records), "mode", r.opts.Mode)

	prev, err := r.deps.Store.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("loading state: %w", err)
	}
	next := r.initialState(prev)

	var candidates []candidate
	for _, rec := range records {
		c, ok, err := r.plan(rec, prev, next, members, res)
		if err != nil {
			// Nothing is delivered while planning, so an abort here keeps
			// the persisted state as it is.
			if abortErr := r.itemFailed(ctx, rec, err, nil, res); abortErr != nil {
				return res, abortErr
			}
			continue
		}
		if ok {
			candidates = append(candidates, c)
		}
	}

	selected, err := r.confirm(ctx, candidates, res)
	if err != nil {
		if saveErr := r.save(ctx, next); saveErr != nil {
			log.Error("saving state after abort", "error", saveErr)
		}
		return res, err
	}

	for _, c := range selected {
		if err := ctx.Err(); err != nil {
			if saveErr := r.save(ctx, next); saveErr != nil {
				log.Error("saving state after cancellation", "error", saveErr)
			}
			return res, err
		}

		if err := r.deliver(ctx, c, next, res); err != nil {
			if abortErr := r.itemFailed(ctx, c.record, err, next, res); abortErr != nil {
				return res, abortErr
			}
			continue
		}
		if r.opts.Interactive {
			if err := r.save(ctx, next); err != nil {
				return res, err
			}
		}
	}

	if err := r.save(ctx, next); err != nil {
		return res, err
	}

	log.Info("run complete",
		"mode", r.opts.Mode,
		"tasks", res.Tasks,
		"meetings", res.Meetings,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"overdue", len(res.Overdue),
	)
	return res, nil
}

// filter returns the remote query predicate for the configured mode.
// Checkbox mode also fetches forced records, which are already marked
// notified when an operator asks for a resend.
func (r *Reconciler) filter() source.Filter {
	if r.opts.Mode == model.ModeStatus {
		return nil
	}
	return notion.PendingOrForced(
		r.opts.Properties.Status,
		r.opts.Values.InProgressStatus,
		r.opts.Properties.Notified,
		r.opts.Properties.Force,
	)
}

// initialState is the state a run starts writing into. Checkbox mode
// only ever adds entries; status mode rebuilds the snapshot from the
// fetched records.
func (r *Reconciler) initialState(prev store.State) store.State {
	if r.opts.Mode == model.ModeStatus {
		return store.State{}
	}
	return prev.Clone()
}

func (r *Reconciler) discriminator(rec model.Record) string {
	if r.opts.Mode == model.ModeStatus {
		return rec.StatusKey()
	}
	return rec.Title
}

func (r *Reconciler) inProgress(rec model.Record) bool {
	if id := r.opts.Values.InProgressStatusID; id != "" {
		return rec.StatusID == id
	}
	return rec.StatusName == r.opts.Values.InProgressStatus
}

func (r *Reconciler) eligible(rec model.Record) bool {
	if rec.Force {
		return true
	}
	if rec.Suppress {
		return false
	}
	if r.opts.Mode == model.ModeStatus {
		return r.inProgress(rec)
	}
	return true
}

// plan decides whether rec should be notified and prepares its message.
// Records that are not notified this run are carried into next so that
// status mode keeps tracking them.
func (r *Reconciler) plan(
	rec model.Record,
	prev store.State,
	next store.State,
	members member.Members,
	res *Result,
) (candidate, bool, error) {
	if rec.ID == "" || rec.Title == "" || !rec.Kind.Notifiable() {
		r.deps.Logger.Debug("skipping record", "record", rec.ID, "title", rec.Title, "kind", rec.Kind)
		res.Skipped++
		return candidate{}, false, nil
	}

	disc := r.discriminator(rec)
	last, known := prev[rec.ID]

	if !r.eligible(rec) {
		r.snapshot(next, rec.ID, disc)
		res.Unchanged++
		return candidate{}, false, nil
	}

	// Overdue records are reported whether or not they changed, and keep
	// their previous state so they resurface until the date moves.
	overdue, err := r.overdue(rec)
	if err != nil {
		return candidate{}, false, err
	}
	if overdue {
		if known {
			next[rec.ID] = last
		}
		res.Overdue = append(res.Overdue, rec)
		return candidate{}, false, nil
	}

	if known && last == disc && !rec.Force {
		r.snapshot(next, rec.ID, disc)
		res.Unchanged++
		return candidate{}, false, nil
	}

	// Until delivery succeeds the previous discriminator stands, so an
	// undelivered record is a candidate again next run.
	if known {
		next[rec.ID] = last
	}

	raw, ok := rec.When()
	if !ok {
		return candidate{}, false, fmt.Errorf("%w: %s has no date", ErrMissingField, rec.Kind)
	}

	assignees, err := people(members, rec.AssigneeIDs, rec.AssigneeNames)
	if err != nil {
		return candidate{}, false, fmt.Errorf("resolving assignees: %w", err)
	}
	checkers, err := people(members, rec.CheckerIDs, rec.CheckerNames)
	if err != nil {
		return candidate{}, false, fmt.Errorf("resolving checkers: %w", err)
	}

	msg := notify.Message{
		Kind:      rec.Kind,
		Title:     rec.Title,
		RecordID:  rec.ID,
		URL:       rec.URL,
		Assignees: assignees,
		Checkers:  checkers,
		When:      raw,
	}
	preview, err := r.deps.Notifier.Render(msg)
	if err != nil {
		return candidate{}, false, err
	}

	return candidate{record: rec, discriminator: disc, message: msg, preview: preview}, true, nil
}

// snapshot records a record that is not notified this run. Status mode
// snapshots what it saw. Checkbox mode only records deliveries, so a
// suppressed record is still new once released.
func (r *Reconciler) snapshot(next store.State, id, disc string) {
	if r.opts.Mode == model.ModeStatus {
		next[id] = disc
	}
}

// overdue reports whether rec's date has passed. Records without a
// date are left to the missing field check.
func (r *Reconciler) overdue(rec model.Record) (bool, error) {
	if !r.opts.ReportOverdue {
		return false, nil
	}
	raw, ok := rec.When()
	if !ok {
		return false, nil
	}
	when, _, err := notify.ParseWhen(raw, r.opts.Location)
	if err != nil {
		return false, err
	}
	return !when.After(r.deps.Clock.Now()), nil
}

// people returns display names from relation ids when present, and the
// multi_select names otherwise.
func people(members member.Members, ids, names []string) ([]string, error) {
	if len(ids) == 0 {
		return names, nil
	}
	return members.Resolve(ids)
}

// confirm asks the operator about each candidate and then about the
// whole batch. In automatic mode the prompter answers yes throughout.
func (r *Reconciler) confirm(ctx context.Context, candidates []candidate, res *Result) ([]candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var selected []candidate
	for _, c := range candidates {
		answer, err := r.deps.Prompter.Ask(ctx, c.preview)
		if err != nil {
			return nil, fmt.Errorf("confirming %s: %w", c.record.Title, err)
		}
		switch answer {
		case prompt.Exit:
			return nil, ErrAborted
		case prompt.No:
			res.Skipped++
			continue
		}
		selected = append(selected, c)
	}
	if len(selected) == 0 {
		return nil, nil
	}

	answer, err := r.deps.Prompter.Ask(ctx, fmt.Sprintf("%d件の通知を送信します。", len(selected)))
	if err != nil {
		return nil, fmt.Errorf("confirming batch: %w", err)
	}
	switch answer {
	case prompt.Exit:
		return nil, ErrAborted
	case prompt.No:
		res.Skipped += len(selected)
		return nil, nil
	}
	return selected, nil
}

// deliver sends one notification and commits it locally and remotely.
func (r *Reconciler) deliver(ctx context.Context, c candidate, next store.State, res *Result) error {
	content, err := r.deps.Notifier.Notify(ctx, c.message)
	if err != nil {
		return err
	}

	switch c.record.Kind {
	case model.KindTask:
		res.Tasks++
	case model.KindMeeting:
		res.Meetings++
	}
	if r.opts.DryRun {
		return nil
	}

	next[c.record.ID] = c.discriminator

	err = r.deps.Store.RecordDelivery(ctx, model.Notification{
		RecordID: c.record.ID,
		Kind:     c.record.Kind,
		Message:  content,
		SentAt:   r.deps.Clock.Now(),
	})
	if err != nil {
		r.deps.Logger.Warn("recording delivery", "record", c.record.ID, "error", err)
	}

	return r.writeBack(ctx, c.record)
}

// writeBack marks a delivered record on the remote side: checkbox mode
// sets the notified flag, and a force flag is cleared in either mode.
func (r *Reconciler) writeBack(ctx context.Context, rec model.Record) error {
	props := r.opts.Properties
	if r.opts.Mode == model.ModeCheckbox {
		if err := r.deps.Source.PatchProperty(ctx, rec.ID, props.Notified, notion.CheckboxValue(true)); err != nil {
			return fmt.Errorf("marking notified: %w", err)
		}
	}
	if rec.Force && props.Force != "" {
		if err := r.deps.Source.PatchProperty(ctx, rec.ID, props.Force, notion.CheckboxValue(false)); err != nil {
			return fmt.Errorf("clearing force flag: %w", err)
		}
	}
	return nil
}

// itemFailed applies the per-record failure policy. Interactive runs log
// and continue; automatic runs persist next, when given, and abort.
func (r *Reconciler) itemFailed(ctx context.Context, rec model.Record, err error, next store.State, res *Result) error {
	res.Failed++
	r.deps.Logger.Error("record failed", "record", rec.ID, "title", rec.Title, "error", err)

	if r.opts.Interactive {
		return nil
	}
	if next != nil {
		if saveErr := r.save(ctx, next); saveErr != nil {
			r.deps.Logger.Error("saving state before abort", "error", saveErr)
		}
	}
	return fmt.Errorf("processing %q (%s): %w", rec.Title, rec.ID, err)
}

// save persists state even when ctx is already cancelled, so deliveries
// made before an interrupt are not repeated.
func (r *Reconciler) save(ctx context.Context, state store.State) error {
	if r.opts.DryRun {
		return nil
	}
	if err := r.deps.Store.Save(context.WithoutCancel(ctx), state); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}
