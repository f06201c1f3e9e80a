package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/gigboard/internal/client"
	"github.com/noah-isme/gigboard/internal/codec"
	"github.com/noah-isme/gigboard/internal/models"
	"github.com/noah-isme/gigboard/internal/validation"
)

// FormState is the lifecycle stage of an event form.
type FormState int

const (
	FormLoading FormState = iota
	FormEditing
	FormSubmitting
	FormSaved
)

func (s FormState) String() string {
	switch s {
	case FormLoading:
		return "loading"
	case FormEditing:
		return "editing"
	case FormSubmitting:
		return "submitting"
	case FormSaved:
		return "saved"
	}
	return "unknown"
}

// MarshalText renders the state name in JSON.
func (s FormState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LoadResult is the outcome of loading an existing event into the form.
type LoadResult int

const (
	LoadLoaded LoadResult = iota
	LoadNotFound
	LoadUnauthorized
	LoadFailed
	LoadDiscarded
)

// SubmitResult is the outcome of one submit attempt.
type SubmitResult int

const (
	SubmitSaved SubmitResult = iota
	SubmitInvalid
	SubmitUnauthorized
	SubmitFailed
	SubmitDiscarded
)

func (r SubmitResult) String() string {
	switch r {
	case SubmitSaved:
		return "saved"
	case SubmitInvalid:
		return "invalid"
	case SubmitUnauthorized:
		return "unauthorized"
	case SubmitFailed:
		return "failed"
	case SubmitDiscarded:
		return "discarded"
	}
	return "unknown"
}

// Form messages.
const (
	MsgLoadFailed    = "Error loading event data."
	MsgEventCreated  = "Event created."
	MsgEventUpdated  = "Event updated."
	MsgSaveFailedFmt = "Error saving event: "
)

var (
	// ErrSubmitInFlight rejects a submit while another one is running.
	ErrSubmitInFlight = errors.New("event form: submit already in flight")
	// ErrFormNotEditable rejects edits and submits outside the editing state.
	ErrFormNotEditable = errors.New("event form: not editable")
)

// Notice is a banner message shown above the form.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// FormSnapshot is a copy of the form's observable state.
type FormSnapshot struct {
	Mode      string            `json:"mode"`
	ID        models.EventID    `json:"id,omitempty"`
	State     FormState         `json:"state"`
	Draft     models.EventDraft `json:"draft"`
	Errors    validation.Errors `json:"errors,omitempty"`
	Notice    *Notice           `json:"notice,omitempty"`
	LoadError string            `json:"loadError,omitempty"`
	Saved     *models.Event     `json:"saved,omitempty"`
}

type eventStore interface {
	Get(ctx context.Context, id models.EventID) (models.Event, bool, error)
	Create(ctx context.Context, in models.EventInput) (models.Event, error)
	Update(ctx context.Context, id models.EventID, in models.EventInput) (models.Event, error)
}

type formMetrics interface {
	ObserveFormSubmit(mode, result string)
}

// EventFormService builds event forms sharing one codec and validator.
type EventFormService struct {
	codec     *codec.Codec
	validator *validation.EventValidator
	metrics   formMetrics
	logger    *zap.Logger
}

// NewEventFormService constructs an EventFormService. metrics may be nil.
func NewEventFormService(c *codec.Codec, v *validation.EventValidator, metrics formMetrics, logger *zap.Logger) *EventFormService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventFormService{codec: c, validator: v, metrics: metrics, logger: logger}
}

// NewForm starts a form session. An empty id opens a create form in the
// editing state; otherwise the form waits in the loading state for Load.
func (s *EventFormService) NewForm(store eventStore, id models.EventID) *EventForm {
	f := &EventForm{
		svc:    s,
		store:  store,
		id:     id,
		state:  FormLoading,
		errors: validation.Errors{},
	}
	if id == "" {
		f.state = FormEditing
	}
	return f
}

// EventForm drives one create or edit session. At most one submit is in
// flight; the lock is not held during network calls.
type EventForm struct {
	svc   *EventFormService
	store eventStore
	id    models.EventID

	mu        sync.Mutex
	state     FormState
	draft     models.EventDraft
	errors    validation.Errors
	notice    *Notice
	loadError string
	saved     *models.Event
	unmounted bool
}

func (f *EventForm) mode() string {
	if f.id == "" {
		return "create"
	}
	return "edit"
}

// Load fetches the event being edited and fills the draft. Create forms
// return LoadLoaded immediately. A LoadFailed result comes with the error,
// sets the load error message and leaves the form in the loading state.
func (f *EventForm) Load(ctx context.Context) (LoadResult, error) {
	f.mu.Lock()
	if f.id == "" {
		f.mu.Unlock()
		return LoadLoaded, nil
	}
	if f.unmounted {
		f.mu.Unlock()
		return LoadDiscarded, nil
	}
	f.mu.Unlock()

	event, found, err := f.store.Get(ctx, f.id)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unmounted {
		return LoadDiscarded, nil
	}

	switch {
	case errors.Is(err, client.ErrUnauthenticated):
		return LoadUnauthorized, err
	case err != nil:
		f.failLoad(err)
		return LoadFailed, err
	case !found:
		f.svc.logger.Info("event not found for edit", zap.String("event_id", f.id.String()))
		return LoadNotFound, nil
	}

	draft, err := f.svc.codec.DecodeEvent(event)
	if err != nil {
		f.failLoad(err)
		return LoadFailed, err
	}
	f.draft = draft
	f.errors = validation.Errors{}
	f.loadError = ""
	f.state = FormEditing
	return LoadLoaded, nil
}

func (f *EventForm) failLoad(err error) {
	f.svc.logger.Warn("failed to load event for edit", zap.String("event_id", f.id.String()), zap.Error(err))
	f.loadError = MsgLoadFailed
}

// SetField updates one draft field and clears that field's error only.
func (f *EventForm) SetField(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FormEditing {
		return ErrFormNotEditable
	}
	if err := f.draft.Set(field, value); err != nil {
		return err
	}
	delete(f.errors, field)
	return nil
}

// SetDraft overwrites every field present in values.
func (f *EventForm) SetDraft(values map[string]string) error {
	for field, value := range values {
		if err := f.SetField(field, value); err != nil {
			return err
		}
	}
	return nil
}

// Submit validates the draft and, when it is clean, makes exactly one
// create or update call. For SubmitUnauthorized and SubmitFailed the
// returned error is the client error; ErrSubmitInFlight and
// ErrFormNotEditable report misuse.
func (f *EventForm) Submit(ctx context.Context) (SubmitResult, error) {
	f.mu.Lock()
	if f.unmounted {
		f.mu.Unlock()
		return SubmitDiscarded, nil
	}
	if f.state == FormSubmitting {
		f.mu.Unlock()
		return SubmitDiscarded, ErrSubmitInFlight
	}
	if f.state != FormEditing {
		f.mu.Unlock()
		return SubmitDiscarded, ErrFormNotEditable
	}

	if errs := f.svc.validator.ValidateDraft(ctx, f.draft, validation.AdminForm); len(errs) > 0 {
		f.errors = errs
		f.mu.Unlock()
		return f.observe(SubmitInvalid), nil
	}
	in, err := f.svc.codec.EncodeDraft(f.draft)
	if err != nil {
		var fe *codec.FormatError
		field := models.FieldDate
		if errors.As(err, &fe) && fe.Field != "" {
			field = fe.Field
		}
		f.errors = validation.Errors{field: validation.MessageFor(field)}
		f.mu.Unlock()
		return f.observe(SubmitInvalid), nil
	}

	f.errors = validation.Errors{}
	f.notice = nil
	f.state = FormSubmitting
	f.mu.Unlock()

	var saved models.Event
	if f.id == "" {
		saved, err = f.store.Create(ctx, in)
	} else {
		saved, err = f.store.Update(ctx, f.id, in)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unmounted {
		return f.observe(SubmitDiscarded), nil
	}

	switch {
	case errors.Is(err, client.ErrUnauthenticated):
		f.state = FormEditing
		return f.observe(SubmitUnauthorized), err
	case err != nil:
		f.state = FormEditing
		f.notice = &Notice{Kind: "error", Message: MsgSaveFailedFmt + err.Error()}
		f.svc.logger.Warn("failed to save event", zap.String("mode", f.mode()), zap.Error(err))
		return f.observe(SubmitFailed), err
	}

	f.state = FormSaved
	f.saved = &saved
	if f.id == "" {
		f.notice = &Notice{Kind: "success", Message: MsgEventCreated}
		f.draft = models.EventDraft{}
	} else {
		f.notice = &Notice{Kind: "success", Message: MsgEventUpdated}
	}
	return f.observe(SubmitSaved), nil
}

func (f *EventForm) observe(result SubmitResult) SubmitResult {
	if f.svc.metrics != nil {
		f.svc.metrics.ObserveFormSubmit(f.mode(), result.String())
	}
	return result
}

// Unmount detaches the form. Results of calls still in flight are
// discarded without touching the form state.
func (f *EventForm) Unmount() {
	f.mu.Lock()
	f.unmounted = true
	f.mu.Unlock()
}

// Snapshot returns a copy of the form state.
func (f *EventForm) Snapshot() FormSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := FormSnapshot{
		Mode:      f.mode(),
		ID:        f.id,
		State:     f.state,
		Draft:     f.draft,
		LoadError: f.loadError,
	}
	if len(f.errors) > 0 {
		snap.Errors = make(validation.Errors, len(f.errors))
		for k, v := range f.errors {
			snap.Errors[k] = v
		}
	}
	if f.notice != nil {
		n := *f.notice
		snap.Notice = &n
	}
	if f.saved != nil {
		e := *f.saved
		snap.Saved = &e
	}
	return snap
}
