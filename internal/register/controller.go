package register

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "progcal/internal/log"
	"progcal/internal/model"
)

// State is a registration dialog state.
type State string

const (
	StateIdle       State = "idle"
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

var (
	ErrNotOpen          = errors.New("registration: no dialog open")
	ErrInFlight         = errors.New("registration: submission already in flight")
	ErrInvalid          = errors.New("registration: form has invalid fields")
	ErrClosed           = errors.New("registration: dialog closed before the response arrived")
	ErrAlreadySubmitted = errors.New("registration: already submitted")
	ErrUnknownField     = errors.New("registration: unknown field")
)

// timeNow is a variable for testability.
var timeNow = time.Now

// Confirmation is retained after a successful submission so the caller can
// offer calendar exports.
type Confirmation struct {
	Program model.Program `json:"program"`
	Date    string        `json:"date"`
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	SessionID    string        `json:"sessionId,omitempty"`
	State        State         `json:"state"`
	ProgramID    string        `json:"programId,omitempty"`
	Date         string        `json:"date,omitempty"`
	Form         FormData      `json:"form"`
	Errors       FieldErrors   `json:"errors,omitempty"`
	Message      string        `json:"message,omitempty"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
}

// Controller drives one registration dialog:
//
//	Idle -> Editing -> Validating -> Submitting -> Success
//	                                            -> Failed -> Editing
//
// Validation failures go straight back to Editing without touching the
// network. At most one submission is in flight per dialog.
type Controller struct {
	submitter Submitter

	mu           sync.Mutex
	state        State
	session      string
	program      model.Program
	date         string
	form         FormData
	errs         FieldErrors
	message      string
	confirmation *Confirmation
	touched      time.Time
}

func NewController(s Submitter) *Controller {
	return &Controller{submitter: s, state: StateIdle, touched: timeNow()}
}

// Open starts a dialog for the program occurring on date, discarding any
// previous dialog. It returns the new session id.
func (c *Controller) Open(p model.Program, date string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	c.state = StateEditing
	c.session = uuid.NewString()
	c.program = p
	c.date = date
	c.touched = timeNow()
	return c.session
}

// Close discards the dialog. A submission still in flight is not aborted,
// but its response will be ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.touched = timeNow()
}

func (c *Controller) reset() {
	c.state = StateIdle
	c.session = ""
	c.program = model.Program{}
	c.date = ""
	c.form = FormData{}
	c.errs = nil
	c.message = ""
	c.confirmation = nil
}

// SetField updates one text field and clears its recorded error.
func (c *Controller) SetField(f Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return err
	}
	if f == FieldConsent {
		c.setConsent(value == "true" || value == "on" || value == "1")
		return nil
	}
	ptr := c.form.text(f)
	if ptr == nil {
		return ErrUnknownField
	}
	*ptr = value
	c.clear(f)
	return nil
}

// SetConsent records the consent checkbox.
func (c *Controller) SetConsent(v bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return err
	}
	c.setConsent(v)
	return nil
}

func (c *Controller) setConsent(v bool) {
	c.form.Consent = v
	c.clear(FieldConsent)
}

func (c *Controller) editable() error {
	switch c.state {
	case StateEditing, StateFailed:
		return nil
	case StateSubmitting:
		return ErrInFlight
	case StateSuccess:
		return ErrAlreadySubmitted
	default:
		return ErrNotOpen
	}
}

func (c *Controller) clear(f Field) {
	delete(c.errs, f)
	if c.state == StateFailed {
		c.state = StateEditing
		c.message = ""
	}
	c.touched = timeNow()
}

// Submit validates the form and, if valid, sends it exactly once. It
// returns ErrInvalid (see Snapshot().Errors) without calling the network,
// ErrInFlight while another submission is pending, ErrClosed if the dialog
// was closed meanwhile, or the Submitter's error.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateEditing, StateFailed:
	case StateSubmitting:
		c.mu.Unlock()
		return ErrInFlight
	case StateSuccess:
		c.mu.Unlock()
		return ErrAlreadySubmitted
	default:
		c.mu.Unlock()
		return ErrNotOpen
	}

	c.state = StateValidating
	c.message = ""
	if errs := Validate(c.form); len(errs) > 0 {
		c.errs = errs
		c.state = StateEditing
		c.touched = timeNow()
		c.mu.Unlock()
		return ErrInvalid
	}
	c.errs = nil

	payload := BuildPayload(c.form, c.program, c.date)
	session := c.session
	c.state = StateSubmitting
	c.touched = timeNow()
	c.mu.Unlock()

	err := c.submitter.Submit(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != session || c.state != StateSubmitting {
		appLog.Info("registration response ignored; dialog closed", "session", session, "program_id", payload.ProgramID)
		return ErrClosed
	}
	c.touched = timeNow()

	if err != nil {
		c.state = StateFailed
		c.message = failureMessage(err)
		appLog.Error("registration submission failed", err, "session", session, "program_id", payload.ProgramID, "date", payload.EventDate)
		return err
	}

	c.state = StateSuccess
	c.confirmation = &Confirmation{Program: c.program, Date: c.date}
	c.form = FormData{}
	appLog.Info("registration submitted", "session", session, "program_id", payload.ProgramID, "date", payload.EventDate)
	return nil
}

func failureMessage(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NetworkFailureMessage
	}
	return GenericFailureMessage
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		SessionID: c.session,
		State:     c.state,
		ProgramID: c.program.ID,
		Date:      c.date,
		Form:      c.form,
		Message:   c.message,
	}
	if len(c.errs) > 0 {
		s.Errors = make(FieldErrors, len(c.errs))
		for k, v := range c.errs {
			s.Errors[k] = v
		}
	}
	if c.confirmation != nil {
		conf := *c.confirmation
		s.Confirmation = &conf
	}
	return s
}

// idleSince reports the last activity time and whether a request is
// pending.
func (c *Controller) idleSince() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched, c.state == StateSubmitting
}
