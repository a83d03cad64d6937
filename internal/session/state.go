// Package session holds the try-on state machine.
//
// Apply is a pure transition function over State. Machine owns one State and
// executes the commands Apply returns against the camera and the generation client.
package session

import (
	"strings"

	"github.com/lehigh-university-libraries/styleshift/internal/catalog"
	"github.com/lehigh-university-libraries/styleshift/internal/generation"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
)

// GenericFailure is shown when a generation fails without a usable reason
const GenericFailure = "Failed to generate image. Please try again with a different prompt or image."

// Ticket identifies one dispatched generation request
type Ticket uint64

// State is the full session value. The zero value is not valid, use NewState.
type State struct {
	View           models.View
	Source         models.Image
	Description    string
	SelectedEntry  string
	Result         models.Image
	RequestState   models.RequestState
	ErrorMessage   string
	AllowSensitive bool
	LastOutcome    models.Outcome

	// RequestSeq only grows so tickets are never reused within a session.
	RequestSeq    uint64
	PendingTicket Ticket
}

// NewState returns the initial Upload state
func NewState() State {
	return State{
		View:         models.ViewUpload,
		RequestState: models.RequestIdle,
		LastOutcome:  models.OutcomeNone,
	}
}

// Pending reports whether a generation request is in flight
func (s State) Pending() bool {
	return s.RequestState == models.RequestPending
}

// CanGenerate reports whether RequestGeneration would dispatch
func (s State) CanGenerate() bool {
	return s.View == models.ViewEdit &&
		!s.Source.IsZero() &&
		strings.TrimSpace(s.Description) != "" &&
		!s.Pending()
}

// Event is an input to Apply
type Event interface{ event() }

type (
	OpenCamera         struct{}
	FileAccepted       struct{ Image models.Image }
	FileRejected       struct{ Message string }
	FrameCaptured      struct{ Image models.Image }
	CameraFailed       struct{ Message string }
	CameraStarted      struct{}
	CameraRetry        struct{}
	CameraCancelled    struct{}
	ClearImage         struct{}
	SelectCatalogEntry struct{ Entry catalog.Entry }
	EditDescription    struct{ Text string }
	ClearSelection     struct{}
	SetSensitive       struct{ Allow bool }
	RequestGeneration  struct{}
	TryAnother         struct{}
	Reset              struct{}

	GenerationSucceeded struct {
		Ticket Ticket
		Image  models.Image
	}
	GenerationFailed struct {
		Ticket Ticket
		Reason string
	}
)

func (OpenCamera) event()          {}
func (FileAccepted) event()        {}
func (FileRejected) event()        {}
func (FrameCaptured) event()       {}
func (CameraFailed) event()        {}
func (CameraStarted) event()       {}
func (CameraRetry) event()         {}
func (CameraCancelled) event()     {}
func (ClearImage) event()          {}
func (SelectCatalogEntry) event()  {}
func (EditDescription) event()     {}
func (ClearSelection) event()      {}
func (SetSensitive) event()        {}
func (RequestGeneration) event()   {}
func (GenerationSucceeded) event() {}
func (GenerationFailed) event()    {}
func (TryAnother) event()          {}
func (Reset) event()               {}

// Command is a side effect requested by Apply. A nil Command means none.
type Command interface{ command() }

type (
	StartCapture   struct{}
	RestartCapture struct{}
	ReleaseCapture struct{}

	DispatchGeneration struct {
		Ticket  Ticket
		Request generation.Request
	}
)

func (StartCapture) command()       {}
func (RestartCapture) command()     {}
func (ReleaseCapture) command()     {}
func (DispatchGeneration) command() {}

// Apply returns the state after ev and the command to execute, if any.
// Events that do not fit the current view leave the state unchanged.
func Apply(s State, ev Event) (State, Command) {
	switch ev := ev.(type) {
	case OpenCamera:
		if s.View != models.ViewUpload {
			return s, nil
		}
		s.View = models.ViewCamera
		s.ErrorMessage = ""
		return s, StartCapture{}

	case FileAccepted:
		if s.View != models.ViewUpload || ev.Image.IsZero() {
			return s, nil
		}
		s.View = models.ViewEdit
		s.Source = ev.Image
		s.ErrorMessage = ""
		return s, nil

	case FileRejected:
		if s.View != models.ViewUpload {
			return s, nil
		}
		s.ErrorMessage = ev.Message
		return s, nil

	case FrameCaptured:
		if s.View != models.ViewCamera || ev.Image.IsZero() {
			return s, nil
		}
		s.View = models.ViewEdit
		s.Source = ev.Image
		s.ErrorMessage = ""
		return s, ReleaseCapture{}

	case CameraFailed:
		if s.View != models.ViewCamera {
			return s, nil
		}
		s.ErrorMessage = ev.Message
		return s, nil

	case CameraStarted:
		if s.View != models.ViewCamera {
			return s, nil
		}
		s.ErrorMessage = ""
		return s, nil

	case CameraRetry:
		if s.View != models.ViewCamera {
			return s, nil
		}
		s.ErrorMessage = ""
		return s, RestartCapture{}

	case CameraCancelled:
		if s.View != models.ViewCamera {
			return s, nil
		}
		s.View = models.ViewUpload
		s.ErrorMessage = ""
		return s, ReleaseCapture{}

	case ClearImage:
		if s.View != models.ViewEdit {
			return s, nil
		}
		s.View = models.ViewUpload
		s.Source = models.Image{}
		s.Description = ""
		s.SelectedEntry = ""
		s.ErrorMessage = ""
		s = invalidate(s)
		return s, nil

	case SelectCatalogEntry:
		if s.View != models.ViewEdit || ev.Entry.ID == "" {
			return s, nil
		}
		s.Description = ev.Entry.Prompt
		s.SelectedEntry = ev.Entry.ID
		return s, nil

	case EditDescription:
		if s.View != models.ViewEdit {
			return s, nil
		}
		if ev.Text != s.Description {
			s.SelectedEntry = ""
		}
		s.Description = ev.Text
		return s, nil

	case ClearSelection:
		if s.View != models.ViewEdit {
			return s, nil
		}
		s.SelectedEntry = ""
		s.Description = ""
		return s, nil

	case SetSensitive:
		s.AllowSensitive = ev.Allow
		return s, nil

	case RequestGeneration:
		if !s.CanGenerate() {
			return s, nil
		}
		s.RequestSeq++
		s.PendingTicket = Ticket(s.RequestSeq)
		s.RequestState = models.RequestPending
		s.LastOutcome = models.OutcomeNone
		s.ErrorMessage = ""
		return s, DispatchGeneration{
			Ticket: s.PendingTicket,
			Request: generation.Request{
				Source:         s.Source,
				Description:    strings.TrimSpace(s.Description),
				AllowSensitive: s.AllowSensitive,
			},
		}

	case GenerationSucceeded:
		if !current(s, ev.Ticket) {
			return s, nil
		}
		if ev.Image.IsZero() {
			return Apply(s, GenerationFailed{Ticket: ev.Ticket})
		}
		s.View = models.ViewResult
		s.Result = ev.Image
		s.LastOutcome = models.OutcomeSucceeded
		s = settle(s)
		return s, nil

	case GenerationFailed:
		if !current(s, ev.Ticket) {
			return s, nil
		}
		s.ErrorMessage = ev.Reason
		if strings.TrimSpace(s.ErrorMessage) == "" {
			s.ErrorMessage = GenericFailure
		}
		s.LastOutcome = models.OutcomeFailed
		s = settle(s)
		return s, nil

	case TryAnother:
		if s.View != models.ViewResult {
			return s, nil
		}
		s.View = models.ViewEdit
		s.Result = models.Image{}
		return s, nil

	case Reset:
		var cmd Command
		if s.View == models.ViewCamera {
			cmd = ReleaseCapture{}
		}
		next := NewState()
		next.AllowSensitive = s.AllowSensitive
		next.RequestSeq = s.RequestSeq
		return next, cmd
	}
	return s, nil
}

// current reports whether t answers the request the session is waiting on
func current(s State, t Ticket) bool {
	return s.Pending() && t != 0 && s.PendingTicket == t && s.View == models.ViewEdit
}

// settle ends a request. Succeeded and Failed are reported through LastOutcome
// and the request state returns to idle.
func settle(s State) State {
	s.RequestState = models.RequestIdle
	s.PendingTicket = 0
	return s
}

func invalidate(s State) State {
	if s.Pending() {
		s.RequestState = models.RequestIdle
	}
	s.PendingTicket = 0
	return s
}
