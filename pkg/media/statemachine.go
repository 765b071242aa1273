package media

import (
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
)

// Workflow is the deployment-wide default publication workflow. When the
// workflow is public, ordinary members may publish without review roles.
type Workflow string

const (
	WorkflowPrivate  Workflow = "private"
	WorkflowPublic   Workflow = "public"
	WorkflowUnlisted Workflow = "unlisted"
)

// ParseWorkflow validates a workflow value from configuration.
func ParseWorkflow(s string) (Workflow, error) {
	switch Workflow(s) {
	case WorkflowPrivate, WorkflowPublic, WorkflowUnlisted:
		return Workflow(s), nil
	}
	return "", apperr.InvalidArgumentf("invalid workflow %q", s)
}

// Transition is a requested mutation of the governing publication fields.
// Nil fields are left unchanged.
type Transition struct {
	State          *State
	EncodingStatus *EncodingStatus
	Reviewed       *bool
}

// StateMachine is the only component allowed to write the listable flag.
// Every assignment to state, encoding status or the reviewed bit goes
// through Apply, which recomputes listable in the same step.
type StateMachine struct {
	workflow Workflow
}

// NewStateMachine creates a state machine for the deployment's workflow.
func NewStateMachine(workflow Workflow) *StateMachine {
	return &StateMachine{workflow: workflow}
}

// Apply validates the transition and mutates m, recomputing the listable
// flag. Validation happens before any field is touched, so a rejected
// transition leaves m unchanged.
//
// A nil actor marks an internal pipeline transition (encode completion,
// review callback) and bypasses the publish guard; those transitions never
// set state from user input.
func (sm *StateMachine) Apply(m *Media, t Transition, actor *identity.Principal) error {
	if t.State != nil {
		if _, err := ParseState(string(*t.State)); err != nil {
			return err
		}
		if *t.State == StatePublic && actor != nil && !sm.canPublish(actor, m) {
			return apperr.PolicyViolationf("user %d may not publish media %d", actor.UserID(), m.ID)
		}
	}
	if t.EncodingStatus != nil {
		if _, err := ParseEncodingStatus(string(*t.EncodingStatus)); err != nil {
			return err
		}
	}

	if t.State != nil {
		m.State = *t.State
	}
	if t.EncodingStatus != nil {
		m.EncodingStatus = *t.EncodingStatus
	}
	if t.Reviewed != nil {
		m.Reviewed = *t.Reviewed
	}
	m.deriveListable()
	m.EditDate = time.Now().UTC()
	return nil
}

// canPublish reports whether the actor may move media to the public state.
// Editors, managers and superusers always can; everyone else only when the
// deployment's default workflow is public.
func (sm *StateMachine) canPublish(actor *identity.Principal, m *Media) bool {
	if actor.HasElevatedRole() {
		return true
	}
	return sm.workflow == WorkflowPublic
}

// NewMedia returns a media object in its initial lifecycle position:
// private state, pending encoding, unreviewed, not listable.
func NewMedia(ownerID int64, title string, mediaType MediaType) *Media {
	now := time.Now().UTC()
	return &Media{
		OwnerID:        ownerID,
		Title:          title,
		MediaType:      mediaType,
		State:          StatePrivate,
		EncodingStatus: EncodingPending,
		AllowComments:  true,
		AddDate:        now,
		EditDate:       now,
	}
}
