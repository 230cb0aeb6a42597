package domain

// ThreadingDecision is the outcome of the threading policy. The set of
// implementations is closed: CreateNew, AppendToOpen and RestoreAndAppend.
type ThreadingDecision interface {
	Kind() DecisionKind
	isThreadingDecision()
}

// DecisionKind names a decision variant.
type DecisionKind string

const (
	DecisionCreateNew        DecisionKind = "create_new"
	DecisionAppendToOpen     DecisionKind = "append_to_open"
	DecisionRestoreAndAppend DecisionKind = "restore_and_append"
)

// CreateNew starts a new conversation.
type CreateNew struct{}

// AppendToOpen adds the message to a live conversation.
type AppendToOpen struct {
	TicketID string
}

// RestoreAndAppend brings a trashed conversation back and adds the message.
type RestoreAndAppend struct {
	TicketID string
}

func (CreateNew) Kind() DecisionKind        { return DecisionCreateNew }
func (AppendToOpen) Kind() DecisionKind     { return DecisionAppendToOpen }
func (RestoreAndAppend) Kind() DecisionKind { return DecisionRestoreAndAppend }

func (CreateNew) isThreadingDecision()        {}
func (AppendToOpen) isThreadingDecision()     {}
func (RestoreAndAppend) isThreadingDecision() {}
