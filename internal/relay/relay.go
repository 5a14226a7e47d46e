package relay

import (
	"context"
	"iter"

	"github.com/seanblong/pdfchat/internal/apperr"
)

type EventKind int

const (
	KindData EventKind = iota
	KindDone
	KindError
)

// Event is one item of a relayed stream. Done and Error are terminal.
type Event struct {
	Kind    EventKind
	Content string
	// Message and Code are set on Error events only.
	Message string
	Code    string
}

func Data(fragment string) Event { return Event{Kind: KindData, Content: fragment} }

func Done() Event { return Event{Kind: KindDone} }

// Error builds the terminal event for err. Only the user-facing message of
// the error kind is carried, never the raw provider text.
func Error(err error) Event {
	e := apperr.As(err)
	return Event{Kind: KindError, Message: e.UserMessage(), Code: e.Kind.Code()}
}

func (e Event) Terminal() bool { return e.Kind != KindData }

// Relay forwards fragments to emit as Data events and finishes with exactly one
// Done or Error event. It stops pulling fragments as soon as emit fails or ctx
// is done; the returned error is the emit failure, if any.
func Relay(ctx context.Context, fragments iter.Seq2[string, error], emit func(Event) error) error {
	for frag, err := range fragments {
		if err != nil {
			return emit(Error(err))
		}
		if cerr := ctx.Err(); cerr != nil {
			return emit(Error(cerr))
		}
		if eerr := emit(Data(frag)); eerr != nil {
			return eerr
		}
	}
	if err := ctx.Err(); err != nil {
		return emit(Error(err))
	}
	return emit(Done())
}
