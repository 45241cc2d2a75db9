package backend

// Kind tags the classified result of one processing request.
type Kind int

const (
	// KindUnexpected is the zero value so an unset Outcome never produces a reply.
	KindUnexpected Kind = iota
	KindHandled
	KindUnauthorized
	KindNotRecognized
)

func (k Kind) String() string {
	switch k {
	case KindHandled:
		return "handled"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotRecognized:
		return "not_recognized"
	default:
		return "unexpected"
	}
}

// Outcome is the classified result of one processing request. Reply is set for
// KindHandled and KindNotRecognized, Err for KindUnexpected.
type Outcome struct {
	Kind  Kind
	Reply string
	Err   error
}

func Handled(reply string) Outcome {
	return Outcome{Kind: KindHandled, Reply: reply}
}

func Unauthorized() Outcome {
	return Outcome{Kind: KindUnauthorized}
}

func NotRecognized(reply string) Outcome {
	return Outcome{Kind: KindNotRecognized, Reply: reply}
}

func Unexpected(err error) Outcome {
	return Outcome{Kind: KindUnexpected, Err: err}
}

// ShouldReply reports whether the outcome carries text for the sender.
func (o Outcome) ShouldReply() bool {
	return (o.Kind == KindHandled || o.Kind == KindNotRecognized) && o.Reply != ""
}
