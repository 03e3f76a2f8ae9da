package gateway

// AttemptContext travels alongside one logical request. It is a value:
// moving to the retry produces a new context instead of flagging the request.
type AttemptContext struct {
	Number  int
	Retried bool
}

func firstAttempt() AttemptContext {
	return AttemptContext{Number: 1}
}

func (a AttemptContext) retry() AttemptContext {
	return AttemptContext{Number: a.Number + 1, Retried: true}
}
