package operation

// Envelope is a zero-information-loss wrapper for relaying an Operation
// across an asynchronous execution boundary. Unwrapping returns a value
// behaviorally identical to the original, so the run contract does not
// change between synchronous and dispatched execution.
type Envelope struct {
	op Operation
}

// Wrap places op into an Envelope.
func Wrap(op Operation) Envelope {
	return Envelope{op: op}
}

// Unwrap returns the wrapped Operation.
func (e Envelope) Unwrap() Operation {
	return e.op
}
