package workflow

import "errors"

// ErrQuoteAlreadyProcessed is the idempotency violation: the quote already
// reached the order-created terminal state. Distinguishable from not-found
// so operators can tell "already done" apart from "broken".
var ErrQuoteAlreadyProcessed = errors.New("quote already has an order created")
