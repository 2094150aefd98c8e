package xdispatch

import "context"

// Transport carries broker envelopes to subscribers outside the
// process. The core gives no delivery guarantees; durability and
// distribution belong to the concrete adapter behind this seam.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close(ctx context.Context) error
}
