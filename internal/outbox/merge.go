package outbox

import "context"

// Merge fans-in a durable stream with an ephemeral stream into one
// channel, implementing spec.md §4.3 "listen_all ... plus an in-memory
// ephemeral channel ... Consumers subscribe to a merged stream."
func Merge(ctx context.Context, durable, ephemeral <-chan Sequenced) <-chan Sequenced {
	out := make(chan Sequenced)

	go func() {
		defer close(out)

		d, e := durable, ephemeral

		for d != nil || e != nil {
			select {
			case <-ctx.Done():
				return
			case sq, ok := <-d:
				if !ok {
					d = nil
					continue
				}

				select {
				case out <- sq:
				case <-ctx.Done():
					return
				}
			case sq, ok := <-e:
				if !ok {
					e = nil
					continue
				}

				select {
				case out <- sq:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
