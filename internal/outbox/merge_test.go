package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tanakasan3/lana-bank-sub001/internal/events"
)

func TestMerge_DeliversFromBothStreamsAndClosesWhenBothDrain(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	durable := make(chan Sequenced, 1)
	ephemeral := make(chan Sequenced, 1)

	durable <- Sequenced{Sequence: 1, Event: events.New(events.TypeObligationDue, time.Now(), nil)}
	ephemeral <- Sequenced{Sequence: 0, Event: events.New(events.TypePriceUpdated, time.Now(), nil)}
	close(durable)
	close(ephemeral)

	merged := Merge(ctx, durable, ephemeral)

	var seen []Sequenced
	for sq := range merged {
		seen = append(seen, sq)
	}

	assert.Len(t, seen, 2)
}
