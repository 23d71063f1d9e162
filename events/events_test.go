// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerhq/dealer/dealer"
)

var (
	signer = dealer.MustParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	queue  = dealer.MustParseAddress("0xd3ae78222beadb038203be21ed5ce7c9b1bff602")
)

func TestLogRoundTrip(t *testing.T) {
	tests := []*Event{
		NewSequencerInitialBalanceLocked(signer, big.NewInt(20000), true),
		NewSequencerTerminated(signer),
		NewStakingAmountIncreased(big.NewInt(7)),
		NewStakingAmountWithdrawn(queue, big.NewInt(5000)),
		NewSequencerRelocked(signer, big.NewInt(15000)),
		NewSequencerAgentAdded(queue),
		NewUnlockClaimed(queue, big.NewInt(1)),
	}

	for i, ev := range tests {
		ev.Seq = uint64(i + 1)
		ev.Timestamp = 1700000000
		t.Run(ev.Name, func(t *testing.T) {
			l, err := ev.Log()
			require.NoError(t, err)

			id, ok := ID(ev.Name)
			require.True(t, ok)
			assert.Equal(t, id, l.Topics[0])

			decoded, err := Decode(ev.Seq, ev.Timestamp, l)
			require.NoError(t, err)
			assert.Equal(t, ev, decoded)
		})
	}
}

func TestEventID(t *testing.T) {
	id, ok := ID(SequencerInitialBalanceLocked)
	require.True(t, ok)
	assert.Equal(t, dealer.Bytes32(crypto.Keccak256Hash([]byte("SequencerInitialBalanceLocked(address,uint256,bool)"))), id)

	_, ok = ID("IsSequencerRelocked")
	assert.False(t, ok)
}

func TestSignerTopic(t *testing.T) {
	l, err := NewSequencerTerminated(signer).Log()
	require.NoError(t, err)
	require.Len(t, l.Topics, 2)
	assert.Equal(t, signer.Bytes(), l.Topics[1].Bytes()[12:])
	assert.Empty(t, l.Data)
}

func TestUnknownEvent(t *testing.T) {
	_, err := (&Event{Name: "Nope"}).Log()
	assert.Error(t, err)

	_, err = Decode(1, 0, &Log{Topics: []dealer.Bytes32{{1}}})
	assert.Error(t, err)

	_, err = Decode(1, 0, &Log{})
	assert.Error(t, err)
}

func TestArgAndCopy(t *testing.T) {
	ev := NewStakingAmountWithdrawn(queue, big.NewInt(5000))
	v, ok := ev.Arg("amount")
	require.True(t, ok)
	assert.Equal(t, big.NewInt(5000), v)
	_, ok = ev.Arg("missing")
	assert.False(t, ok)

	cpy := ev.Copy()
	cpy.Args[1].Value.(*big.Int).SetInt64(1)
	assert.Equal(t, big.NewInt(5000), ev.Args[1].Value)
	assert.Equal(t, []any{queue, big.NewInt(5000)}, ev.Values())
}

func TestRecorderAndMulti(t *testing.T) {
	var a, b Recorder
	var written []string
	failing := Store(writerFunc(func(ev *Event) error {
		written = append(written, ev.Name)
		return errors.New("disk full")
	}))

	sink := Multi(&a, nil, failing, &b)
	sink.Emit(NewSequencerTerminated(signer))
	sink.Emit(NewStakingAmountIncreased(big.NewInt(1)))

	assert.Equal(t, []string{SequencerTerminated, StakingAmountIncreased}, a.Names())
	assert.Equal(t, a.Names(), b.Names())
	assert.Equal(t, a.Names(), written)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, StakingAmountIncreased, a.Last().Name)
	assert.Nil(t, (&Recorder{}).Last())
}

func TestFeed(t *testing.T) {
	feed := NewFeed(8)
	defer feed.Close()

	ch := make(chan *Event, 8)
	sub := feed.Subscribe(ch)
	defer sub.Unsubscribe()

	feed.Emit(NewSequencerTerminated(signer))
	feed.Emit(NewStakingAmountIncreased(big.NewInt(3)))

	for _, name := range []string{SequencerTerminated, StakingAmountIncreased} {
		select {
		case ev := <-ch:
			assert.Equal(t, name, ev.Name)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
}

func TestFeedClosed(t *testing.T) {
	feed := NewFeed(1)
	feed.Close()
	feed.Close()
	// must not block or panic
	feed.Emit(NewSequencerTerminated(signer))
}

func TestFeedStalledSubscriber(t *testing.T) {
	const n = 1000
	feed := NewFeed(n)
	defer feed.Close()

	stalled := make(chan *Event, 2)
	stalledSub := feed.Subscribe(stalled)
	defer stalledSub.Unsubscribe()

	fast := make(chan *Event, n)
	fastSub := feed.Subscribe(fast)
	defer fastSub.Unsubscribe()

	for i := 1; i <= n; i++ {
		ev := NewStakingAmountIncreased(big.NewInt(int64(i)))
		ev.Seq = uint64(i)
		feed.Emit(ev)
	}

	var seqs []uint64
	for len(seqs) < n {
		select {
		case ev := <-fast:
			seqs = append(seqs, ev.Seq)
		case <-time.After(5 * time.Second):
			t.Fatalf("got %d of %d events", len(seqs), n)
		}
	}
	require.Len(t, seqs, n, "a stalled subscriber must not hold back the others")
	for i, seq := range seqs {
		assert.Equal(t, uint64(i+1), seq)
	}

	select {
	case err := <-stalledSub.Err():
		assert.ErrorIs(t, err, ErrLagged)
	case <-time.After(time.Second):
		t.Fatal("stalled subscriber was not dropped")
	}
	select {
	case err := <-fastSub.Err():
		t.Fatalf("fast subscriber ended: %v", err)
	default:
	}
}

func TestFeedCloseEndsSubscriptions(t *testing.T) {
	feed := NewFeed(1)
	sub := feed.Subscribe(make(chan *Event, 1))
	feed.Close()

	select {
	case err, ok := <-sub.Err():
		assert.NoError(t, err)
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription outlived the feed")
	}
	sub.Unsubscribe()
}

type writerFunc func(ev *Event) error

func (f writerFunc) Write(ev *Event) error { return f(ev) }

func TestFeedQueueOverflow(t *testing.T) {
	// no dispatcher, so the queue stays full
	feed := &Feed{
		subs:  make(map[*feedSub]struct{}),
		queue: make(chan *Event, 1),
		quit:  make(chan struct{}),
	}
	sub := feed.Subscribe(make(chan *Event, 8))
	defer sub.Unsubscribe()

	feed.Emit(NewSequencerTerminated(signer))
	select {
	case err := <-sub.Err():
		t.Fatalf("dropped early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	feed.Emit(NewSequencerTerminated(signer))
	select {
	case err := <-sub.Err():
		assert.ErrorIs(t, err, ErrLagged)
	case <-time.After(time.Second):
		t.Fatal("subscriber not told about the dropped event")
	}
}
