// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

const maxMessageCacheSize = 1000

// messageCache holds encoded event messages by sequence number, so each event
// is marshalled once however many subscribers receive it.
type messageCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func newMessageCache(size uint32) *messageCache {
	size = min(max(size, 1), maxMessageCacheSize)
	cache, err := lru.New(int(size))
	if err != nil {
		panic(err) // size is at least 1
	}
	return &messageCache{cache: cache}
}

// GetOrAdd returns the message for seq, encoding and caching it on a miss.
// The bool reports whether encode ran.
func (mc *messageCache) GetOrAdd(seq uint64, encode func() ([]byte, error)) ([]byte, bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if msg, ok := mc.cache.Get(seq); ok {
		return msg.([]byte), false, nil
	}
	msg, err := encode()
	if err != nil {
		return nil, false, err
	}
	mc.cache.Add(seq, msg)
	return msg, true, nil
}
