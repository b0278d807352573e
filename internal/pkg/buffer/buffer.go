package buffer

import (
	"sync"
)

var UPool = sync.Pool{
	New: func() any {
		b := make([]byte, 64*1024) // 64 KB: room for any single UDP datagram
		return &b
	},
}
