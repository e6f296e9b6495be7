package hostdev

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-greybus/pkg/types"
)

// cportIDMap CPort 编号分配器
//
// 从 0 开始分配最小可用编号，归还后可复用。
type cportIDMap struct {
	mu    sync.Mutex
	limit int
	used  map[types.CPortID]struct{}
	next  types.CPortID
}

func newCPortIDMap(limit int) *cportIDMap {
	return &cportIDMap{
		limit: limit,
		used:  make(map[types.CPortID]struct{}),
	}
}

// alloc 分配最小可用编号
func (m *cportIDMap) alloc() (types.CPortID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.used) >= m.limit {
		return 0, fmt.Errorf("%w: cport ids exhausted", types.ErrNoMemory)
	}

	// 从游标起扫描一圈，找到空洞
	for i := 0; i < m.limit; i++ {
		id := types.CPortID((int(m.next) + i) % m.limit)
		if _, taken := m.used[id]; !taken {
			m.used[id] = struct{}{}
			m.next = types.CPortID((int(id) + 1) % m.limit)
			return id, nil
		}
	}

	return 0, fmt.Errorf("%w: cport ids exhausted", types.ErrNoMemory)
}

// free 归还编号（重复归还安全）
func (m *cportIDMap) free(id types.CPortID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.used, id)
}
