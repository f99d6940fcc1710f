package vulkan

import "sync"

type LockGroup string

const (
	QueueManagement   LockGroup = "queue_management"
	PoolManagement    LockGroup = "pool_management"
	SurfaceManagement LockGroup = "surface_management"
)

// LockPool hands out one mutex per group of Vulkan calls that must be
// externally synchronized, plus one per queue family.
type LockPool struct {
	mu           sync.Mutex
	locks        map[LockGroup]*sync.Mutex
	queueMutexes map[uint32]*sync.Mutex
}

func NewLockPool() *LockPool {
	return &LockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

func (lp *LockPool) lock(group LockGroup) *sync.Mutex {
	lp.mu.Lock()
	l, ok := lp.locks[group]
	if !ok {
		l = &sync.Mutex{}
		lp.locks[group] = l
	}
	lp.mu.Unlock()
	return l
}

func (lp *LockPool) queueLock(family uint32) *sync.Mutex {
	lp.mu.Lock()
	l, ok := lp.queueMutexes[family]
	if !ok {
		l = &sync.Mutex{}
		lp.queueMutexes[family] = l
	}
	lp.mu.Unlock()
	return l
}

// SafeCall runs fn while holding the group's mutex.
func (lp *LockPool) SafeCall(group LockGroup, fn func() error) error {
	l := lp.lock(group)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// SafeQueueCall runs fn while holding the mutex of a queue family. Graphics
// and present share a mutex when they share a family.
func (lp *LockPool) SafeQueueCall(family uint32, fn func() error) error {
	l := lp.queueLock(family)
	l.Lock()
	defer l.Unlock()
	return fn()
}
