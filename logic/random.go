package logic

import (
	"math/rand"
	"sync"
	"time"
)

// RandomSource 唯一的随机来源，返回 [0,1) 区间的均匀分布值
type RandomSource interface {
	Float64() float64
}

// lockedSource rand.Rand 不是并发安全的，加锁后在请求间共享
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomSource seed 为 0 时使用当前时间
func NewRandomSource(seed int64) RandomSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// pick 从词表中均匀选取一个
func pick(src RandomSource, items []string) string {
	i := int(src.Float64() * float64(len(items)))
	if i >= len(items) {
		i = len(items) - 1
	}
	return items[i]
}
