package keygen

import (
	"sync"
	"time"

	"github.com/Qonfucius/herdb-arangodb/errors"
)

const (
	// 起始时间戳 (2023-01-01 00:00:00 UTC)
	epoch int64 = 1672531200000

	// 各部分位数
	workerIDBits     = 5
	datacenterIDBits = 5
	sequenceBits     = 12

	maxWorkerID     = -1 ^ (-1 << workerIDBits)     // 31
	maxDatacenterID = -1 ^ (-1 << datacenterIDBits) // 31
	maxSequence     = -1 ^ (-1 << sequenceBits)     // 4095

	workerIDShift      = sequenceBits
	datacenterIDShift  = sequenceBits + workerIDBits
	timestampLeftShift = sequenceBits + workerIDBits + datacenterIDBits
)

// Snowflake 雪花算法键生成器，多个客户端进程使用不同的 worker 避免冲突
type Snowflake struct {
	mu            sync.Mutex
	datacenterID  int64
	workerID      int64
	sequence      int64
	lastTimestamp int64
	now           func() int64 // 毫秒
}

// NewSnowflake 创建生成器
func NewSnowflake(datacenterID, workerID int64) (*Snowflake, error) {
	if datacenterID < 0 || datacenterID > maxDatacenterID {
		return nil, errors.NewConfigurationError("datacenter id %d out of range [0, %d]", datacenterID, maxDatacenterID)
	}
	if workerID < 0 || workerID > maxWorkerID {
		return nil, errors.NewConfigurationError("worker id %d out of range [0, %d]", workerID, maxWorkerID)
	}
	return &Snowflake{
		datacenterID:  datacenterID,
		workerID:      workerID,
		lastTimestamp: -1,
		now:           func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// NextID 生成下一个 ID
func (g *Snowflake) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now < g.lastTimestamp {
		return 0, errors.NewErrorf(errors.ErrCodeInternal,
			"clock moved backwards by %dms, refusing to generate a key", g.lastTimestamp-now)
	}

	if now == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// 序列号用完，等待下一毫秒
			for now <= g.lastTimestamp {
				now = g.now()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTimestamp = now

	return ((now - epoch) << timestampLeftShift) |
		(g.datacenterID << datacenterIDShift) |
		(g.workerID << workerIDShift) |
		g.sequence, nil
}

// Parts 雪花 ID 的组成部分
type Parts struct {
	Timestamp    time.Time
	DatacenterID int64
	WorkerID     int64
	Sequence     int64
}

// Parse 解析 ID
func Parse(id int64) Parts {
	return Parts{
		Timestamp:    time.UnixMilli((id >> timestampLeftShift) + epoch),
		DatacenterID: (id >> datacenterIDShift) & maxDatacenterID,
		WorkerID:     (id >> workerIDShift) & maxWorkerID,
		Sequence:     id & maxSequence,
	}
}
