package uid

import (
	"context"
	"net"
	"sync"
	"time"
)

type SnowflakeOptions struct {
	// 为空时取本机 IPv4 地址的低 10 位
	MachineID *int64    `cfg:"machineID"`
	Epoch     time.Time `cfg:"epoch"`
}

// SnowflakeGenerator 1 位符号 + 41 位毫秒时间戳 + 10 位机器 id + 12 位序列号
type SnowflakeGenerator struct {
	mu        sync.Mutex
	timestamp int64
	sequence  int64
	machineID int64
	epoch     int64
	now       func() time.Time
}

const (
	sequenceBits  = 12
	machineIDBits = 10

	maxSequence  = (1 << sequenceBits) - 1
	maxMachineID = (1 << machineIDBits) - 1

	machineIDShift = sequenceBits
	timestampShift = sequenceBits + machineIDBits
)

var defaultEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func NewSnowflakeGeneratorWithOptions(options *SnowflakeOptions) *SnowflakeGenerator {
	if options == nil {
		options = &SnowflakeOptions{}
	}
	machineID := machineIDFromIP()
	if options.MachineID != nil {
		machineID = *options.MachineID
	}
	epoch := options.Epoch
	if epoch.IsZero() {
		epoch = defaultEpoch
	}

	return &SnowflakeGenerator{
		machineID: machineID & maxMachineID,
		epoch:     epoch.UnixMilli(),
		now:       time.Now,
	}
}

func machineIDFromIP() int64 {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return 0
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipv4 := ipnet.IP.To4(); ipv4 != nil {
				return int64(ipv4[2])<<8 | int64(ipv4[3])
			}
		}
	}
	return 0
}

// NextID 同一毫秒内序列号用完时等到下一毫秒，时钟回拨时沿用上一次的时间戳
func (g *SnowflakeGenerator) NextID(ctx context.Context) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UnixMilli() - g.epoch
	if ts <= g.timestamp {
		ts = g.timestamp
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			for ts <= g.timestamp {
				if err := ctx.Err(); err != nil {
					return 0, err
				}
				time.Sleep(100 * time.Microsecond)
				ts = g.now().UnixMilli() - g.epoch
			}
		}
	} else {
		g.sequence = 0
	}
	g.timestamp = ts

	return ts<<timestampShift | g.machineID<<machineIDShift | g.sequence, nil
}
