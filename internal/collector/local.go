// Package collector samples the local machine when the backend is unreachable.
// Snapshots use the same field names as /api/system/info so the projector
// cannot tell them apart.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"autosense/internal/projector"
	"autosense/internal/store"
)

// CacheKey is the cache entry holding the last local snapshot.
const CacheKey = "system_info"

const gib = 1024 * 1024 * 1024

// Sampler reads raw figures from the operating system.
type Sampler interface {
	CPU(ctx context.Context) (percent float64, count int, err error)
	Memory(ctx context.Context) (*mem.VirtualMemoryStat, error)
	Disk(ctx context.Context, path string) (*disk.UsageStat, error)
	ProcessCount(ctx context.Context) (int, error)
}

// SystemSampler is the gopsutil-backed Sampler.
type SystemSampler struct {
	CPUWindow time.Duration

	// percent overrides cpu.PercentWithContext in tests.
	percent func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
}

func (s SystemSampler) CPU(ctx context.Context) (float64, int, error) {
	percent := s.percent
	if percent == nil {
		percent = cpu.PercentWithContext
	}
	total, err := percent(ctx, s.CPUWindow, false)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get total cpu percent: %w", err)
	}
	if len(total) == 0 {
		return 0, 0, errors.New("failed to get total cpu percent: empty result")
	}
	count, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get cpu count: %w", err)
	}
	return total[0], count, nil
}

func (s SystemSampler) Memory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

func (s SystemSampler) Disk(ctx context.Context, path string) (*disk.UsageStat, error) {
	return disk.UsageWithContext(ctx, path)
}

func (s SystemSampler) ProcessCount(ctx context.Context) (int, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pids: %w", err)
	}
	return len(pids), nil
}

// LocalCollector produces offline snapshots, caching them for Config.CacheTTL.
type LocalCollector struct {
	cfg     Config
	sampler Sampler
	cache   *store.Cache
	logger  *slog.Logger
}

// NewLocalCollector creates a collector. cache may be nil to disable caching;
// sampler may be nil to use gopsutil.
func NewLocalCollector(cfg Config, sampler Sampler, cache *store.Cache, logger *slog.Logger) (*LocalCollector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampler == nil {
		sampler = SystemSampler{CPUWindow: cfg.CPUSampleWindow}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LocalCollector{cfg: cfg, sampler: sampler, cache: cache, logger: logger}, nil
}

// Internal result types for concurrency
type cpuResult struct {
	percent float64
	count   int
	err     error
}

type memResult struct {
	value *mem.VirtualMemoryStat
	err   error
}

type diskResult struct {
	value *disk.UsageStat
	err   error
}

type procResult struct {
	count int
	err   error
}

// Snapshot returns a fresh cached snapshot or samples a new one.
func (c *LocalCollector) Snapshot(ctx context.Context) (projector.Metrics, error) {
	if c.cache != nil {
		cached, err := store.GetTyped[projector.Metrics](c.cache, CacheKey, c.cfg.CacheTTL)
		if err != nil {
			c.logger.Warn("offline cache read failed", slog.String("error", err.Error()))
		}
		if cached != nil {
			return *cached, nil
		}
	}

	m, err := c.Sample(ctx)
	if err != nil {
		return projector.Metrics{}, err
	}
	if c.cache != nil {
		if err := c.cache.Set(CacheKey, m); err != nil {
			c.logger.Warn("offline cache write failed", slog.String("error", err.Error()))
		}
	}
	return m, nil
}

// Sample reads the machine now, bypassing the cache. CPU, memory and disk are
// required; a failed process count reads as 0.
func (c *LocalCollector) Sample(ctx context.Context) (projector.Metrics, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SampleTimeout)
	defer cancel()

	cpuCh := make(chan cpuResult, 1)
	memCh := make(chan memResult, 1)
	diskCh := make(chan diskResult, 1)
	procCh := make(chan procResult, 1)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		p, n, err := c.sampler.CPU(ctx)
		cpuCh <- cpuResult{percent: p, count: n, err: err}
	}()
	go func() {
		defer wg.Done()
		v, err := c.sampler.Memory(ctx)
		memCh <- memResult{value: v, err: err}
	}()
	go func() {
		defer wg.Done()
		v, err := c.sampler.Disk(ctx, c.cfg.DiskPath)
		diskCh <- diskResult{value: v, err: err}
	}()
	go func() {
		defer wg.Done()
		n, err := c.sampler.ProcessCount(ctx)
		procCh <- procResult{count: n, err: err}
	}()
	wg.Wait()

	cpuRes, memRes, diskRes, procRes := <-cpuCh, <-memCh, <-diskCh, <-procCh

	if cpuRes.err != nil {
		return projector.Metrics{}, fmt.Errorf("failed to get CPU metrics: %w", cpuRes.err)
	}
	if memRes.err != nil {
		return projector.Metrics{}, fmt.Errorf("failed to get memory metrics: %w", memRes.err)
	}
	if memRes.value == nil {
		return projector.Metrics{}, errors.New("failed to get memory metrics: empty result")
	}
	if diskRes.err != nil {
		return projector.Metrics{}, fmt.Errorf("failed to get disk metrics: %w", diskRes.err)
	}
	if diskRes.value == nil {
		return projector.Metrics{}, errors.New("failed to get disk metrics: empty result")
	}
	if procRes.err != nil {
		c.logger.Debug("process count unavailable", slog.String("error", procRes.err.Error()))
	}

	return projector.Metrics{
		CPUPercent:    cpuRes.percent,
		CPUCount:      cpuRes.count,
		MemoryPercent: memRes.value.UsedPercent,
		MemoryUsedGB:  toGB(memRes.value.Used),
		MemoryTotalGB: toGB(memRes.value.Total),
		DiskPercent:   diskRes.value.UsedPercent,
		DiskUsedGB:    toGB(diskRes.value.Used),
		DiskTotalGB:   toGB(diskRes.value.Total),
		ProcessCount:  procRes.count,
	}, nil
}

// toGB converts bytes to GiB rounded to two decimals.
func toGB(b uint64) float64 {
	return math.Round(float64(b)/gib*100) / 100
}
