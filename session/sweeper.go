package session

import (
	"time"

	"github.com/chaos-io/maskbrush/util"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper 定时清理空闲会话
type Sweeper struct {
	cron *cron.Cron
}

// NewSweeper spec 为 cron 表达式，例如 "@every 1m"
func NewSweeper(m *Manager, spec string, idle time.Duration) (*Sweeper, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := m.Sweep(idle); n > 0 {
			util.Logger.Info("idle sessions swept", zap.Int("count", n), zap.Int("remaining", m.Len()))
		}
	})
	if err != nil {
		return nil, err
	}
	return &Sweeper{cron: c}, nil
}

func (s *Sweeper) Start() { s.cron.Start() }

// Stop 等待正在执行的清理结束
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
