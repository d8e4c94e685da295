package mask

import (
	"errors"
	"fmt"
)

const (
	MinDiameter = 5
	MaxDiameter = 80
)

var (
	ErrNoTool      = errors.New("no brush tool selected")
	ErrEmptyStroke = errors.New("stroke has no points")
)

// Point 位图像素坐标
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke 一次连续的笔刷轨迹，相邻点之间用直线段连接
type Stroke struct {
	Tool     Tool    `json:"tool"`
	Diameter int     `json:"diameter"`
	Points   []Point `json:"points"`
}

func (s Stroke) Validate() error {
	if s.Tool != ToolErase && s.Tool != ToolRestore {
		return ErrNoTool
	}
	if s.Diameter < MinDiameter || s.Diameter > MaxDiameter {
		return fmt.Errorf("diameter %d out of range [%d, %d]", s.Diameter, MinDiameter, MaxDiameter)
	}
	if len(s.Points) == 0 {
		return ErrEmptyStroke
	}
	return nil
}

// ClampDiameter 把直径限制在 [MinDiameter, MaxDiameter]
func ClampDiameter(d int) int {
	return min(max(d, MinDiameter), MaxDiameter)
}
