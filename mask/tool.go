package mask

import (
	"fmt"
	"strings"
)

type Tool int

const (
	ToolNone Tool = iota
	ToolErase
	ToolRestore
)

var toolNames = map[Tool]string{
	ToolNone:    "none",
	ToolErase:   "erase",
	ToolRestore: "restore",
}

func (t Tool) String() string {
	if name, ok := toolNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tool(%d)", int(t))
}

// ParseTool 空字符串视为 none
func ParseTool(s string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ToolNone, nil
	case "erase":
		return ToolErase, nil
	case "restore":
		return ToolRestore, nil
	}
	return ToolNone, fmt.Errorf("unknown tool %q", s)
}

func (t Tool) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tool) UnmarshalText(text []byte) error {
	parsed, err := ParseTool(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
