package serial

import (
	"fmt"
	"sort"

	"go.bug.st/serial/enumerator"
)

// PortDescriptor 描述一个可用串口
type PortDescriptor struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// String 返回用于列表展示的描述
func (d PortDescriptor) String() string {
	if !d.IsUSB {
		return d.Name
	}
	s := fmt.Sprintf("%s (USB VID:%s PID:%s", d.Name, d.VID, d.PID)
	if d.SerialNumber != "" {
		s += " Serial:" + d.SerialNumber
	}
	if d.Product != "" {
		s += " Product:" + d.Product
	}
	return s + ")"
}

// Lister 枚举系统串口
type Lister func() ([]PortDescriptor, error)

var detailedPortsList = enumerator.GetDetailedPortsList

// Enumerate 列出系统中的串口，按名称排序，重复调用结果稳定
func Enumerate() ([]PortDescriptor, error) {
	details, err := detailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	out := make([]PortDescriptor, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		out = append(out, PortDescriptor{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
