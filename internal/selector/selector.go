// Package selector 负责枚举串口并确定本次测试使用的端口和波特率。
package selector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/linjuya-lu/serial_tester_go/internal/config"
	"github.com/linjuya-lu/serial_tester_go/internal/serial"
)

var (
	ErrNoPortsFound     = errors.New("no serial ports found")
	ErrInvalidSelection = errors.New("invalid port selection")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
)

// Selection 是选择结果
type Selection struct {
	Device   string
	Baudrate int
}

// Selector 先枚举再交互选择；预设了设备或波特率时跳过对应提问
type Selector struct {
	list serial.Lister
	in   *bufio.Reader
	out  io.Writer
	lc   logger.LoggingClient
}

func New(list serial.Lister, in io.Reader, out io.Writer, lc logger.LoggingClient) *Selector {
	return &Selector{list: list, in: bufio.NewReader(in), out: out, lc: lc}
}

// Select 返回要打开的设备和波特率。
// 没有可用串口时返回 ErrNoPortsFound，序号非法时返回 ErrInvalidSelection，
// 等待输入期间 ctx 被取消时返回 ctx.Err()。
func (s *Selector) Select(ctx context.Context, preset config.Port) (Selection, error) {
	if err := ctx.Err(); err != nil {
		return Selection{}, err
	}
	sel := Selection{Device: preset.Device, Baudrate: preset.Baudrate}

	if sel.Device == "" {
		device, err := s.choosePort(ctx)
		if err != nil {
			return Selection{}, err
		}
		sel.Device = device
	}

	if sel.Baudrate <= 0 {
		input, err := s.prompt(ctx, fmt.Sprintf("请输入波特率 (默认 %d): ", config.DefaultBaudrate))
		if err != nil {
			return Selection{}, err
		}
		baud, err := ParseBaudRate(input)
		if err != nil {
			fmt.Fprintln(s.out, "波特率无效，将使用默认值。")
			s.lc.Warnf("baud rate %q rejected, falling back to %d", input, baud)
		}
		sel.Baudrate = baud
	}
	s.lc.Debugf("selected %s at %d baud", sel.Device, sel.Baudrate)
	return sel, nil
}

func (s *Selector) choosePort(ctx context.Context) (string, error) {
	fmt.Fprintln(s.out, "正在扫描可用串口...")
	ports, err := s.list()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", ErrNoPortsFound
	}

	fmt.Fprintln(s.out, "可用串口列表:")
	for i, p := range ports {
		fmt.Fprintf(s.out, "%d: %s\n", i, p)
	}

	input, err := s.prompt(ctx, "请选择串口序号 (默认 0): ")
	if err != nil {
		return "", err
	}
	idx, err := ParseIndex(input, len(ports))
	if err != nil {
		return "", err
	}
	return ports[idx].Name, nil
}

type readResult struct {
	line string
	err  error
}

// prompt 输出提示并读取一行；输入流结束视为空输入。
// 读取在单独的协程里进行，ctx 取消时立即返回，不再等待回车。
func (s *Selector) prompt(ctx context.Context, msg string) (string, error) {
	fmt.Fprint(s.out, msg)
	ch := make(chan readResult, 1)
	go func() {
		line, err := s.in.ReadString('\n')
		ch <- readResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && !errors.Is(r.err, io.EOF) {
			return "", fmt.Errorf("read input: %w", r.err)
		}
		return strings.TrimSpace(r.line), nil
	}
}

// ParseIndex 解析端口序号，空输入取 0
func ParseIndex(input string, n int) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		input = "0"
	}
	idx, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidSelection, input)
	}
	if idx < 0 || idx >= n {
		return 0, fmt.Errorf("%w: %d out of range [0,%d)", ErrInvalidSelection, idx, n)
	}
	return idx, nil
}

// ParseBaudRate 解析波特率，空输入取默认值；
// 非法输入返回 ErrInvalidBaudRate，同时返回默认值供调用方回退
func ParseBaudRate(input string) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return config.DefaultBaudrate, nil
	}
	baud, err := strconv.Atoi(input)
	if err != nil || baud <= 0 {
		return config.DefaultBaudrate, fmt.Errorf("%w: %q", ErrInvalidBaudRate, input)
	}
	return baud, nil
}
