// Package transmit 持续向串口发送随机测试行，直到被取消或写入失败。
package transmit

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"

	"github.com/linjuya-lu/serial_tester_go/internal/charset"
	"github.com/linjuya-lu/serial_tester_go/internal/serial"
)

// LineTerminator 是每一行的唯一分隔符
const LineTerminator = "\n"

// Mirror 接收每一条已发送的行，例如转发到 MQTT
type Mirror interface {
	PublishLine(seq int, line string) error
}

// Options 控制发送节奏和行长度
type Options struct {
	Interval  time.Duration
	MinLength int
	MaxLength int
}

// Stats 汇总一次运行的发送情况
type Stats struct {
	Lines int
	Bytes int
}

// WriteError 表示第 Seq 行写入串口失败，运行就此结束
type WriteError struct {
	Seq int
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write line %d: %v", e.Seq, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Loop 独占一个已打开的串口
type Loop struct {
	port   io.Writer
	gen    *charset.Generator
	lc     logger.LoggingClient
	opts   Options
	mirror Mirror
}

func NewLoop(port io.Writer, gen *charset.Generator, lc logger.LoggingClient, opts Options) *Loop {
	return &Loop{port: port, gen: gen, lc: lc, opts: opts}
}

// WithMirror 设置镜像输出，镜像失败只记录告警
func (l *Loop) WithMirror(m Mirror) *Loop {
	l.mirror = m
	return l
}

// Encode 返回一行在线路上的字节：文本 + 换行，UTF-8 编码
func Encode(text string) []byte {
	return []byte(text + LineTerminator)
}

// Run 循环发送直到 ctx 被取消（返回 nil）或写入失败（返回 *WriteError）。
// 取消只在两次迭代之间检查，不会打断正在进行的写入。
func (l *Loop) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	for {
		select {
		case <-ctx.Done():
			l.lc.Info("transmit loop stopped")
			return stats, nil
		default:
		}

		text, err := l.gen.Line(l.gen.Length(l.opts.MinLength, l.opts.MaxLength))
		if err != nil {
			return stats, err
		}

		seq := stats.Lines + 1
		n, err := serial.WriteAll(l.port, Encode(text))
		stats.Bytes += n
		if err != nil {
			l.lc.Errorf("发送第 %d 行失败: %v", seq, err)
			return stats, &WriteError{Seq: seq, Err: err}
		}
		stats.Lines = seq
		l.lc.Infof("[%d] 已发送: %s", seq, text)

		if l.mirror != nil {
			if err := l.mirror.PublishLine(seq, text); err != nil {
				l.lc.Warnf("mirror line %d: %v", seq, err)
			}
		}

		wait(ctx, l.opts.Interval)
	}
}

// wait 暂停 d，ctx 取消时提前返回
func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
