package serial

import (
	"io"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
)

// maxStalledWrites 连续多少次零字节写入后放弃
const maxStalledWrites = 3

// WriteAll 把 p 全部写入 w；底层只接受部分写入时继续写剩余部分。
// 返回已写入的字节数。
func WriteAll(w io.Writer, p []byte) (int, error) {
	written, stalled := 0, 0
	for written < len(p) {
		n, err := w.Write(p[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n > 0 {
			stalled = 0
			continue
		}
		stalled++
		if stalled >= maxStalledWrites {
			return written, errors.NewCommonEdgeX(errors.KindIOError, "serial write made no progress", io.ErrShortWrite)
		}
	}
	return written, nil
}
