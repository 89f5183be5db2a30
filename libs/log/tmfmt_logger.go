package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	kitlevel "github.com/go-kit/log/level"
	"github.com/go-logfmt/logfmt"
)

type tmfmtEncoder struct {
	*logfmt.Encoder
	buf bytes.Buffer
}

func (l *tmfmtEncoder) Reset() {
	l.Encoder.Reset()
	l.buf.Reset()
}

var tmfmtEncoderPool = sync.Pool{
	New: func() interface{} {
		var enc tmfmtEncoder
		enc.Encoder = logfmt.NewEncoder(&enc.buf)
		return &enc
	},
}

type tmfmtLogger struct {
	w io.Writer
}

// NewTMFmtLogger returns a logger that encodes keyvals to the Writer in
// "level[time] message  module=... key=val" format. Complex types (structs,
// maps, slices) that logfmt cannot encode are formatted with "%+v".
//
// Each log event produces no more than one call to w.Write.
func NewTMFmtLogger(w io.Writer) kitlog.Logger {
	return &tmfmtLogger{w}
}

func (l tmfmtLogger) Log(keyvals ...interface{}) error {
	enc := tmfmtEncoderPool.Get().(*tmfmtEncoder)
	enc.Reset()
	defer tmfmtEncoderPool.Put(enc)

	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, kitlog.ErrMissingValue)
	}

	lvl := "none"
	msg := "unknown"
	module := "unknown"

	// The level, message and module keyvals are rendered in the line
	// prefix, not as keyvals.
	excludeIndexes := make([]int, 0, 3)
	for i := 0; i < len(keyvals)-1; i += 2 {
		switch keyvals[i] {
		case kitlevel.Key(), levelKey:
			excludeIndexes = append(excludeIndexes, i)
			switch v := keyvals[i+1].(type) {
			case string:
				lvl = v
			case interface{ String() string }:
				lvl = v.String()
			}
		case msgKey:
			excludeIndexes = append(excludeIndexes, i)
			if v, ok := keyvals[i+1].(string); ok {
				msg = v
			}
		case moduleKey:
			excludeIndexes = append(excludeIndexes, i)
			if v, ok := keyvals[i+1].(string); ok {
				module = v
			}
		}
	}

	// Form the line prefix: single-letter level, timestamp, then the
	// message padded so keyvals of consecutive lines align.
	fmt.Fprintf(&enc.buf, "%c[%s] %-44s ", lvl[0]-32, time.Now().UTC().Format("2006-01-02|15:04:05.000"), msg)

	if module != "unknown" {
		fmt.Fprintf(&enc.buf, "module=%s ", module)
	}

KeyvalueLoop:
	for i := 0; i < len(keyvals)-1; i += 2 {
		for _, j := range excludeIndexes {
			if i == j {
				continue KeyvalueLoop
			}
		}

		err := enc.EncodeKeyval(keyvals[i], keyvals[i+1])
		if err == logfmt.ErrUnsupportedValueType {
			enc.EncodeKeyval(keyvals[i], fmt.Sprintf("%+v", keyvals[i+1])) //nolint:errcheck // no need to check error again
		} else if err != nil {
			return err
		}
	}

	if err := enc.EndRecord(); err != nil {
		return err
	}

	// The Logger interface requires implementations to be safe for
	// concurrent use by multiple goroutines. For this implementation that
	// means making only one call to l.w.Write() for each call to Log.
	if _, err := l.w.Write(enc.buf.Bytes()); err != nil {
		return err
	}
	return nil
}
