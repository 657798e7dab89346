package safe

import (
	"context"
	"io"

	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/utils/logging"
)

// ErrTooLarge is returned by ReadAll when the input exceeds the limit
var ErrTooLarge = goerr.New("input exceeds size limit")

// Close closes closer and logs a failure. A nil closer is ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Warn("failed to close", "error", err.Error())
	}
}

// Write writes data and logs a failure. Once a response has started there is
// nobody left to return the error to.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("failed to write response", "error", err.Error(), "size", len(data))
	}
}

// ReadAll reads r up to limit bytes. Longer input fails with ErrTooLarge
// instead of being truncated.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read")
	}
	if int64(len(data)) > limit {
		return nil, goerr.Wrap(ErrTooLarge, "input too large", goerr.V("limit", limit))
	}
	return data, nil
}
