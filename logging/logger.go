package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Shared structured-log field names. Every module logs chain ids, block
// numbers and intent ids under the same keys so they can be correlated.
const (
	FieldChain  = "chain"
	FieldBlock  = "block_number"
	FieldModule = "module"
	FieldSource = "source"
	FieldIntent = "intent_id"
	FieldAsset  = "asset"
	FieldTxHash = "tx_hash"
)

func New(writer io.Writer, level zerolog.Level, jsonOutput bool) zerolog.Logger {
	if !jsonOutput {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Caller().Logger()
}

// NewTesting routes log output through the test runner so it shows up
// next to the failing test.
func NewTesting(t zerolog.TestingLog) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}
