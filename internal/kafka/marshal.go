package kafka

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/segmentio/kafka-go"
)

var ErrUnsupportedVersion = errors.New("unsupported envelope version")

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// DecodeEnvelope membaca envelope dari value pesan. Versi di atas
// envelopeVersion ditolak supaya consumer lama tidak salah baca.
func DecodeEnvelope(m kafka.Message) (settlement.Envelope, error) {
	var env settlement.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventVersion > envelopeVersion {
		return env, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.EventVersion)
	}
	return env, nil
}

// UnwrapPayload memudahkan decode payload spesifik
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
