package gateway

// This file encodes a booking intent into gateway order notes and decodes
// it back after payment.  The intent is JSON-marshalled and base64-encoded.
// When the encoded form fits in a single note value it is stored under one
// key; otherwise it is split into indexed chunk fields plus a chunk-count
// field and reassembled by index on the way out.  The order's notes are the
// only place the intent lives between checkout and materialization, so any
// decode failure is terminal for the payment's booking.

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aryanpatel/gameden-booking/internal/model"
)

const (
	intentNoteKey   = "booking_intent"
	chunkNotePrefix = "bi_chunk_"
	chunkCountKey   = "bi_total_chunks"
	// The gateway caps notes at 15 entries; one is reserved for the count.
	maxIntentChunks = 14
)

// ErrIntentNotFound is returned when an order's notes carry neither the
// single-field intent nor a chunked one.  It usually means the order was
// created outside the booking flow.
var ErrIntentNotFound = errors.New("booking intent not present in order notes")

// EncodeIntentNotes serializes the intent into note fields ready to be
// attached to a gateway order.  Decode(Encode(x)) reproduces x exactly.
func EncodeIntentNotes(intent *model.BookingIntent) (map[string]string, error) {
	raw, err := json.Marshal(intent)
	if err != nil {
		return nil, fmt.Errorf("marshal booking intent: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	if len(encoded) <= noteValueMaxLen {
		return map[string]string{intentNoteKey: encoded}, nil
	}
	total := (len(encoded) + noteValueMaxLen - 1) / noteValueMaxLen
	if total > maxIntentChunks {
		return nil, fmt.Errorf("booking intent too large: needs %d chunks, gateway notes allow %d", total, maxIntentChunks)
	}
	notes := make(map[string]string, total+1)
	for i := 0; i < total; i++ {
		start := i * noteValueMaxLen
		end := start + noteValueMaxLen
		if end > len(encoded) {
			end = len(encoded)
		}
		notes[chunkNotePrefix+strconv.Itoa(i)] = encoded[start:end]
	}
	notes[chunkCountKey] = strconv.Itoa(total)
	return notes, nil
}

// DecodeIntentNotes reconstructs the booking intent from an order's notes.
// Chunked payloads are reassembled in chunk-index order.  A missing chunk,
// corrupt base64 or invalid JSON all fail: there is no partial recovery,
// because a half-decoded intent must never turn into booking rows.
func DecodeIntentNotes(notes map[string]string) (*model.BookingIntent, error) {
	if len(notes) == 0 {
		return nil, ErrIntentNotFound
	}
	encoded, ok := notes[intentNoteKey]
	if !ok {
		countStr, ok := notes[chunkCountKey]
		if !ok {
			return nil, ErrIntentNotFound
		}
		total, err := strconv.Atoi(countStr)
		if err != nil || total < 1 || total > maxIntentChunks {
			return nil, fmt.Errorf("invalid chunk count %q in order notes", countStr)
		}
		for i := 0; i < total; i++ {
			chunk, ok := notes[chunkNotePrefix+strconv.Itoa(i)]
			if !ok {
				return nil, fmt.Errorf("order notes missing intent chunk %d of %d", i, total)
			}
			encoded += chunk
		}
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode booking intent base64: %w", err)
	}
	var intent model.BookingIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("unmarshal booking intent: %w", err)
	}
	return &intent, nil
}
