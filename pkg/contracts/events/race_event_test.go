package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValidEnvelope(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"predict_final","venue_id":4,"race_number":12,"deadline":"2024-03-07T10:30:00+09:00"}`))
	require.NoError(t, err)

	assert.Equal(t, PredictFinal, ev.Type)
	assert.Equal(t, 4, ev.VenueID)
	assert.Equal(t, 12, ev.RaceNumber)
	assert.Equal(t, "20240307-4-12", ev.RaceID().Key())
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{type:`},
		{"missing type", `{"venue_id":4,"race_number":1,"deadline":"2024-03-07T10:30:00+09:00"}`},
		{"missing deadline", `{"type":"scrape_info","venue_id":4,"race_number":1}`},
		{"bad deadline", `{"type":"scrape_info","venue_id":4,"race_number":1,"deadline":"10:30"}`},
		{"venue out of range", `{"type":"scrape_info","venue_id":0,"race_number":1,"deadline":"2024-03-07T10:30:00+09:00"}`},
		{"race out of range", `{"type":"scrape_info","venue_id":4,"race_number":13,"deadline":"2024-03-07T10:30:00+09:00"}`},
		{"wrong field type", `{"type":"scrape_info","venue_id":"4","race_number":1,"deadline":"2024-03-07T10:30:00+09:00"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidEnvelope), "got %v", err)
		})
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"predict_5min","venue_id":4,"race_number":1,"deadline":"2024-03-07T10:30:00+09:00"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownType))
	assert.False(t, errors.Is(err, ErrInvalidEnvelope))
}

func TestEncodeDecode(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	in := RaceEvent{Type: CheckResult, VenueID: 2, RaceNumber: 3, Deadline: time.Date(2024, 3, 7, 10, 30, 0, 0, jst)}

	b, err := Encode(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"check_result"`)

	out, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in.Type, out.Type)
	assert.True(t, in.Deadline.Equal(out.Deadline))
	assert.Equal(t, in.RaceID().Key(), out.RaceID().Key())
}

func TestEncodeRejectsZeroType(t *testing.T) {
	_, err := Encode(RaceEvent{VenueID: 1, RaceNumber: 1, Deadline: time.Now()})
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestTypesAreExhaustive(t *testing.T) {
	for _, typ := range Types() {
		parsed, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
	assert.Len(t, Types(), len(typeNames))
}
