package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

var (
	// ErrInvalidEnvelope: payload não decodificável ou sem os campos obrigatórios
	ErrInvalidEnvelope = errors.New("invalid race event envelope")
	// ErrUnknownType: envelope bem formado mas com tipo que nenhum handler conhece
	ErrUnknownType = errors.New("unknown race event type")
)

// Type é o conjunto fechado de tipos de evento emitidos pelo dispatcher.
// Strings desconhecidas são barradas em ParseType, então o worker só vê valores válidos.
type Type uint8

const (
	ScrapeInfo Type = iota + 1
	PredictPreview
	PredictFinal
	CheckResult
)

var typeNames = map[Type]string{
	ScrapeInfo:     "scrape_info",
	PredictPreview: "predict_preview",
	PredictFinal:   "predict_final",
	CheckResult:    "check_result",
}

// Types lista todos os tipos válidos, na ordem do ciclo de vida da corrida
func Types() []Type { return []Type{ScrapeInfo, PredictPreview, PredictFinal, CheckResult} }

// ParseType converte a tag do envelope no tipo fechado
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

func (t Type) MarshalText() ([]byte, error) {
	name, ok := typeNames[t]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
	return []byte(name), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// RaceEvent é o envelope publicado no tópico "race_events"
// JSON: {"type","venue_id","race_number","deadline"}
type RaceEvent struct {
	Type       Type      `json:"type"`
	VenueID    int       `json:"venue_id"`
	RaceNumber int       `json:"race_number"`
	Deadline   time.Time `json:"deadline"`
}

// RaceID deriva a identidade da corrida do envelope
func (e RaceEvent) RaceID() race.ID { return race.NewID(e.Deadline, e.VenueID, e.RaceNumber) }

// Validate confere os limites dos campos do envelope
func (e RaceEvent) Validate() error {
	if _, ok := typeNames[e.Type]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownType, uint8(e.Type))
	}
	if e.VenueID < 1 || e.VenueID > 24 {
		return fmt.Errorf("%w: venue_id %d out of range", ErrInvalidEnvelope, e.VenueID)
	}
	if e.RaceNumber < 1 || e.RaceNumber > 12 {
		return fmt.Errorf("%w: race_number %d out of range", ErrInvalidEnvelope, e.RaceNumber)
	}
	if e.Deadline.IsZero() {
		return fmt.Errorf("%w: deadline required", ErrInvalidEnvelope)
	}
	return nil
}

// wire usa ponteiros para distinguir campo ausente de valor zero
type wire struct {
	Type       *string `json:"type"`
	VenueID    *int    `json:"venue_id"`
	RaceNumber *int    `json:"race_number"`
	Deadline   *string `json:"deadline"`
}

// Decode valida o formato do envelope.
// Retorna ErrInvalidEnvelope para payload malformado e ErrUnknownType para tag desconhecida.
func Decode(b []byte) (RaceEvent, error) {
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return RaceEvent{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if w.Type == nil || w.VenueID == nil || w.RaceNumber == nil || w.Deadline == nil {
		return RaceEvent{}, fmt.Errorf("%w: missing field", ErrInvalidEnvelope)
	}

	deadline, err := time.Parse(time.RFC3339, *w.Deadline)
	if err != nil {
		return RaceEvent{}, fmt.Errorf("%w: deadline: %v", ErrInvalidEnvelope, err)
	}

	ev := RaceEvent{
		VenueID:    *w.VenueID,
		RaceNumber: *w.RaceNumber,
		Deadline:   deadline,
	}
	// campos estruturais primeiro: tag desconhecida só conta em envelope bem formado
	if err := (RaceEvent{Type: ScrapeInfo, VenueID: ev.VenueID, RaceNumber: ev.RaceNumber, Deadline: ev.Deadline}).Validate(); err != nil {
		return RaceEvent{}, err
	}

	t, err := ParseType(*w.Type)
	if err != nil {
		return ev, err
	}
	ev.Type = t
	return ev, nil
}

// Encode serializa o envelope para publicação
func Encode(e RaceEvent) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}
