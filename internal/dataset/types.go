// Package dataset builds instruction-tuning datasets from operational
// dispatch records.
package dataset

import (
	"fmt"

	"github.com/srmops/logibot/internal/docstore"
)

// Example is a single instruction-tuning record. Examples are immutable
// once written; many examples compose a dataset shard.
type Example struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
	Context     string `json:"context"`
}

// Driver is an operational driver record.
type Driver struct {
	Name             string
	RoundTripMinutes float64
	HaulRate         float64
	Status           string
}

// Plant is an operational plant record.
type Plant struct {
	Name     string
	Code     string
	Location string
}

// driverFromDoc decodes a driver record from a raw document. A decode
// error marks the document malformed; the caller skips it.
func driverFromDoc(doc docstore.Document) (Driver, error) {
	name, ok := doc.Fields["name"].(string)
	if !ok || name == "" {
		return Driver{}, fmt.Errorf("document %s: missing name", doc.ID)
	}

	rtm, ok := asFloat(doc.Fields["round_trip_minutes"])
	if !ok {
		return Driver{}, fmt.Errorf("document %s: missing round_trip_minutes", doc.ID)
	}

	rate, ok := asFloat(doc.Fields["haul_rate"])
	if !ok {
		return Driver{}, fmt.Errorf("document %s: missing haul_rate", doc.ID)
	}

	status, _ := doc.Fields["status"].(string)
	if status == "" {
		status = "unknown"
	}

	return Driver{
		Name:             name,
		RoundTripMinutes: rtm,
		HaulRate:         rate,
		Status:           status,
	}, nil
}

// plantFromDoc decodes a plant record from a raw document.
func plantFromDoc(doc docstore.Document) (Plant, error) {
	name, ok := doc.Fields["name"].(string)
	if !ok || name == "" {
		return Plant{}, fmt.Errorf("document %s: missing name", doc.ID)
	}

	code, _ := doc.Fields["code"].(string)
	location, _ := doc.Fields["location"].(string)
	if location == "" {
		return Plant{}, fmt.Errorf("document %s: missing location", doc.ID)
	}

	return Plant{Name: name, Code: code, Location: location}, nil
}

// asFloat coerces JSON-decoded numeric values. Documents round-tripped
// through JSON carry float64; integer-typed writes also appear.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
