// Package input loads care requests and candidate pools from JSON files or
// HTTP endpoints and validates requests before they reach the engine.
package input

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spigell/care-matcher/internal/care"
	"github.com/xeipuuv/gojsonschema"
)

const (
	// DefaultTopN is used when a payload does not set top_n.
	DefaultTopN = 10
	// MaxTopN bounds the number of results a caller may ask for.
	MaxTopN = 50

	mobileIDPrefix = "mobile_"
)

var (
	// ErrInvalid wraps every schema violation.
	ErrInvalid = errors.New("invalid input")
	// ErrRequestNotFound is returned when no request carries the requested id.
	ErrRequestNotFound = errors.New("care request not found")
)

//go:embed schema/*.json
var schemas embed.FS

var (
	requestSchema = mustSchema("schema/care_request.json")
	payloadSchema = mustSchema("schema/payload.json")
)

// newID generates ids for requests that arrive without one.
var newID = func() string { return mobileIDPrefix + uuid.New().String() }

func mustSchema(name string) *gojsonschema.Schema {
	data, err := schemas.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("read embedded schema %s: %v", name, err))
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		panic(fmt.Sprintf("compile embedded schema %s: %v", name, err))
	}
	return s
}

// Payload is a single match call: one request, a pool and a result bound.
type Payload struct {
	Request    *care.Request
	Candidates []*care.Candidate
	TopN       int
}

// Summary describes a request for listings.
type Summary struct {
	ID         string `json:"id"`
	SeekerName string `json:"seeker_name"`
	CareLevel  int    `json:"care_level"`
}

type rawPayload struct {
	CareRequest map[string]any   `json:"care_request"`
	Candidates  []map[string]any `json:"candidates"`
	TopN        *int             `json:"top_n"`
}

// LoadPayload reads a {care_request, candidates, top_n} document from a file.
func LoadPayload(path string) (*Payload, error) {
	return NewLoader().Payload(context.Background(), path)
}

// ParsePayload validates and decodes a payload document.
func ParsePayload(data []byte) (*Payload, error) {
	if err := validate(payloadSchema, gojsonschema.NewBytesLoader(data)); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}

	var raw rawPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	req, err := PrepareRequest(raw.CareRequest)
	if err != nil {
		return nil, err
	}
	candidates, err := care.DecodeCandidates(raw.Candidates)
	if err != nil {
		return nil, err
	}

	topN := DefaultTopN
	if raw.TopN != nil {
		topN = *raw.TopN
	}

	return &Payload{Request: req, Candidates: candidates, TopN: topN}, nil
}

// PrepareRequest assigns an id when missing, validates the record and decodes it.
// The raw map is not modified.
func PrepareRequest(raw map[string]any) (*care.Request, error) {
	if raw == nil {
		return nil, fmt.Errorf("care request: %w: empty record", ErrInvalid)
	}

	record := make(map[string]any, len(raw)+1)
	for k, v := range raw {
		record[k] = v
	}
	if RequestID(record) == "" {
		record["request_id"] = newID()
	}

	if err := validate(requestSchema, gojsonschema.NewGoLoader(record)); err != nil {
		return nil, fmt.Errorf("care request %q: %w", RequestID(record), err)
	}

	req, err := care.DecodeRequest(record)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// LoadRequests reads a requests file holding either a list or {"requests": [...]}.
func LoadRequests(path string) ([]map[string]any, error) {
	return NewLoader().Requests(context.Background(), path)
}

// LoadCandidates reads and decodes a candidates file holding either a list or
// {"caregivers": [...]}.
func LoadCandidates(path string) ([]*care.Candidate, error) {
	return NewLoader().Candidates(context.Background(), path)
}

// FindRequest returns the raw request whose id matches.
func FindRequest(raws []map[string]any, id string) (map[string]any, error) {
	id = strings.TrimSpace(id)
	for _, raw := range raws {
		if RequestID(raw) == id {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrRequestNotFound, id)
}

// RequestID returns request_id, falling back to id.
func RequestID(raw map[string]any) string {
	for _, key := range []string{"request_id", "id"} {
		if v, ok := raw[key]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

// Summaries lists id, seeker name and care level of every request.
func Summaries(raws []map[string]any) []Summary {
	out := make([]Summary, 0, len(raws))
	for _, raw := range raws {
		s := Summary{ID: RequestID(raw)}
		if name, ok := raw["seeker_name"].(string); ok {
			s.SeekerName = strings.TrimSpace(name)
		}
		if level, ok := raw["care_level"].(float64); ok {
			s.CareLevel = int(level)
		}
		out = append(out, s)
	}
	return out
}

// parseRecords accepts a bare list or an object holding the list under wrapper.
func parseRecords(data []byte, wrapper string) ([]map[string]any, error) {
	var list []map[string]any
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	inner, ok := wrapped[wrapper]
	if !ok {
		return nil, fmt.Errorf("%w: expected a list or a %q key", ErrInvalid, wrapper)
	}
	if err := json.Unmarshal(inner, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func validate(schema *gojsonschema.Schema, doc gojsonschema.JSONLoader) error {
	result, err := schema.Validate(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
}
