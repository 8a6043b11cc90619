package models

import (
	"bytes"
	"encoding/json"
)

// FailureKind classifies why a single lookup did not produce a payload
// The zero value means the lookup succeeded
type FailureKind string

const (
	// NoFailure marks a successful lookup
	NoFailure FailureKind = ""

	// ConnectionFailure: no response obtained (unreachable, DNS, reset)
	ConnectionFailure FailureKind = "connection_failure"

	// TimeoutFailure: no response within the allotted time
	TimeoutFailure FailureKind = "timeout"

	// RestrictedAddress: the provider refused a reserved/bogon address (HTTP 423)
	RestrictedAddress FailureKind = "restricted_address"

	// HTTPError: any other non-2xx status
	HTTPError FailureKind = "http_error"

	// UnknownRequestFailure: any other request-level failure
	UnknownRequestFailure FailureKind = "unknown_request_failure"
)

// FailureKinds lists every failure kind, in a stable order
// Used to pre-initialize metric label values
var FailureKinds = []FailureKind{
	ConnectionFailure,
	TimeoutFailure,
	RestrictedAddress,
	HTTPError,
	UnknownRequestFailure,
}

// Field is one attribute returned by the geolocation API
// Non-string JSON values are kept as their raw JSON text
type Field struct {
	Key   string
	Value string
}

// GeoPayload holds the attributes returned by the geolocation API
// The shape is dictated by the API, so fields are kept in the order the API sent them
type GeoPayload struct {
	Fields []Field
}

// Get returns the value of a field and whether it was present
func (p GeoPayload) Get(key string) (string, bool) {
	for _, f := range p.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Value returns the value of a field, or an empty string if missing
func (p GeoPayload) Value(key string) string {
	v, _ := p.Get(key)
	return v
}

// GeoResult is the outcome of geolocating a single IP address
// It is either a success (Failure == NoFailure, Payload populated)
// or a failure (Failure set, Payload empty)
type GeoResult struct {
	IP      string
	Payload GeoPayload
	Failure FailureKind
}

// Success builds a successful result
func Success(ip string, payload GeoPayload) GeoResult {
	return GeoResult{IP: ip, Payload: payload}
}

// Failed builds a failed result
func Failed(ip string, kind FailureKind) GeoResult {
	return GeoResult{IP: ip, Failure: kind}
}

// OK reports whether the lookup succeeded
func (r GeoResult) OK() bool {
	return r.Failure == NoFailure
}

// MarshalJSON renders a success as a flat object ("ip" first, then the payload
// fields in API order) and a failure as {"ip": ..., "error": ...}
func (r GeoResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writePair := func(key, value string) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := writePair("ip", r.IP); err != nil {
		return nil, err
	}

	if !r.OK() {
		if err := writePair("error", string(r.Failure)); err != nil {
			return nil, err
		}
	} else {
		for _, f := range r.Payload.Fields {
			if f.Key == "ip" {
				continue
			}
			if err := writePair(f.Key, f.Value); err != nil {
				return nil, err
			}
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RunSummary describes a finished batch run
type RunSummary struct {
	Rows     int    `json:"rows"`
	Failures int    `json:"failures"`
	Output   string `json:"output"`
	Skipped  bool   `json:"skipped,omitempty"`
}

// StorageObject is the metadata of a changed object in a storage bucket,
// as delivered by a storage trigger
type StorageObject struct {
	Bucket      string `json:"bucket" validate:"required"`
	Name        string `json:"name" validate:"required"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

// GeocodeRequest is the body of a synchronous batch request
type GeocodeRequest struct {
	IPs []string `json:"ips" validate:"required,min=1,max=1000"`
}

// ErrorResponse is the standard error response format
// This is what we return when something goes wrong
type ErrorResponse struct {
	Error string `json:"error"` // Error message
}
