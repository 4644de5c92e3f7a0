package dlq

import (
	"strings"
	"time"
)

// Record is one quarantined job. A job key appears in the store at most
// once at a time; re-insertion overwrites (last writer wins).
type Record struct {
	JobKey       string            `json:"job_key"`
	ErrorKind    string            `json:"error_kind"`
	ErrorMessage string            `json:"error_message"`
	Function     string            `json:"function"`
	FirstSeenAt  time.Time         `json:"first_seen_at"`
	Details      map[string]string `json:"details,omitempty"`
}

// detailPrefix namespaces job detail fields inside the record hash so
// they cannot collide with the fixed fields.
const detailPrefix = "detail:"

// toMap flattens a Record into broker hash fields.
func (r *Record) toMap() map[string]string {
	m := map[string]string{
		"job_key":       r.JobKey,
		"error_kind":    r.ErrorKind,
		"error_message": r.ErrorMessage,
		"function":      r.Function,
		"first_seen_at": r.FirstSeenAt.Format(time.RFC3339Nano),
	}
	for k, v := range r.Details {
		m[detailPrefix+k] = v
	}
	return m
}

// recordFromMap rebuilds a Record from broker hash fields. Parses are
// best-effort: the data was written by us and a torn record is still
// worth surfacing to an operator.
func recordFromMap(m map[string]string) *Record {
	r := &Record{
		JobKey:       m["job_key"],
		ErrorKind:    m["error_kind"],
		ErrorMessage: m["error_message"],
		Function:     m["function"],
	}
	r.FirstSeenAt, _ = time.Parse(time.RFC3339Nano, m["first_seen_at"]) //nolint:errcheck // best-effort parse of our own data
	for k, v := range m {
		if name, ok := strings.CutPrefix(k, detailPrefix); ok {
			if r.Details == nil {
				r.Details = make(map[string]string)
			}
			r.Details[name] = v
		}
	}
	return r
}
