package utils

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// JSONError writes a JSON error response with the given status code and
// message. It ensures the Content-Type is set to application/json.
func JSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// JSONWrite writes the provided value as JSON with the given status code.
func JSONWrite(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	return json.NewEncoder(w).Encode(v)
}

// QueryInt64 parses an int64 query parameter, returning def when absent.
// A present but unparsable value reports ok=false.
func QueryInt64(q url.Values, key string, def int64) (v int64, ok bool) {
	raw := q.Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// QueryInt parses an int query parameter, returning def when absent.
func QueryInt(q url.Values, key string, def int) (v int, ok bool) {
	raw := q.Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// QueryBool parses a boolean query parameter ("1", "true", "yes").
func QueryBool(q url.Values, key string) bool {
	switch q.Get(key) {
	case "1", "true", "yes":
		return true
	}
	return false
}
