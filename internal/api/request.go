package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"hearts-echo/internal/core"
)

const (
	requiredKey = "required"
	langKey     = "lang"
)

// parseEchoRequest splits an /echo body into field values and the meta fields
// "required" and "lang". Vocabulary fields must be strings or null; fields
// outside the vocabulary are dropped.
func parseEchoRequest(body map[string]json.RawMessage, vocab core.FieldNames) (core.Request, string, error) {
	req := core.Request{Fields: core.FieldSet{}}
	var lang string

	for name, raw := range body {
		switch name {
		case requiredKey:
			if err := json.Unmarshal(raw, &req.Required); err != nil {
				return core.Request{}, "", CodedErrorf(http.StatusUnprocessableEntity, "field '%s' must be a list of field names", requiredKey)
			}
		case langKey:
			var value *string
			if err := json.Unmarshal(raw, &value); err != nil {
				return core.Request{}, "", CodedErrorf(http.StatusUnprocessableEntity, "field '%s' must be a string", langKey)
			}
			if value != nil {
				lang = *value
			}
		default:
			if !vocab.Contains(name) {
				slog.Debug("ignoring unknown field", "field", name)
				continue
			}
			var value *string
			if err := json.Unmarshal(raw, &value); err != nil {
				return core.Request{}, "", CodedErrorf(http.StatusUnprocessableEntity, "field '%s' must be a string or null", name)
			}
			req.Fields[name] = value
		}
	}

	return req, lang, nil
}
