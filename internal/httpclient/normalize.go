package httpclient

import (
	"bytes"
	"encoding/json"

	"receipts/internal/model"
)

type rawEnvelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Normalize приводит любое тело ответа к конверту {success, message, timestamp, data}.
// Для статусов вне 2xx дополнительно возвращает *model.APIError. Невалидный
// JSON на успешном статусе даёт nil конверт.
func Normalize(status int, body []byte) (json.RawMessage, *model.APIError) {
	body = bytes.TrimSpace(body)
	ok := status >= 200 && status < 300

	if ok {
		return normalizeSuccess(body), nil
	}
	return normalizeFailure(status, body)
}

func normalizeSuccess(body []byte) json.RawMessage {
	if len(body) == 0 {
		return mustMarshal(rawEnvelope{
			Success:   true,
			Message:   DefaultSuccessMessage,
			Timestamp: model.Now(),
		})
	}
	if !json.Valid(body) {
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err == nil {
		if _, has := probe["success"]; has {
			return body
		}
	}

	return mustMarshal(rawEnvelope{
		Success:   true,
		Message:   DefaultSuccessMessage,
		Timestamp: model.Now(),
		Data:      body,
	})
}

func normalizeFailure(status int, body []byte) (json.RawMessage, *model.APIError) {
	var probe map[string]json.RawMessage
	if len(body) > 0 && json.Valid(body) {
		_ = json.Unmarshal(body, &probe)
	}

	message := stringField(probe, "message")
	if message == "" {
		message = stringField(probe, "detail")
	}
	if message == "" {
		message = DefaultErrorMessage
	}

	if _, has := probe["success"]; has {
		ts := stringField(probe, "timestamp")
		return body, &model.APIError{Status: status, Message: message, Timestamp: ts}
	}

	env := rawEnvelope{Success: false, Message: message, Timestamp: model.Now()}
	return mustMarshal(env), &model.APIError{Status: status, Message: message, Timestamp: env.Timestamp}
}

func stringField(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func mustMarshal(v rawEnvelope) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
