package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// asUser mimics the JWT middleware by populating the user locals.
func asUser(id uint, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", id)
		c.Locals("user_role", role)
		return c.Next()
	}
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

// decodeEnvelope decodes the response envelope and, when data is non-nil,
// its data field.
func decodeEnvelope(t *testing.T, resp *http.Response, data interface{}) envelope {
	t.Helper()

	var payload envelope
	decodeResponse(t, resp, &payload)
	if data != nil {
		require.NoError(t, json.Unmarshal(payload.Data, data))
	}
	return payload
}
