package client_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/client"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/snapshot"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// zoneWithoutKeys has no key in MockKeys.
const zoneWithoutKeys alma.Zone = "ZZZ"

// MockKeys returns one key per zone and lists the configured institution zones.
type MockKeys struct {
	zones []alma.Zone
}

func (m *MockKeys) GetKey(zone alma.Zone, area string, _ alma.Permission, _ alma.Environment) (string, error) {
	if zone == zoneWithoutKeys {
		return "", fmt.Errorf("%w: zone %s, area %s", alma.ErrKeyNotFound, zone, area)
	}

	return "key-" + string(zone), nil
}

func (m *MockKeys) IZCodes() []alma.Zone {
	return m.zones
}

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []logEntry
}

type logEntry struct {
	level string
	msg   string
}

func (l *MockLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, logEntry{level: level, msg: msg})
}

func (l *MockLogger) Debug(msg string, _ map[string]interface{})    { l.add("debug", msg) }
func (l *MockLogger) Info(msg string, _ map[string]interface{})     { l.add("info", msg) }
func (l *MockLogger) Warn(msg string, _ map[string]interface{})     { l.add("warn", msg) }
func (l *MockLogger) Error(msg string, _ map[string]interface{})    { l.add("error", msg) }
func (l *MockLogger) Critical(msg string, _ map[string]interface{}) { l.add("critical", msg) }

func (l *MockLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var messages []string

	for _, entry := range l.logs {
		if entry.level == level {
			messages = append(messages, entry.msg)
		}
	}

	return messages
}

// recordedRequest is what the test server saw.
type recordedRequest struct {
	Method        string
	Path          string
	Query         map[string][]string
	Body          string
	ContentType   string
	Authorization string
}

// testEnv is a client wired to an httptest server and an in-memory snapshot store.
type testEnv struct {
	client   *client.Client
	logger   *MockLogger
	fs       afero.Fs
	mu       sync.Mutex
	requests []recordedRequest
}

func (e *testEnv) recorded() []recordedRequest {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]recordedRequest(nil), e.requests...)
}

func newTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()

	env := &testEnv{
		logger: &MockLogger{},
		fs:     afero.NewMemMapFs(),
	}

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)

		env.mu.Lock()
		env.requests = append(env.requests, recordedRequest{
			Method:        request.Method,
			Path:          request.URL.Path,
			Query:         request.URL.Query(),
			Body:          string(body),
			ContentType:   request.Header.Get("Content-Type"),
			Authorization: request.Header.Get("Authorization"),
		})
		env.mu.Unlock()

		handler(writer, request)
	}))
	t.Cleanup(server.Close)

	c, err := client.New(context.Background(), &alma.Config{
		APIEndpoint:        server.URL,
		Keys:               &MockKeys{zones: []alma.Zone{"HPH", "UBS"}},
		Logger:             env.logger,
		RetryDelay:         time.Millisecond,
		RequestInterval:    -1,
		RemainingThreshold: -1,
		ExitFunc:           func(int) {},
		Snapshots:          snapshot.NewFileStore(env.fs, "records", env.logger),
	})
	require.NoError(t, err)

	env.client = c

	return env
}

func respond(writer http.ResponseWriter, status int, contentType, body string) {
	writer.Header().Set("Content-Type", contentType)
	writer.WriteHeader(status)
	_, _ = io.WriteString(writer, body)
}

func respondXML(writer http.ResponseWriter, status int, body string) {
	respond(writer, status, "application/xml;charset=UTF-8", body)
}

func respondJSON(writer http.ResponseWriter, status int, body string) {
	respond(writer, status, "application/json;charset=UTF-8", body)
}

func jsonError(message string) string {
	return `{"errorsExist":true,"errorList":{"error":[{"errorCode":"401861","errorMessage":"` + message + `","trackingId":"E01-1"}]},"result":null}`
}

func xmlError(message string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<web_service_result xmlns="http://com/exlibris/urm/general/xmlbeans">` +
		`<errorsExist>true</errorsExist><errorList><error><errorCode>402203</errorCode>` +
		`<errorMessage>` + message + `</errorMessage><trackingId>E01-2</trackingId></error></errorList></web_service_result>`
}

func containsMessage(messages []string, part string) bool {
	for _, msg := range messages {
		if strings.Contains(msg, part) {
			return true
		}
	}

	return false
}
