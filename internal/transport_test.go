package internal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	sessionrepo "github.com/quickcourt/quickcourt/internal/repos/session/inmem"
	userrepo "github.com/quickcourt/quickcourt/internal/repos/user/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo := newFakeEventRepo()
	logger := testLogger()
	es := NewEventService(repo, logger)
	ms := NewMembershipService(repo, logger)
	ss := NewSessionService(sessionrepo.New(), userrepo.New(), logger)
	srv := httptest.NewServer(MakeHTTPHandler(es, ms, ss, logger))
	t.Cleanup(srv.Close)
	return srv
}

// call performs a JSON request against the test server and decodes the response envelope
func call(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("token", token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	var ret map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&ret))
	return res.StatusCode, ret
}

func signupFor(t *testing.T, srv *httptest.Server, user, first, last string) string {
	t.Helper()
	code, body := call(t, srv, http.MethodPost, "/signup", "", map[string]string{
		"user":      user,
		"password":  "s3cret",
		"firstName": first,
		"lastName":  last,
	})
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	return data["sessionId"].(string)
}

func eventBody() map[string]interface{} {
	return map[string]interface{}{
		"title":           "Thursday Pickup",
		"location":        "Court 4",
		"dateTime":        time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"cost":            7.5,
		"maxParticipants": 2,
	}
}

func TestAliveEndpoint(t *testing.T) {
	srv := testServer(t)

	code, body := call(t, srv, http.MethodGet, "/alive", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
}

func TestCreateEventRequiresLogin(t *testing.T) {
	srv := testServer(t)

	code, body := call(t, srv, http.MethodPost, "/events", "", eventBody())
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, ErrCodeNotLoggedIn, body["error"])
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	srv := testServer(t)
	organizer := signupFor(t, srv, "olive", "Olive", "Organizer")

	code, body := call(t, srv, http.MethodPost, "/events", organizer, eventBody())
	require.Equal(t, http.StatusOK, code)
	ev := body["data"].(map[string]interface{})
	id := ev["id"].(string)
	assert.Equal(t, "Olive Organizer", ev["organizer"])

	// The event shows up in the listing
	code, body = call(t, srv, http.MethodGet, "/events", "", nil)
	require.Equal(t, http.StatusOK, code)
	paging := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), paging["rows"])

	// Update by the organizer
	code, body = call(t, srv, http.MethodPut, "/events/"+id, organizer, map[string]interface{}{
		"title": "Friday Pickup",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Friday Pickup", body["data"].(map[string]interface{})["title"])

	// Update by somebody else is rejected
	other := signupFor(t, srv, "mal", "Mal", "Mallory")
	code, body = call(t, srv, http.MethodPut, "/events/"+id, other, map[string]interface{}{
		"title": "Hijacked",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, ErrCodeNotAuthorized, body["error"])

	// Delete
	code, _ = call(t, srv, http.MethodDelete, "/events/"+id, organizer, nil)
	require.Equal(t, http.StatusOK, code)
	code, body = call(t, srv, http.MethodGet, "/events/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, ErrCodeEventNotFound, body["error"])
}

func TestMembershipOverHTTP(t *testing.T) {
	srv := testServer(t)
	organizer := signupFor(t, srv, "olive", "Olive", "Organizer")

	code, body := call(t, srv, http.MethodPost, "/events", organizer, eventBody())
	require.Equal(t, http.StatusOK, code)
	id := body["data"].(map[string]interface{})["id"].(string)

	// Organizer and one player fill the two seats
	code, body = call(t, srv, http.MethodPost, "/events/"+id+"/join", organizer, nil)
	require.Equal(t, http.StatusOK, code)
	res := body["data"].(map[string]interface{})
	assert.Equal(t, "joined", res["status"])

	alice := signupFor(t, srv, "alice", "Alice", "Adams")
	code, _ = call(t, srv, http.MethodPost, "/events/"+id+"/join", alice, nil)
	require.Equal(t, http.StatusOK, code)

	// The third player lands on the waitlist
	bob := signupFor(t, srv, "bob", "Bob", "Barker")
	code, body = call(t, srv, http.MethodPost, "/events/"+id+"/join", bob, nil)
	require.Equal(t, http.StatusOK, code)
	res = body["data"].(map[string]interface{})
	assert.Equal(t, "waitlisted", res["status"])
	assert.Equal(t, float64(1), res["position"])

	// Joining twice is rejected
	code, body = call(t, srv, http.MethodPost, "/events/"+id+"/join", bob, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, ErrCodeAlreadyJoined, body["error"])

	// Nobody joins under a foreign name
	code, body = call(t, srv, http.MethodPost, "/events/"+id+"/join", bob, map[string]string{
		"participant": "Carol Chu",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, ErrCodeNotAuthorized, body["error"])

	// A guest cannot join at all
	code, body = call(t, srv, http.MethodPost, "/events/"+id+"/join", "", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, ErrCodeNotLoggedIn, body["error"])

	// Alice leaves, Bob is promoted
	code, _ = call(t, srv, http.MethodPost, "/events/"+id+"/leave", alice, nil)
	require.Equal(t, http.StatusOK, code)
	code, body = call(t, srv, http.MethodGet, "/events/"+id+"/participants", "", nil)
	require.Equal(t, http.StatusOK, code)
	roster := body["data"].([]interface{})
	require.Len(t, roster, 2)
	assert.Equal(t, "Bob Barker", roster[1].(map[string]interface{})["name"])

	code, body = call(t, srv, http.MethodGet, "/events/"+id+"/waitlist", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["data"])

	// Paid bookkeeping stays with the organizer
	togglePath := "/events/" + id + "/participants/" + url.PathEscape("Bob Barker") + "/toggle-paid"
	code, body = call(t, srv, http.MethodPut, togglePath, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, ErrCodeNotAuthorized, body["error"])

	code, body = call(t, srv, http.MethodPut, togglePath, organizer, nil)
	require.Equal(t, http.StatusOK, code)
	ev := body["data"].(map[string]interface{})
	roster = ev["participants"].([]interface{})
	assert.Equal(t, true, roster[1].(map[string]interface{})["paid"])
}

func TestPasscodeOnlyVisibleToOrganizer(t *testing.T) {
	srv := testServer(t)
	organizer := signupFor(t, srv, "olive", "Olive", "Organizer")

	body := eventBody()
	body["visibility"] = "invite-only"
	code, res := call(t, srv, http.MethodPost, "/events", organizer, body)
	require.Equal(t, http.StatusOK, code)
	ev := res["data"].(map[string]interface{})
	id := ev["id"].(string)
	passcode, ok := ev["passcode"].(string)
	require.True(t, ok)
	require.Len(t, passcode, passcodeLength)

	// The organizer keeps seeing the passcode
	code, res = call(t, srv, http.MethodGet, "/events/"+id, organizer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, passcode, res["data"].(map[string]interface{})["passcode"])

	// Everybody else does not
	code, res = call(t, srv, http.MethodGet, "/events/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	_, ok = res["data"].(map[string]interface{})["passcode"]
	assert.False(t, ok)

	// Joining needs the matching passcode
	alice := signupFor(t, srv, "alice", "Alice", "Adams")
	code, res = call(t, srv, http.MethodPost, "/events/"+id+"/join", alice, map[string]string{
		"passcode": "WRONG1",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, ErrCodeInvalidPasscode, res["error"])

	code, res = call(t, srv, http.MethodPost, "/events/"+id+"/join", alice, map[string]string{
		"passcode": passcode,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "joined", res["data"].(map[string]interface{})["status"])
}
