package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, method, url string, body interface{}, token string) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(testutil.CreateAuthenticatedRequest(t, method, url, body, token))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestEventHandler_List(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.Seed(t, testutil.SampleRows())

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedLen    int
	}{
		{name: "defaults", query: "", expectedStatus: http.StatusOK, expectedLen: 6},
		{name: "paged", query: "?skip=2&limit=3", expectedStatus: http.StatusOK, expectedLen: 3},
		{name: "past the end", query: "?skip=100", expectedStatus: http.StatusOK, expectedLen: 0},
		{name: "negative skip", query: "?skip=-1", expectedStatus: http.StatusBadRequest},
		{name: "non-numeric limit", query: "?limit=ten", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []domain.Event
			resp := getJSON(t, ts.APIURL("/events"+tt.query), &events)
			require.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusOK {
				assert.Len(t, events, tt.expectedLen)
			}
		})
	}
}

func TestEventHandler_Types(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.Seed(t, testutil.SampleRows())

	var types []string
	getJSON(t, ts.APIURL("/events/types"), &types)
	assert.Equal(t, []string{"Faceoff Win", "Goal", "Penalty Taken", "Shot", "shot"}, types)
}

func TestEventHandler_CRUD(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.Seed(t, testutil.SampleRows())
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	newGame := domain.GameIdentity{GameDate: "2022-02-10", HomeTeam: "Olympic (Women) - Canada", AwayTeam: "Olympic (Women) - United States"}
	raw := testutil.NewEventBuilder().InGame(newGame).OfType("Shot").At(120, 60).Build()

	t.Run("create requires auth", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, ts.APIURL("/events"), raw, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("viewers cannot edit events", func(t *testing.T) {
		_, viewerToken := testutil.NewUserBuilder().WithRole(domain.RoleViewer).BuildAndAuthenticate(t, ts)

		resp := doRequest(t, http.MethodPost, ts.APIURL("/events"), raw, viewerToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp = doRequest(t, http.MethodDelete, ts.APIURL("/events/1"), nil, viewerToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("create rejects missing identity", func(t *testing.T) {
		bad := raw
		bad.GameDate = ""
		resp := doRequest(t, http.MethodPost, ts.APIURL("/events"), bad, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	var created domain.Event
	t.Run("create attaches a new game", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, ts.APIURL("/events"), raw, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		testutil.AssertJSONResponse(t, resp, &created)
		assert.NotZero(t, created.ID)
		assert.NotZero(t, created.GameID)

		var games []domain.Game
		getJSON(t, ts.APIURL("/games"), &games)
		assert.Len(t, games, 3)
	})

	t.Run("get", func(t *testing.T) {
		var fetched domain.Event
		resp := getJSON(t, ts.APIURL(fmt.Sprintf("/events/%d", created.ID)), &fetched)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, created.RawEvent.Event, fetched.Event)
	})

	t.Run("update", func(t *testing.T) {
		updated := raw
		updated.Event = "Goal"
		resp := doRequest(t, http.MethodPut, ts.APIURL(fmt.Sprintf("/events/%d", created.ID)), updated, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var fetched domain.Event
		getJSON(t, ts.APIURL(fmt.Sprintf("/events/%d", created.ID)), &fetched)
		assert.Equal(t, "Goal", fetched.Event)
	})

	t.Run("update unknown event", func(t *testing.T) {
		resp := doRequest(t, http.MethodPut, ts.APIURL("/events/99999"), raw, token)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete removes the orphaned game", func(t *testing.T) {
		resp := doRequest(t, http.MethodDelete, ts.APIURL(fmt.Sprintf("/events/%d", created.ID)), nil, token)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = getJSON(t, ts.APIURL(fmt.Sprintf("/events/%d", created.ID)), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var games []domain.Game
		getJSON(t, ts.APIURL("/games"), &games)
		assert.Len(t, games, 2)
	})

	t.Run("delete unknown event", func(t *testing.T) {
		resp := doRequest(t, http.MethodDelete, ts.APIURL("/events/99999"), nil, token)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
