package feed

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zipWithEntries builds an in-memory zip archive for the mock upstream.
func zipWithEntries(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func feedServer(body []byte, status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write(body)
	}))
}

func newTestFetcher(url string) *Fetcher {
	return NewFetcher(url, 5*time.Second, zerolog.Nop(), nil)
}

func TestFetch_ParsesFirstJSONEntry(t *testing.T) {
	payload := `{
		"estimatedTimetableDelivery": [{
			"estimatedJourneyVersionFrame": [{
				"estimatedVehicleJourney": [{
					"datedVehicleJourneyRef": {"value": "BBB-1"},
					"estimatedCalls": {"estimatedCall": [{
						"order": 1,
						"stopPointName": [{"value": "Montpellier Sabines"}],
						"aimedDepartureTime": "2025-04-11T20:05:00 +0200"
					}]}
				}]
			}]
		}]
	}`
	archive := zipWithEntries(t, map[string]string{
		"readme.txt":     "not the payload",
		"timetable.json": payload,
	})
	server := feedServer(archive, http.StatusOK)
	defer server.Close()

	envelope, err := newTestFetcher(server.URL).Fetch(context.Background())
	require.NoError(t, err)

	journeys := envelope.Journeys()
	require.Len(t, journeys, 1)
	assert.Equal(t, "BBB-1", journeys[0].JourneyRef())
	require.Len(t, journeys[0].Calls(), 1)
	assert.Equal(t, "2025-04-11T20:05:00 +0200", journeys[0].Calls()[0].AimedTime())
}

func TestFetch_NoJSONEntry(t *testing.T) {
	archive := zipWithEntries(t, map[string]string{"data.xml": "<siri/>"})
	server := feedServer(archive, http.StatusOK)
	defer server.Close()

	_, err := newTestFetcher(server.URL).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoJSONEntry)
}

func TestFetch_MalformedJSON(t *testing.T) {
	archive := zipWithEntries(t, map[string]string{"timetable.json": "{not json"})
	server := feedServer(archive, http.StatusOK)
	defer server.Close()

	_, err := newTestFetcher(server.URL).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrMalformedFeed)
}

func TestFetch_NotAnArchive(t *testing.T) {
	server := feedServer([]byte("plain text"), http.StatusOK)
	defer server.Close()

	_, err := newTestFetcher(server.URL).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrMalformedFeed)
}

func TestFetch_UpstreamFailure(t *testing.T) {
	server := feedServer(nil, http.StatusBadGateway)
	defer server.Close()

	_, err := newTestFetcher(server.URL).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamFetch)
}

func TestEnvelopeMerge_NightFirst(t *testing.T) {
	live := &Envelope{Deliveries: []EstimatedTimetableDelivery{{
		Frames: []EstimatedJourneyVersionFrame{{
			Journeys: []EstimatedVehicleJourney{{DatedVehicleJourneyRef: &Ref{Value: "live-1"}}},
		}},
	}}}
	night := &Envelope{Deliveries: []EstimatedTimetableDelivery{{
		Frames: []EstimatedJourneyVersionFrame{{
			Journeys: []EstimatedVehicleJourney{{DatedVehicleJourneyRef: &Ref{Value: "night-1"}}},
		}},
	}}}

	merged := live.Merge(night)
	journeys := merged.Journeys()
	require.Len(t, journeys, 2)
	assert.Equal(t, "night-1", journeys[0].JourneyRef())
	assert.Equal(t, "live-1", journeys[1].JourneyRef())

	// nil snapshot leaves the live envelope untouched
	assert.Equal(t, live, live.Merge(nil))
}
