package internal

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bus-departures-backend/internal/departures"
	"bus-departures-backend/internal/extract"
	"bus-departures-backend/internal/feed"
	"bus-departures-backend/internal/model"
	"bus-departures-backend/internal/night"
	"bus-departures-backend/internal/store"
)

// TestDeparturesPipeline exercises the whole flow: a zipped feed served over
// HTTP, a persisted night snapshot in SQLite, extraction, merging and range
// filtering.
func TestDeparturesPipeline(t *testing.T) {
	// 1. Set up an in-memory snapshot store with one persisted night journey.
	testDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(&store.NightSnapshot{}))
	blobs := store.NewGormStore(testDB)

	nightEnvelope := feed.Envelope{Deliveries: []feed.EstimatedTimetableDelivery{{
		Frames: []feed.EstimatedJourneyVersionFrame{{
			Journeys: []feed.EstimatedVehicleJourney{{
				DatedVehicleJourneyRef: &feed.Ref{Value: "night-ride"},
				PublishedLineName:      []feed.LocalizedString{{Value: "BBB999"}},
				EstimatedCalls: &feed.EstimatedCalls{Calls: []feed.EstimatedCall{{
					Order:              1,
					StopPointName:      []feed.LocalizedString{{Value: "Montpellier Sabines"}},
					AimedDepartureTime: "2025-04-11T23:45:00 +0200",
				}}},
			}},
		}},
	}}}
	nightData, err := json.Marshal(&nightEnvelope)
	require.NoError(t, err)
	_, err = blobs.Save(context.Background(), "blablabus_night_2025-04-11.json", nightData)
	require.NoError(t, err)

	// 2. Serve the live feed as a zip archive. The night ride is absent from
	// it, as it would be once the live feed stops reporting night journeys.
	livePayload := `{
		"estimatedTimetableDelivery": [{
			"estimatedJourneyVersionFrame": [{
				"estimatedVehicleJourney": [
					{
						"datedVehicleJourneyRef": {"value": "live-ride"},
						"publishedLineName": [{"value": "BBB123"}],
						"estimatedCalls": {"estimatedCall": [
							{
								"order": 1,
								"stopPointName": [{"value": "Paris Bercy"}],
								"aimedDepartureTime": "2025-04-11T14:00:00 +0200"
							},
							{
								"order": 2,
								"stopPointRef": {"value": "stop-sabines"},
								"stopPointName": [{"value": "Montpellier Sabines"}],
								"aimedDepartureTime": "2025-04-11T20:05:00 +0200",
								"expectedDepartureTime": "2025-04-11T20:11:00 +0200"
							}
						]}
					},
					{
						"datedVehicleJourneyRef": {"value": "other-city"},
						"estimatedCalls": {"estimatedCall": [{
							"order": 1,
							"stopPointName": [{"value": "Lyon Perrache"}],
							"aimedDepartureTime": "2025-04-11T18:00:00 +0200"
						}]}
					}
				]
			}]
		}]
	}`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create("timetable.json")
	require.NoError(t, err)
	_, err = entry.Write([]byte(livePayload))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var fetchCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetchCount++
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	// 3. Wire the services the way main does.
	matcher := extract.NewStopMatcher([]string{"montpellier", "sabine"})
	brand := model.Brand{ID: "blablabus-id", Name: "BlaBlaBus"}
	station := model.Station{ID: "station-1", Name: "Montpellier - Sabines Bus Station", Timezone: "Europe/Paris"}

	fetcher := feed.NewFetcher(server.URL, 5*time.Second, zerolog.Nop(), nil)
	extractor := extract.NewExtractor(matcher, brand, zerolog.Nop())
	nightSvc := night.NewService(fetcher, blobs, matcher, zerolog.Nop(), nil)
	svc := departures.NewService(fetcher, nightSvc, extractor, departures.NewCache(), station, zerolog.Nop(), nil)

	// 4. First request: night ride is merged in ahead of the live ride, the
	// other-city journey is filtered out.
	resp, err := svc.GetDepartures(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, resp.Rides, 2)

	nightRide := resp.Rides[0]
	assert.Equal(t, "night-ride", nightRide.ID)
	assert.True(t, nightRide.TheoreticalSchedule.IsTheoretical)
	assert.Equal(t, model.ScheduleTypeTheoretical, nightRide.TheoreticalSchedule.ScheduleType)
	assert.Equal(t, "2025-04-11T23:45:00+02:00", nightRide.Status.ScheduledTimestamp)

	liveRide := resp.Rides[1]
	assert.Equal(t, "live-ride", liveRide.ID)
	assert.False(t, liveRide.TheoreticalSchedule.IsTheoretical)
	assert.Equal(t, 360, liveRide.Status.Deviation.DeviationSeconds)
	assert.Equal(t, model.DeviationLate, liveRide.Status.Deviation.DeviationClass)
	require.Len(t, liveRide.Calls, 2)

	// 5. A second request inside the cache window must not hit upstream.
	again, err := svc.GetDepartures(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fetchCount)
	assert.Equal(t, resp.Rides, again.Rides)

	// 6. Range filtering keeps only the evening ride.
	from := time.Date(2025, 4, 11, 19, 0, 0, 0, time.FixedZone("", 2*3600))
	to := time.Date(2025, 4, 11, 21, 0, 0, 0, time.FixedZone("", 2*3600))
	filtered, err := svc.GetDepartures(context.Background(), &from, &to)
	require.NoError(t, err)
	require.Len(t, filtered.Rides, 1)
	assert.Equal(t, "live-ride", filtered.Rides[0].ID)
}
