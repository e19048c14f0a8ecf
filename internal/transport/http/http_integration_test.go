//go:build integration

package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/kafka_transformer/internal/domain"
	"github.com/Gunvolt24/kafka_transformer/internal/ports/mocks"
	pgrepo "github.com/Gunvolt24/kafka_transformer/internal/repo/postgres"
	"github.com/Gunvolt24/kafka_transformer/internal/testutil"
	rest "github.com/Gunvolt24/kafka_transformer/internal/transport/http"
	"github.com/Gunvolt24/kafka_transformer/pkg/logger"
)

// GET /failures поверх Postgres-журнала.
func TestHTTP_Failures_Postgres_TC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, stop, err := testutil.StartPostgresTC(ctx)
	require.NoError(t, err)
	defer func() { _ = stop(context.Background()) }()
	require.NoError(t, testutil.ApplyMigrationsGoose(pg.DSN))

	logg, cleanup, err := logger.NewZapLogger(false, "info")
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	journal := pgrepo.NewFailureJournal(pg.Pool)
	for off := int64(0); off < 3; off++ {
		require.NoError(t, journal.Record(ctx, domain.Failure{
			Stage: "transform", Topic: "events-in", Offset: off, Error: "boom",
			At: time.Now().Add(time.Duration(off) * time.Second),
		}))
	}

	h := rest.NewHandler(mocks.NewMockEngine(gomock.NewController(t)), journal, logg, 2*time.Second)
	ts := httptest.NewServer(rest.NewRouter(h, ""))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/failures?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Items []domain.Failure `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Items, 2)
	require.Equal(t, int64(2), got.Items[0].Offset)
}
