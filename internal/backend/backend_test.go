package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earntracker/internal/config"
	"earntracker/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	app := config.Defaults()
	app.SQLiteDBPath = ":memory:"

	cfg, err := FromAppConfig(app)
	require.NoError(t, err)
	assert.Equal(t, MemoryReports, cfg.Reports)
	assert.Equal(t, "earntracker", cfg.AMQPExchange)

	app.ReportBackend = "csv"
	_, err = FromAppConfig(app)
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Reports: SheetsReports, SQLiteDBPath: "x.db"}
	assert.ErrorContains(t, cfg.Validate(), "Spreadsheet ID")

	cfg.GoogleSpreadsheetID = "id"
	assert.ErrorContains(t, cfg.Validate(), "GoogleCredentials")

	cfg.GoogleCredentialsJSON = "{}"
	assert.NoError(t, cfg.Validate())

	assert.Error(t, Config{Reports: MemoryReports}.Validate())
	assert.Equal(t, []string{"memory", "sheets"}, ReportTypeStrings())
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).Create(context.Background(), Config{
		Reports:      MemoryReports,
		SQLiteDBPath: ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	assert.Nil(t, res.Bus)
	assert.IsType(t, &memory.Store{}, res.Reports)
	require.NoError(t, res.Store.Ping(context.Background()))
}

func TestPublisherNilWhenBusDisabled(t *testing.T) {
	r := &Result{}
	assert.Nil(t, r.Publisher())
}
