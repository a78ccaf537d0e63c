package repositories

import (
	"testing"
	"time"

	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQRRow feeds fixed column values to scanQRCodeRow
type fakeQRRow struct {
	status string
	err    error
}

func (f fakeQRRow) Scan(dest ...interface{}) error {
	if f.err != nil {
		return f.err
	}

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	*dest[0].(*string) = "7b0c1f1e-5a55-4a59-9d2c-6a2f7c3e9b10"
	*dest[1].(*string) = "deadbeef"
	*dest[2].(*string) = "V1"
	*dest[3].(*string) = "p2"
	*dest[4].(*string) = f.status
	*dest[5].(*time.Time) = created.Add(5 * time.Minute)
	*dest[6].(*time.Time) = created
	*dest[7].(**time.Time) = nil
	return nil
}

func TestScanQRCodeRow(t *testing.T) {
	code, err := scanQRCodeRow(fakeQRRow{status: "active"})
	require.NoError(t, err)
	assert.Equal(t, models.QRStatusActive, code.Status)
	assert.Equal(t, "p2", code.Page)
	assert.Nil(t, code.UsedAt)
}

func TestScanQRCodeRow_RejectsUnknownStatus(t *testing.T) {
	code, err := scanQRCodeRow(fakeQRRow{status: "pending"})
	require.Error(t, err)
	assert.Nil(t, code)
	assert.Contains(t, err.Error(), `"pending"`)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}

func TestScanQRCodeRow_NoRowsIsNotFound(t *testing.T) {
	_, err := scanQRCodeRow(fakeQRRow{err: pgx.ErrNoRows})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
