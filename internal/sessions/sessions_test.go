package sessions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"navlens/internal/sessions"
	"navlens/internal/testsupport"
	"navlens/internal/visitors"
)

const testFingerprint = "0123456789abcdef0123456789abcdef"

func fullMeta() visitors.SessionMeta {
	return visitors.SessionMeta{
		Fingerprint: testFingerprint,
		IPAddress:   "93.184.216.34",
		Browser:     "Chrome",
		Version:     "120.0",
		System:      "Windows",
		Platform:    "desktop",
		Model:       "",
		Arch:        "x86",
		Screen:      "1920x1080",
		Language:    "en-us",
	}
}

func TestUpsert(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	t.Run("creates the session on first contact", func(t *testing.T) {
		testsupport.CleanAllTables(db)
		site := testsupport.CreateTestSite(t, db, "demo.example.com")

		require.NoError(t, sessions.Upsert(db, logger, site.ID, fullMeta()))

		got, err := sessions.GetByFingerprint(db, site.ID, testFingerprint)
		require.NoError(t, err)
		assert.Equal(t, "Chrome", got.Browser)
		assert.Equal(t, "desktop", got.Platform)
		assert.Equal(t, "en-us", got.Language)
	})

	t.Run("replaying the same fingerprint never duplicates", func(t *testing.T) {
		testsupport.CleanAllTables(db)
		site := testsupport.CreateTestSite(t, db, "demo.example.com")

		require.NoError(t, sessions.Upsert(db, logger, site.ID, fullMeta()))
		require.NoError(t, sessions.Upsert(db, logger, site.ID, fullMeta()))

		count, err := sessions.CountForSite(db, site.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("sparse replay keeps earlier values", func(t *testing.T) {
		testsupport.CleanAllTables(db)
		site := testsupport.CreateTestSite(t, db, "demo.example.com")

		require.NoError(t, sessions.Upsert(db, logger, site.ID, fullMeta()))

		sparse := visitors.SessionMeta{
			Fingerprint: testFingerprint,
			Screen:      "390x844",
		}
		require.NoError(t, sessions.Upsert(db, logger, site.ID, sparse))

		got, err := sessions.GetByFingerprint(db, site.ID, testFingerprint)
		require.NoError(t, err)
		assert.Equal(t, "Chrome", got.Browser, "empty incoming browser must not erase the stored one")
		assert.Equal(t, "Windows", got.System)
		assert.Equal(t, "390x844", got.Screen, "supplied values still refresh")
	})

	t.Run("empty fingerprint is rejected", func(t *testing.T) {
		err := sessions.Upsert(db, logger, 1, visitors.SessionMeta{})
		assert.Error(t, err)
	})
}

func TestGetByFingerprint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	site := testsupport.CreateTestSite(t, db, "demo.example.com")

	require.NoError(t, sessions.Upsert(db, logger, site.ID, fullMeta()))

	t.Run("scoped to the site", func(t *testing.T) {
		_, err := sessions.GetByFingerprint(db, site.ID+1, testFingerprint)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("unknown fingerprint", func(t *testing.T) {
		_, err := sessions.GetByFingerprint(db, site.ID, "ffffffffffffffffffffffffffffffff")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}
