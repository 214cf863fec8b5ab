package usecases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOtpFixture(lifetime time.Duration) (*OtpService, *fakeOtpStore, *fakeUserStore) {
	users := newFakeUserStore()
	store := newFakeOtpStore(users)
	return NewOtpService(store, "test-secret", lifetime), store, users
}

func TestOtpVerifyOnce(t *testing.T) {
	svc, _, users := newOtpFixture(DefaultOtpLifetime)
	_, err := users.Create("200", "+254700000200", "salt", "hash")
	require.NoError(t, err)

	code, recordID, err := svc.CreateAndStore("200")
	require.NoError(t, err)
	require.NotZero(t, recordID)
	require.Len(t, code, 6)

	assert.True(t, svc.Verify("200", code))
	assert.False(t, svc.Verify("200", code), "a consumed code never verifies again")
}

func TestOtpWrongCode(t *testing.T) {
	svc, _, users := newOtpFixture(DefaultOtpLifetime)
	users.Create("201", "", "salt", "hash")

	code, _, err := svc.CreateAndStore("201")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	assert.False(t, svc.Verify("201", wrong))
	// The right code is still intact afterwards.
	assert.True(t, svc.Verify("201", code))
}

func TestOtpExpired(t *testing.T) {
	svc, _, users := newOtpFixture(-time.Minute)
	users.Create("202", "", "salt", "hash")

	code, _, err := svc.CreateAndStore("202")
	require.NoError(t, err)
	assert.False(t, svc.Verify("202", code))
}

func TestOtpUnknownIdentity(t *testing.T) {
	svc, _, _ := newOtpFixture(DefaultOtpLifetime)

	_, recordID, err := svc.CreateAndStore("203")
	require.NoError(t, err)
	assert.Zero(t, recordID)
}

func TestOtpLatestCodeWins(t *testing.T) {
	svc, _, users := newOtpFixture(DefaultOtpLifetime)
	users.Create("204", "", "salt", "hash")

	first, _, err := svc.CreateAndStore("204")
	require.NoError(t, err)
	second, _, err := svc.CreateAndStore("204")
	require.NoError(t, err)

	assert.True(t, svc.Verify("204", second))
	if first != second {
		assert.True(t, svc.Verify("204", first), "older unconsumed codes stay valid until expiry")
	}
}

func TestGenerateCodeFormat(t *testing.T) {
	svc, _, _ := newOtpFixture(DefaultOtpLifetime)

	for i := 0; i < 20; i++ {
		code, err := svc.GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9')
		}
	}
}
