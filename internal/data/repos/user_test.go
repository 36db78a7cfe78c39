package repos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/data/repos/testutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
)

func TestUserRepo_CreateAndLookup(t *testing.T) {
	database := testutil.DB(t)
	repo := NewUserRepo(database, testutil.Logger(t))
	dbc := dbctx.Background()

	created, err := repo.Create(dbc, &domain.User{Name: "Ann", PhoneNumber: "15550000001"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.False(t, created.HasConsented())

	byPhone, err := repo.GetByPhone(dbc, "15550000001")
	require.NoError(t, err)
	require.NotNil(t, byPhone)
	require.Equal(t, created.ID, byPhone.ID)

	missing, err := repo.GetByPhone(dbc, "19990000000")
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, repo.SetConsented(dbc, created.ID, time.Now().UTC()))
	got, err := repo.GetByID(dbc, created.ID)
	require.NoError(t, err)
	require.True(t, got.HasConsented())
}

func TestUserRepo_AnonymizeInPlace(t *testing.T) {
	database := testutil.DB(t)
	repo := NewUserRepo(database, testutil.Logger(t))
	dbc := dbctx.Background()

	user := testutil.SeedUser(t, database, "Ann", "15550000001")
	require.NoError(t, repo.SetStripeCustomerID(dbc, user.ID, "cus_123"))
	require.NoError(t, repo.Anonymize(dbc, user.ID))

	got, err := repo.GetByID(dbc, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got, "row must survive anonymization")
	require.True(t, got.IsDeleted())
	require.Equal(t, "Deleted User", got.Name)
	require.NotContains(t, got.PhoneNumber, "15550000001")
	require.Empty(t, got.StripeCustomerID)
}
