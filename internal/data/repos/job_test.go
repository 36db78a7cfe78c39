package repos

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/data/repos/testutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
)

func TestJobRepo_AcceptIsExclusive(t *testing.T) {
	database := testutil.DB(t)
	repo := NewJobRepo(database, testutil.Logger(t))
	dbc := dbctx.Background()

	poster := testutil.SeedUser(t, database, "Poster", "15550000001")
	seekerA := testutil.SeedUser(t, database, "Seeker A", "15550000002")
	seekerB := testutil.SeedUser(t, database, "Seeker B", "15550000003")
	cat := testutil.SeedCategory(t, database, "pet care")
	job := testutil.SeedJob(t, database, poster.ID, cat.ID, domain.StatusPosted, domain.PaymentAuthorized)

	won, err := repo.Accept(dbc, job.ID, seekerA.ID)
	require.NoError(t, err)
	require.True(t, won, "first acceptance should win")

	won, err = repo.Accept(dbc, job.ID, seekerB.ID)
	require.NoError(t, err)
	require.False(t, won, "second acceptance must lose the guard")

	got, err := repo.GetByID(dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAccepted, got.Status)
	require.NotNil(t, got.AcceptedBy)
	require.Equal(t, seekerA.ID, *got.AcceptedBy, "first acceptance must never be overwritten")
}

func TestJobRepo_AcceptIsExclusiveUnderContention(t *testing.T) {
	database := testutil.DB(t)
	// One connection so sqlite cannot reject a racer with a busy error; the
	// guarded update still decides the winner.
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewJobRepo(database, testutil.Logger(t))
	dbc := dbctx.Background()

	poster := testutil.SeedUser(t, database, "Poster", "15550000001")
	seekerA := testutil.SeedUser(t, database, "Seeker A", "15550000002")
	seekerB := testutil.SeedUser(t, database, "Seeker B", "15550000003")
	cat := testutil.SeedCategory(t, database, "pet care")
	job := testutil.SeedJob(t, database, poster.ID, cat.ID, domain.StatusPosted, domain.PaymentAuthorized)

	type outcome struct {
		won bool
		err error
	}
	start := make(chan struct{})
	results := make(chan outcome, 2)
	var wg sync.WaitGroup
	for _, seekerID := range []int{seekerA.ID, seekerB.ID} {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			<-start
			won, acceptErr := repo.Accept(dbc, job.ID, id)
			results <- outcome{won: won, err: acceptErr}
		}(seekerID)
	}
	close(start)
	wg.Wait()
	close(results)

	winners := 0
	for res := range results {
		require.NoError(t, res.err)
		if res.won {
			winners++
		}
	}
	require.Equal(t, 1, winners, "exactly one concurrent acceptance may win")

	got, err := repo.GetByID(dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAccepted, got.Status)
	require.NotNil(t, got.AcceptedBy)
}

func TestJobRepo_AcceptRequiresAuthorizedPayment(t *testing.T) {
	database := testutil.DB(t)
	repo := NewJobRepo(database, testutil.Logger(t))
	dbc := dbctx.Background()

	poster := testutil.SeedUser(t, database, "Poster", "15550000001")
	seeker := testutil.SeedUser(t, database, "Seeker", "15550000002")
	cat := testutil.SeedCategory(t, database, "pet care")
	job := testutil.SeedJob(t, database, poster.ID, cat.ID, domain.StatusPosted, domain.PaymentUnpaid)

	won, err := repo.Accept(dbc, job.ID, seeker.ID)
	require.NoError(t, err)
	require.False(t, won, "unpaid job must not be acceptable")
}

func TestJobRepo_ConfirmPaymentIsIdempotent(t *testing.T) {
	database := testutil.DB(t)
	repo := NewJobRepo(database, testutil.Logger(t))
	dbc := dbctx.Background()

	poster := testutil.SeedUser(t, database, "Poster", "15550000001")
	cat := testutil.SeedCategory(t, database, "pet care")
	job := testutil.SeedJob(t, database, poster.ID, cat.ID, domain.StatusPosted, domain.PaymentUnpaid)

	applied, err := repo.ConfirmPayment(dbc, job.ID, 7, "pi_123")
	require.NoError(t, err)
	require.True(t, applied)

	// duplicate webhook delivery
	applied, err = repo.ConfirmPayment(dbc, job.ID, 9, "pi_456")
	require.NoError(t, err)
	require.False(t, applied, "second delivery must be a no-op")

	got, err := repo.GetByID(dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentAuthorized, got.PaymentStatus)
	require.Equal(t, domain.StatusPosted, got.Status)
	require.NotNil(t, got.AddressID)
	require.Equal(t, 7, *got.AddressID)
	require.Equal(t, "pi_123", got.PaymentIntentID)
}

func TestJobRepo_CompletionTransitions(t *testing.T) {
	database := testutil.DB(t)
	repo := NewJobRepo(database, testutil.Logger(t))
	dbc := dbctx.Background()

	poster := testutil.SeedUser(t, database, "Poster", "15550000001")
	accepter := testutil.SeedUser(t, database, "Accepter", "15550000002")
	stranger := testutil.SeedUser(t, database, "Stranger", "15550000003")
	cat := testutil.SeedCategory(t, database, "pet care")

	job := testutil.SeedJob(t, database, poster.ID, cat.ID, domain.StatusPosted, domain.PaymentAuthorized)
	won, err := repo.Accept(dbc, job.ID, accepter.ID)
	require.NoError(t, err)
	require.True(t, won)

	// a stranger has neither relationship
	ok, err := repo.CompleteByPoster(dbc, job.ID, stranger.ID)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = repo.MarkPendingReview(dbc, job.ID, stranger.ID)
	require.NoError(t, err)
	require.False(t, ok)

	// accepter marks complete first: accepted → pending_review
	ok, err = repo.MarkPendingReview(dbc, job.ID, accepter.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// accepter cannot re-apply
	ok, err = repo.MarkPendingReview(dbc, job.ID, accepter.ID)
	require.NoError(t, err)
	require.False(t, ok)

	// poster confirms: pending_review → completed
	ok, err = repo.CompleteByPoster(dbc, job.ID, poster.ID)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.GetByID(dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, got.Status)
}

func TestJobRepo_SearchOpenOnlyDiscoverable(t *testing.T) {
	database := testutil.DB(t)
	repo := NewJobRepo(database, testutil.Logger(t))
	dbc := dbctx.Background()

	poster := testutil.SeedUser(t, database, "Poster", "15550000001")
	seeker := testutil.SeedUser(t, database, "Seeker", "15550000002")
	pets := testutil.SeedCategory(t, database, "pet care")
	lawn := testutil.SeedCategory(t, database, "lawn care")

	discoverable := testutil.SeedJob(t, database, poster.ID, pets.ID, domain.StatusPosted, domain.PaymentAuthorized)
	testutil.SeedJob(t, database, poster.ID, pets.ID, domain.StatusPosted, domain.PaymentUnpaid)
	testutil.SeedJob(t, database, poster.ID, pets.ID, domain.StatusPending, domain.PaymentUnpaid)
	testutil.SeedJob(t, database, poster.ID, lawn.ID, domain.StatusPosted, domain.PaymentAuthorized)
	own := testutil.SeedJob(t, database, seeker.ID, pets.ID, domain.StatusPosted, domain.PaymentAuthorized)

	accepted := testutil.SeedJob(t, database, poster.ID, pets.ID, domain.StatusPosted, domain.PaymentAuthorized)
	_, err := repo.Accept(dbc, accepted.ID, seeker.ID)
	require.NoError(t, err)

	jobs, err := repo.SearchOpen(dbc, pets.ID, seeker.ID, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, discoverable.ID, jobs[0].ID)
	require.NotEqual(t, own.ID, jobs[0].ID)
}

func TestJobRepo_AccountDeletionPaths(t *testing.T) {
	database := testutil.DB(t)
	repo := NewJobRepo(database, testutil.Logger(t))
	dbc := dbctx.Background()

	poster := testutil.SeedUser(t, database, "Poster", "15550000001")
	accepter := testutil.SeedUser(t, database, "Accepter", "15550000002")
	cat := testutil.SeedCategory(t, database, "pet care")

	open := testutil.SeedJob(t, database, poster.ID, cat.ID, domain.StatusPosted, domain.PaymentAuthorized)
	done := testutil.SeedJob(t, database, poster.ID, cat.ID, domain.StatusCompleted, domain.PaymentCaptured)

	taken := testutil.SeedJob(t, database, poster.ID, cat.ID, domain.StatusPosted, domain.PaymentAuthorized)
	won, err := repo.Accept(dbc, taken.ID, accepter.ID)
	require.NoError(t, err)
	require.True(t, won)

	// accepter leaves: their accepted jobs revert to posted
	n, err := repo.ReleaseByAccepter(dbc, accepter.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	released, err := repo.GetByID(dbc, taken.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPosted, released.Status)
	require.Nil(t, released.AcceptedBy)

	// poster leaves: unfinished jobs are tombstoned, completed jobs untouched
	n, err = repo.DeleteOpenByPoster(dbc, poster.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	gone, err := repo.GetByID(dbc, open.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDeleted, gone.Status)

	kept, err := repo.GetByID(dbc, done.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, kept.Status)
}

func TestJobRepo_LinkCheckoutAndCapture(t *testing.T) {
	database := testutil.DB(t)
	repo := NewJobRepo(database, testutil.Logger(t))
	dbc := dbctx.Background()

	poster := testutil.SeedUser(t, database, "Poster", "15550000001")
	cat := testutil.SeedCategory(t, database, "pet care")
	job := testutil.SeedJob(t, database, poster.ID, cat.ID, domain.StatusPending, domain.PaymentUnpaid)

	ok, err := repo.LinkCheckout(dbc, job.ID, "cs_test_1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.LinkCheckout(dbc, job.ID, "cs_test_2")
	require.NoError(t, err)
	require.False(t, ok, "checkout can only be linked from pending")

	byPayment, err := repo.GetByPaymentID(dbc, "cs_test_1")
	require.NoError(t, err)
	require.NotNil(t, byPayment)
	require.Equal(t, job.ID, byPayment.ID)

	// capture requires an authorized payment
	ok, err = repo.MarkCaptured(dbc, job.ID, "tr_1")
	require.NoError(t, err)
	require.False(t, ok)

	applied, err := repo.ConfirmPayment(dbc, job.ID, 0, "pi_1")
	require.NoError(t, err)
	require.True(t, applied)

	ok, err = repo.MarkCaptured(dbc, job.ID, "tr_1")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.GetByID(dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentCaptured, got.PaymentStatus)
	require.Equal(t, "tr_1", got.PaymentTransferID)
}

func TestJobRepo_ExpireStaleUnpaid(t *testing.T) {
	database := testutil.DB(t)
	repo := NewJobRepo(database, testutil.Logger(t))
	dbc := dbctx.Background()

	poster := testutil.SeedUser(t, database, "Poster", "15550000001")
	cat := testutil.SeedCategory(t, database, "pet care")

	stale := testutil.SeedJob(t, database, poster.ID, cat.ID, domain.StatusPosted, domain.PaymentUnpaid)
	require.NoError(t, database.Model(stale).Update("created_at", time.Now().UTC().Add(-48*time.Hour)).Error)

	fresh := testutil.SeedJob(t, database, poster.ID, cat.ID, domain.StatusPosted, domain.PaymentUnpaid)
	paid := testutil.SeedJob(t, database, poster.ID, cat.ID, domain.StatusPosted, domain.PaymentAuthorized)
	require.NoError(t, database.Model(paid).Update("created_at", time.Now().UTC().Add(-48*time.Hour)).Error)

	n, err := repo.ExpireStaleUnpaid(dbc, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := repo.GetByID(dbc, stale.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDeleted, got.Status)

	got, err = repo.GetByID(dbc, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPosted, got.Status)

	got, err = repo.GetByID(dbc, paid.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPosted, got.Status)
}
