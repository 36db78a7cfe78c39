package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/classifier"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/geocode"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/stripe"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/data/repos"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/data/repos/testutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/dialog"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/notify"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/errs"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/session"
)

// ---------- fakes ----------

type sentMessage struct {
	To  string
	Msg notify.Message
}

type fakeNotifier struct {
	sent []sentMessage
}

func (f *fakeNotifier) Send(_ context.Context, to string, msg notify.Message) error {
	f.sent = append(f.sent, sentMessage{To: to, Msg: msg})
	return nil
}

func (f *fakeNotifier) SendAll(ctx context.Context, to string, msgs []notify.Message) error {
	for _, m := range msgs {
		_ = f.Send(ctx, to, m)
	}
	return nil
}

func (f *fakeNotifier) sentTo(phone string) []notify.Message {
	var out []notify.Message
	for _, s := range f.sent {
		if s.To == phone {
			out = append(out, s.Msg)
		}
	}
	return out
}

type fakeStripe struct {
	customers int
	checkouts map[string]*stripe.CheckoutSession
	captured  []string
	transfers []stripe.TransferParams
	accounts  int
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{checkouts: map[string]*stripe.CheckoutSession{}}
}

func (f *fakeStripe) FindOrCreateCustomer(_ context.Context, name, phone string) (*stripe.Customer, error) {
	f.customers++
	return &stripe.Customer{ID: fmt.Sprintf("cus_%d", f.customers), Name: name, Phone: phone}, nil
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, in stripe.CheckoutParams) (*stripe.CheckoutSession, error) {
	id := fmt.Sprintf("cs_test_%d", len(f.checkouts)+1)
	sess := &stripe.CheckoutSession{
		ID:              id,
		URL:             "https://checkout.stripe.com/c/pay/" + id,
		PaymentStatus:   "unpaid",
		PaymentIntentID: "pi_" + id,
		Metadata: map[string]string{
			"job_id":           fmt.Sprintf("%d", in.JobID),
			"job_category":     in.JobCategory,
			"recipient_number": in.RecipientNumber,
			"user_id":          fmt.Sprintf("%d", in.UserID),
		},
		CustomerDetails: &stripe.CustomerDetails{
			Address: &stripe.BillingAddress{
				Line1:      "123 Main St.",
				City:       "San Diego",
				State:      "CA",
				PostalCode: "92101",
				Country:    "US",
			},
		},
	}
	f.checkouts[id] = sess
	return sess, nil
}

func (f *fakeStripe) GetCheckoutSession(_ context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	sess, ok := f.checkouts[sessionID]
	if !ok {
		return nil, fmt.Errorf("no such checkout %s", sessionID)
	}
	return sess, nil
}

func (f *fakeStripe) CapturePaymentIntent(_ context.Context, paymentIntentID string) (*stripe.PaymentIntent, error) {
	f.captured = append(f.captured, paymentIntentID)
	return &stripe.PaymentIntent{ID: paymentIntentID, Status: "succeeded"}, nil
}

func (f *fakeStripe) CreateConnectAccount(context.Context, string) (*stripe.Account, error) {
	f.accounts++
	return &stripe.Account{ID: fmt.Sprintf("acct_%d", f.accounts)}, nil
}

func (f *fakeStripe) CreateAccountLink(_ context.Context, accountID string) (*stripe.AccountLink, error) {
	return &stripe.AccountLink{URL: "https://connect.stripe.com/setup/" + accountID}, nil
}

func (f *fakeStripe) CreateTransfer(_ context.Context, in stripe.TransferParams) (*stripe.Transfer, error) {
	f.transfers = append(f.transfers, in)
	return &stripe.Transfer{ID: fmt.Sprintf("tr_%d", len(f.transfers))}, nil
}

type fakeGeocoder struct {
	places map[string]*geocode.Place
	err    error
}

func (f *fakeGeocoder) LookupZip(_ context.Context, zip string) (*geocode.Place, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.places[zip], nil
}

type fakeClassifier struct {
	suggestions []classifier.Suggestion
	err         error
}

func (f *fakeClassifier) Predict(context.Context, string) ([]classifier.Suggestion, error) {
	return f.suggestions, f.err
}

// ---------- harness ----------

type harness struct {
	engine   *Engine
	db       *gorm.DB
	dbc      dbctx.Context
	users    repos.UserRepo
	jobs     repos.JobRepo
	notifier *fakeNotifier
	stripe   *fakeStripe
	geocoder *fakeGeocoder
	class    *fakeClassifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	h := &harness{
		db:       db,
		dbc:      dbctx.Background(),
		users:    repos.NewUserRepo(db, log),
		jobs:     repos.NewJobRepo(db, log),
		notifier: &fakeNotifier{},
		stripe:   newFakeStripe(),
		geocoder: &fakeGeocoder{places: map[string]*geocode.Place{
			"92101": {Zip: "92101", City: "San Diego", State: "CA"},
		}},
		class: &fakeClassifier{suggestions: []classifier.Suggestion{
			{Category: "pet care", Confidence: 0.9},
		}},
	}

	sessions := repos.NewChatSessionRepo(db, log)
	resolver, err := session.NewResolver(log, sessions, time.Hour)
	require.NoError(t, err)

	h.engine, err = NewEngine(log, Config{
		MinPrice:    decimal.NewFromInt(10),
		PostingFee:  decimal.NewFromInt(3),
		SearchLimit: 10,
	}, Deps{
		Users:      h.users,
		Categories: repos.NewCategoryRepo(db, log),
		Addresses:  repos.NewAddressRepo(db, log),
		Jobs:       h.jobs,
		Sessions:   resolver,
		Stripe:     h.stripe,
		Geocoder:   h.geocoder,
		Classifier: h.class,
		Notifier:   h.notifier,
	})
	require.NoError(t, err)
	return h
}

func turnFor(phone, text string, params map[string]interface{}) *dialog.Turn {
	return &dialog.Turn{Phone: phone, Text: text, Parameters: params}
}

func completePostParams() map[string]interface{} {
	return map[string]interface{}{
		"job_description": "walk my dog",
		"job_category":    "pet care",
		"date":            map[string]interface{}{"year": 2025.0, "month": 6.0, "day": 10.0},
		"time":            map[string]interface{}{"hours": 10.0, "minutes": 0.0, "seconds": 0.0},
		"zip_code":        "92101",
		"location_data":   "San Diego, CA",
		"amount":          map[string]interface{}{"amount": 35.0, "currency": "USD"},
		"posting_fee":     3.0,
	}
}

// ---------- post-job flow ----------

func TestPostJobHappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	poster := testutil.SeedUser(t, h.db, "Alice", "15550000001")

	result, err := h.engine.handleSave(ctx, turnFor(poster.PhoneNumber, "yes", completePostParams()))
	require.NoError(t, err)
	require.NotEmpty(t, result.Messages)

	// The reply carries the escrow payment link as a link chip.
	payload := result.Messages[0].Payload
	require.NotNil(t, payload)

	job, err := h.jobs.GetByPaymentID(h.dbc, "cs_test_1")
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, domain.StatusPosted, job.Status)
	require.Equal(t, domain.PaymentUnpaid, job.PaymentStatus)
	require.Equal(t, "35.00", job.Amount.StringFixed(2))
	require.Equal(t, "3.00", job.PostingFee.StringFixed(2))
	require.False(t, job.Discoverable())

	// Checkout success authorizes the payment and makes the job discoverable.
	require.NoError(t, h.engine.HandlePaymentSuccess(ctx, "cs_test_1"))

	job, err = h.jobs.GetByID(h.dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentAuthorized, job.PaymentStatus)
	require.True(t, job.Discoverable())
	require.NotNil(t, job.AddressID)
	require.Equal(t, "pi_cs_test_1", job.PaymentIntentID)
	require.NotEmpty(t, h.notifier.sentTo(poster.PhoneNumber))

	seeker := testutil.SeedUser(t, h.db, "Bob", "15550000002")
	open, err := h.jobs.SearchOpen(h.dbc, 0, seeker.ID, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
}

func TestPaymentSuccess_DuplicateDeliveryIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	poster := testutil.SeedUser(t, h.db, "Alice", "15550000001")

	_, err := h.engine.handleSave(ctx, turnFor(poster.PhoneNumber, "yes", completePostParams()))
	require.NoError(t, err)

	require.NoError(t, h.engine.HandlePaymentSuccess(ctx, "cs_test_1"))
	notified := len(h.notifier.sentTo(poster.PhoneNumber))

	require.NoError(t, h.engine.HandlePaymentSuccess(ctx, "cs_test_1"))
	require.Equal(t, notified, len(h.notifier.sentTo(poster.PhoneNumber)))
}

func TestSave_SubMinimumRejectedWithoutRow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	poster := testutil.SeedUser(t, h.db, "Alice", "15550000001")

	params := completePostParams()
	params["amount"] = map[string]interface{}{"amount": 5.0}

	result, err := h.engine.handleSave(ctx, turnFor(poster.PhoneNumber, "yes", params))
	require.NoError(t, err)
	require.Equal(t, minPriceMessage, result.Messages[0].Text.Text[0])
	require.Contains(t, result.Parameters, "amount")
	require.Nil(t, result.Parameters["amount"])

	var count int64
	require.NoError(t, h.db.Model(&domain.Job{}).Count(&count).Error)
	require.Zero(t, count)
}

// ---------- validation ----------

func TestValidate_MinPricePrompt(t *testing.T) {
	h := newHarness(t)

	params := completePostParams()
	params["amount"] = map[string]interface{}{"amount": 9.99}

	result, err := h.engine.handleValidatePostJob(context.Background(), turnFor("15550000001", "", params))
	require.NoError(t, err)
	require.Equal(t, minPriceMessage, result.Messages[0].Text.Text[0])
	require.Nil(t, result.Parameters["amount"])
}

func TestValidate_UnknownZipCleared(t *testing.T) {
	h := newHarness(t)

	params := map[string]interface{}{"zip_code": "00000"}
	result, err := h.engine.handleValidatePostJob(context.Background(), turnFor("15550000001", "", params))
	require.NoError(t, err)
	require.Contains(t, result.Parameters, "zip_code")
	require.Nil(t, result.Parameters["zip_code"])
	require.Contains(t, result.Parameters, "location_data")
	require.Nil(t, result.Parameters["location_data"])
}

func TestValidate_ChangedZipDropsHeldLocation(t *testing.T) {
	h := newHarness(t)

	// A location was already derived, then the user sent a zip we cannot
	// place. The held location must follow the zip out instead of going stale.
	params := map[string]interface{}{
		"zip_code":      "00000",
		"location_data": "San Diego, CA",
	}
	result, err := h.engine.handleValidatePostJob(context.Background(), turnFor("15550000001", "", params))
	require.NoError(t, err)
	require.Contains(t, result.Parameters, "zip_code")
	require.Nil(t, result.Parameters["zip_code"])
	require.Contains(t, result.Parameters, "location_data")
	require.Nil(t, result.Parameters["location_data"])

	// A changed but valid zip re-derives the location.
	params = map[string]interface{}{
		"zip_code":      "92101",
		"location_data": "Old Town, XX",
	}
	result, err = h.engine.handleValidatePostJob(context.Background(), turnFor("15550000001", "", params))
	require.NoError(t, err)
	require.Equal(t, "San Diego, CA", result.Parameters["location_data"])
}

func TestValidate_KnownZipFillsLocation(t *testing.T) {
	h := newHarness(t)

	params := map[string]interface{}{"zip_code": 92101.0}
	result, err := h.engine.handleValidatePostJob(context.Background(), turnFor("15550000001", "", params))
	require.NoError(t, err)
	require.Equal(t, "San Diego, CA", result.Parameters["location_data"])
}

func TestValidate_GeocodeFailureIsAnError(t *testing.T) {
	h := newHarness(t)
	h.geocoder.err = fmt.Errorf("upstream timeout")

	params := map[string]interface{}{"zip_code": "92101"}
	_, err := h.engine.handleValidatePostJob(context.Background(), turnFor("15550000001", "", params))
	require.Error(t, err)
}

func TestValidate_TextAccumulation(t *testing.T) {
	h := newHarness(t)
	h.class.suggestions = nil

	params := map[string]interface{}{"job_description": "walk my dog"}
	result, err := h.engine.handleValidatePostJob(context.Background(),
		turnFor("15550000001", "he bites strangers", params))
	require.NoError(t, err)
	require.Equal(t, "walk my dog he bites strangers", result.Parameters["job_description"])

	// A bare confirmation never becomes description content.
	result, err = h.engine.handleValidatePostJob(context.Background(),
		turnFor("15550000001", "yes", params))
	require.NoError(t, err)
	require.NotContains(t, result.Parameters, "job_description")
}

func TestValidate_CategoryBranching(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	params := map[string]interface{}{"job_description": "walk my dog"}

	// Single suggestion fills the slot silently.
	h.class.suggestions = []classifier.Suggestion{{Category: "pet care", Confidence: 0.9}}
	result, err := h.engine.handleValidatePostJob(ctx, turnFor("15550000001", "", params))
	require.NoError(t, err)
	require.Equal(t, "pet care", result.Parameters["job_category"])

	// Two close suggestions become a disambiguation prompt.
	h.class.suggestions = []classifier.Suggestion{
		{Category: "pet care", Confidence: 0.5},
		{Category: "yard work", Confidence: 0.45},
	}
	result, err = h.engine.handleValidatePostJob(ctx, turnFor("15550000001", "", params))
	require.NoError(t, err)
	require.NotEmpty(t, result.Messages)
	require.NotContains(t, result.Parameters, "job_category")

	// A dominant leader is taken without asking.
	h.class.suggestions = []classifier.Suggestion{
		{Category: "pet care", Confidence: 0.8},
		{Category: "yard work", Confidence: 0.1},
	}
	result, err = h.engine.handleValidatePostJob(ctx, turnFor("15550000001", "", params))
	require.NoError(t, err)
	require.Equal(t, "pet care", result.Parameters["job_category"])

	// No suggestion leaves the slot empty so the dialogue re-asks.
	h.class.suggestions = nil
	result, err = h.engine.handleValidatePostJob(ctx, turnFor("15550000001", "", params))
	require.NoError(t, err)
	require.NotContains(t, result.Parameters, "job_category")
}

// ---------- accept / complete ----------

func seedDiscoverableJob(t *testing.T, h *harness, poster *domain.User) *domain.Job {
	t.Helper()
	cat := testutil.SeedCategory(t, h.db, "pet care")
	job := testutil.SeedJob(t, h.db, poster.ID, cat.ID, domain.StatusPosted, domain.PaymentAuthorized)
	require.NoError(t, h.db.Model(job).Update("payment_intent", "pi_seeded").Error)
	job.PaymentIntentID = "pi_seeded"
	return job
}

func TestAccept_MissingPosterIsNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	poster := testutil.SeedUser(t, h.db, "Alice", "15550000001")
	worker := testutil.SeedUser(t, h.db, "Bob", "15550000002")
	job := seedDiscoverableJob(t, h, poster)

	// The poster row vanished; the failure must say not-found, not wrap a
	// nil lookup error.
	require.NoError(t, h.db.Delete(&domain.User{}, poster.ID).Error)

	err := h.engine.AcceptJob(ctx, worker, job.ID)
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccept_ExactlyOneWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	poster := testutil.SeedUser(t, h.db, "Alice", "15550000001")
	first := testutil.SeedUser(t, h.db, "Bob", "15550000002")
	second := testutil.SeedUser(t, h.db, "Cara", "15550000003")
	job := seedDiscoverableJob(t, h, poster)

	require.NoError(t, h.engine.AcceptJob(ctx, first, job.ID))
	require.NoError(t, h.engine.AcceptJob(ctx, second, job.ID))

	got, err := h.jobs.GetByID(h.dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAccepted, got.Status)
	require.Equal(t, first.ID, *got.AcceptedBy)

	// Winner and poster were told; the loser got the "no longer available"
	// message with a refreshed listing.
	require.NotEmpty(t, h.notifier.sentTo(first.PhoneNumber))
	require.NotEmpty(t, h.notifier.sentTo(poster.PhoneNumber))
	loserMsgs := h.notifier.sentTo(second.PhoneNumber)
	require.Len(t, loserMsgs, 1)
	require.Contains(t, loserMsgs[0].Text, "no longer available")
}

func TestAccept_RequiresSomeoneElsesJob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	poster := testutil.SeedUser(t, h.db, "Alice", "15550000001")
	job := seedDiscoverableJob(t, h, poster)

	require.NoError(t, h.engine.AcceptJob(ctx, poster, job.ID))

	got, err := h.jobs.GetByID(h.dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPosted, got.Status)
	require.Contains(t, h.notifier.sentTo(poster.PhoneNumber)[0].Text, "cannot accept")
}

func TestCompletion_WorkerThenPosterReleasesEscrow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	poster := testutil.SeedUser(t, h.db, "Alice", "15550000001")
	worker := testutil.SeedUser(t, h.db, "Bob", "15550000002")
	job := seedDiscoverableJob(t, h, poster)

	require.NoError(t, h.engine.AcceptJob(ctx, worker, job.ID))

	// Worker reports done: job moves to pending review, poster gets the
	// confirm buttons.
	require.NoError(t, h.engine.MarkComplete(ctx, worker, job.ID))
	got, err := h.jobs.GetByID(h.dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingReview, got.Status)

	posterMsgs := h.notifier.sentTo(poster.PhoneNumber)
	confirmMsg := posterMsgs[len(posterMsgs)-1]
	require.Len(t, confirmMsg.Options, 2)
	require.Equal(t, fmt.Sprintf("confirm_complete_%d", job.ID), confirmMsg.Options[0].ID)

	// Poster confirms: completed, captured, payout account provisioned,
	// transfer sent.
	require.NoError(t, h.engine.MarkComplete(ctx, poster, job.ID))
	got, err = h.jobs.GetByID(h.dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, got.Status)
	require.Equal(t, domain.PaymentCaptured, got.PaymentStatus)

	require.Equal(t, []string{"pi_seeded"}, h.stripe.captured)
	require.Equal(t, 1, h.stripe.accounts)
	require.Len(t, h.stripe.transfers, 1)
	require.True(t, h.stripe.transfers[0].Amount.Equal(got.Amount))

	freshWorker, err := h.users.GetByID(h.dbc, worker.ID)
	require.NoError(t, err)
	require.NotEmpty(t, freshWorker.StripeConnectAccountID)
}

func TestCompletion_StrangerRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	poster := testutil.SeedUser(t, h.db, "Alice", "15550000001")
	worker := testutil.SeedUser(t, h.db, "Bob", "15550000002")
	stranger := testutil.SeedUser(t, h.db, "Mallory", "15550000003")
	job := seedDiscoverableJob(t, h, poster)
	require.NoError(t, h.engine.AcceptJob(ctx, worker, job.ID))

	require.NoError(t, h.engine.MarkComplete(ctx, stranger, job.ID))
	got, err := h.jobs.GetByID(h.dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAccepted, got.Status)
	require.Contains(t, h.notifier.sentTo(stranger.PhoneNumber)[0].Text, "Only the poster or the worker")
}

func TestRequestCompletion_Branching(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	poster := testutil.SeedUser(t, h.db, "Alice", "15550000001")
	worker := testutil.SeedUser(t, h.db, "Bob", "15550000002")

	// Nothing accepted yet.
	require.NoError(t, h.engine.RequestCompletion(ctx, worker))
	require.Contains(t, h.notifier.sentTo(worker.PhoneNumber)[0].Text, "no accepted jobs")

	// Two accepted jobs become a picker.
	jobA := seedDiscoverableJob(t, h, poster)
	jobB := seedDiscoverableJob(t, h, poster)
	require.NoError(t, h.engine.AcceptJob(ctx, worker, jobA.ID))
	require.NoError(t, h.engine.AcceptJob(ctx, worker, jobB.ID))
	h.notifier.sent = nil

	require.NoError(t, h.engine.RequestCompletion(ctx, worker))
	msgs := h.notifier.sentTo(worker.PhoneNumber)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].ListRows, 2)
	require.Equal(t, fmt.Sprintf("complete_job_%d", jobA.ID), msgs[0].ListRows[0].ID)
}

// ---------- account deletion ----------

func TestDeleteAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	leaver := testutil.SeedUser(t, h.db, "Alice", "15550000001")
	other := testutil.SeedUser(t, h.db, "Bob", "15550000002")

	cat := testutil.SeedCategory(t, h.db, "pet care")
	openJob := testutil.SeedJob(t, h.db, leaver.ID, cat.ID, domain.StatusPosted, domain.PaymentAuthorized)
	doneJob := testutil.SeedJob(t, h.db, leaver.ID, cat.ID, domain.StatusCompleted, domain.PaymentCaptured)
	acceptedElsewhere := seedDiscoverableJob(t, h, other)
	require.NoError(t, h.engine.AcceptJob(ctx, leaver, acceptedElsewhere.ID))

	require.NoError(t, h.engine.DeleteAccount(ctx, leaver))

	got, err := h.jobs.GetByID(h.dbc, openJob.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDeleted, got.Status)

	got, err = h.jobs.GetByID(h.dbc, doneJob.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, got.Status)

	got, err = h.jobs.GetByID(h.dbc, acceptedElsewhere.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPosted, got.Status)
	require.Nil(t, got.AcceptedBy)

	gone, err := h.users.GetByPhone(h.dbc, "15550000001")
	require.NoError(t, err)
	require.Nil(t, gone)
}

// ---------- reply parsing ----------

func TestReplyParsers(t *testing.T) {
	id, ok := ParseAcceptReply("accept_job_42")
	require.True(t, ok)
	require.Equal(t, 42, id)

	_, ok = ParseAcceptReply("accept_job_")
	require.False(t, ok)
	_, ok = ParseAcceptReply("complete_job_1")
	require.False(t, ok)

	id, ok = ParseCompleteReply("complete_job_7")
	require.True(t, ok)
	require.Equal(t, 7, id)

	id, ok = ParseConfirmReply("confirm_complete_9")
	require.True(t, ok)
	require.Equal(t, 9, id)

	id, ok = ParseNotDoneReply("not_done_3")
	require.True(t, ok)
	require.Equal(t, 3, id)
}
