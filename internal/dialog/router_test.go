package dialog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/data/repos/testutil"
)

func newRouter(t *testing.T) *Router {
	t.Helper()
	r, err := NewRouter(testutil.Logger(t))
	require.NoError(t, err)
	return r
}

func request(tag, session, text string, params map[string]interface{}) *WebhookRequest {
	return &WebhookRequest{
		FulfillmentInfo: FulfillmentInfo{Tag: tag},
		SessionInfo:     SessionInfo{Session: session, Parameters: params},
		Text:            text,
	}
}

func firstText(t *testing.T, resp *WebhookResponse) string {
	t.Helper()
	require.NotEmpty(t, resp.FulfillmentResponse.Messages)
	msg := resp.FulfillmentResponse.Messages[0]
	require.NotNil(t, msg.Text)
	require.NotEmpty(t, msg.Text.Text)
	return msg.Text.Text[0]
}

func TestDispatch_RoutesByTag(t *testing.T) {
	r := newRouter(t)

	var got *Turn
	require.NoError(t, r.Register("postJobDataSave", func(_ context.Context, turn *Turn) (*Result, error) {
		got = turn
		return TextResult("saved"), nil
	}))

	resp := r.Dispatch(context.Background(), request(
		"postJobDataSave",
		"projects/p/locations/global/agents/a/sessions/15550001111&0b906d8a-6b12-4efc-a2f0-05a1b8a9c1de",
		"yes",
		map[string]interface{}{"job_category": "pet care"},
	))

	require.Equal(t, "saved", firstText(t, resp))
	require.NotNil(t, got)
	require.Equal(t, "15550001111", got.Phone)
	require.Equal(t, "0b906d8a-6b12-4efc-a2f0-05a1b8a9c1de", got.ChatSessionID)
	require.Equal(t, "pet care", got.Parameters["job_category"])
}

func TestDispatch_UnknownTagIsExplicit(t *testing.T) {
	r := newRouter(t)
	require.NoError(t, r.Register("known", func(context.Context, *Turn) (*Result, error) {
		return TextResult("ok"), nil
	}))

	resp := r.Dispatch(context.Background(), request("mysteryTag", "sessions/15550001111", "", nil))
	require.Contains(t, firstText(t, resp), "mysteryTag")
}

func TestDispatch_HandlerErrorBecomesRetryMessage(t *testing.T) {
	r := newRouter(t)
	require.NoError(t, r.Register("boom", func(context.Context, *Turn) (*Result, error) {
		return nil, fmt.Errorf("db down")
	}))

	resp := r.Dispatch(context.Background(), request("boom", "sessions/15550001111", "", nil))
	got := firstText(t, resp)
	require.NotContains(t, got, "db down")
	require.Contains(t, got, "try again")
}

func TestRegister_DuplicateTagRejected(t *testing.T) {
	r := newRouter(t)
	h := func(context.Context, *Turn) (*Result, error) { return nil, nil }
	require.NoError(t, r.Register("tag", h))
	require.Error(t, r.Register("tag", h))
}

func TestCorrelationID_WithoutSessionPart(t *testing.T) {
	info := SessionInfo{Session: "projects/p/agents/a/sessions/15550001111"}
	phone, sessionID := info.CorrelationID()
	require.Equal(t, "15550001111", phone)
	require.Empty(t, sessionID)
}

func TestResult_ResponseCarriesParameters(t *testing.T) {
	result := TextResult("Minimum price is $10 for this job.").
		WithParameters(map[string]interface{}{"amount": nil})

	resp := result.Response()
	require.NotNil(t, resp.SessionInfo)
	require.Contains(t, resp.SessionInfo.Parameters, "amount")
	require.Nil(t, resp.SessionInfo.Parameters["amount"])
}
