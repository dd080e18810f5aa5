package workflow

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/metrics"
)

func TestRoundTrip(t *testing.T) {
	f := newFixture(t, Config{})
	f.m.Metrics = metrics.New(prometheus.NewRegistry())
	h := f.published("first", "v1")

	wf := f.basic(h, f.editor)

	draft, err := wf.ObtainEditableInstance(bg)
	require.NoError(t, err)
	assert.Equal(t, "v1", draft.Content)

	_, err = wf.UpdateEditableInstance(bg, "v1,", nil)
	require.NoError(t, err)

	unpublished, err := wf.CommitEditableInstance(bg)
	require.NoError(t, err)
	assert.Equal(t, core.Unpublished, unpublished.State)
	assert.Equal(t, "v1,", unpublished.Content)

	r, err := wf.RequestPublication(bg, time.Time{})
	require.NoError(t, err)
	doc := f.load(h.ID)
	require.Len(t, doc.Requests, 1)
	assert.Equal(t, core.RequestPublish, doc.Requests[0].Type)

	published, err := f.request(r, f.publisher).AcceptRequest(bg)
	require.NoError(t, err)
	assert.Equal(t, core.Published, published.State)

	doc = f.load(h.ID)
	assert.Equal(t, "v1,", doc.Published().Content)
	assert.Nil(t, doc.Unpublished())
	assert.Empty(t, doc.Requests)

	// the prior published content is in the history
	vwf := f.version(h, f.editor)
	entries, err := vwf.List(bg)
	require.NoError(t, err)
	var contents []string
	for _, e := range entries {
		s, err := vwf.Retrieve(bg, e.Created)
		require.NoError(t, err)
		require.NotNil(t, s)
		contents = append(contents, s.Content)
	}
	assert.Equal(t, []string{"v1", "v1,"}, contents)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.Metrics.RequestsAccepted.WithLabelValues("publish")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.Metrics.WorkflowCallsTotal.WithLabelValues(string(KindRequest), "acceptRequest", "ok")))
}

func TestAcceptRequiresPublisher(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.published("first", "v1")
	r, err := f.basic(h, f.editor).RequestDepublication(bg, time.Time{})
	require.NoError(t, err)

	_, err = f.request(r, f.editor).AcceptRequest(bg)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = f.request(r, f.editor2).RejectRequest(bg, "no")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	hints, err := f.request(r, f.editor).Hints(bg)
	require.NoError(t, err)
	assert.False(t, hints["acceptRequest"])
	assert.True(t, hints["cancelRequest"])

	hints, err = f.request(r, f.publisher).Hints(bg)
	require.NoError(t, err)
	assert.True(t, hints["acceptRequest"])
	assert.True(t, hints["rejectRequest"])
	assert.False(t, hints["cancelRequest"])

	v, err := f.request(r, f.publisher).AcceptRequest(bg)
	require.NoError(t, err)
	assert.Equal(t, core.Unpublished, v.State)
	assert.Nil(t, f.load(h.ID).Published())
}

func TestRejectRequest(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.add("/news", "first", "markdown", "v1", nil)
	r, err := f.basic(h, f.editor).RequestPublication(bg, time.Time{})
	require.NoError(t, err)

	rejected, err := f.request(r, f.publisher).RejectRequest(bg, "typos")
	require.NoError(t, err)
	assert.Equal(t, core.RequestRejected, rejected.Type)

	doc := f.load(h.ID)
	require.Len(t, doc.Requests, 1)
	assert.Equal(t, "typos", doc.Requests[0].Reason)
	assert.Nil(t, doc.PendingRequest())

	_, err = f.request(r, f.publisher).AcceptRequest(bg)
	assert.ErrorIs(t, err, core.ErrPrecondition)
	_, err = f.request(r, f.publisher).RejectRequest(bg, "again")
	assert.ErrorIs(t, err, core.ErrPrecondition)

	// the author may edit again
	f.edit(h, f.editor, "v2", nil)
	require.NoError(t, f.request(r, f.editor).CancelRequest(bg))
	assert.Empty(t, f.load(h.ID).Requests)
}

func TestCancelRequest(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.published("first", "v1")
	r, err := f.basic(h, f.editor).RequestDepublication(bg, time.Time{})
	require.NoError(t, err)

	err = f.request(r, f.editor2).CancelRequest(bg)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	err = f.request(r, f.publisher).CancelRequest(bg)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	require.NoError(t, f.request(r, f.admin).CancelRequest(bg))

	_, err = f.m.GetWorkflow(bg, CategoryDefault, core.RequestOf(r.ID), f.editor)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestScheduledRequest(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.published("first", "v1")
	f.edit(h, f.editor, "v2", nil)

	var at = f.now().Add(time.Hour)
	r, err := f.basic(h, f.editor).RequestPublication(bg, at)
	require.NoError(t, err)
	assert.True(t, r.Scheduled.Equal(at))

	_, err = f.request(r, f.publisher).AcceptRequest(bg)
	assert.ErrorIs(t, err, core.ErrPrecondition)

	accepted, err := f.m.AcceptDue(bg, at.Add(-time.Minute), f.publisher)
	require.NoError(t, err)
	assert.Empty(t, accepted)

	accepted, err = f.m.AcceptDue(bg, at.Add(time.Minute), f.publisher)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, r.ID, accepted[0].ID)

	doc := f.load(h.ID)
	assert.Equal(t, "v2", doc.Published().Content)
	assert.Empty(t, doc.Requests)
}

func TestAcceptDueReportsFailures(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.published("first", "v1")
	var at = f.now().Add(time.Hour)
	_, err := f.basic(h, f.editor).RequestDepublication(bg, at)
	require.NoError(t, err)

	accepted, err := f.m.AcceptDue(bg, at.Add(time.Minute), f.editor)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	assert.Empty(t, accepted)
	assert.NotNil(t, f.load(h.ID).Published())
}

func TestAcceptDeletionRequest(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.published("first", "v1")
	r, err := f.basic(h, f.editor).RequestDeletion(bg)
	require.NoError(t, err)

	v, err := f.request(r, f.publisher).AcceptRequest(bg)
	require.NoError(t, err)
	assert.Equal(t, core.Deleted, v.State)

	doc := f.load(h.ID)
	assert.True(t, doc.Handle.InAttic())
	assert.Empty(t, doc.Requests)
}
