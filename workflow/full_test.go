package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/eventlog"
)

func TestPublish(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.add("/news", "first", "markdown", "v1", nil)

	_, err := f.basic(h, f.editor).ObtainEditableInstance(bg)
	require.NoError(t, err)
	_, err = f.full(h, f.publisher).Publish(bg)
	assert.ErrorIs(t, err, core.ErrPrecondition, "draft exists")
	_, err = f.basic(h, f.editor).DisposeEditableInstance(bg)
	require.NoError(t, err)

	v, err := f.full(h, f.publisher).Publish(bg)
	require.NoError(t, err)
	assert.Equal(t, core.Published, v.State)

	doc := f.load(h.ID)
	assert.Nil(t, doc.Unpublished())
	assert.Equal(t, "v1", doc.Published().Content)
	assert.Equal(t, []string{core.Live, core.Preview}, doc.Published().Availability)
	assert.Equal(t, core.SummaryLive, doc.Handle.Summary)

	_, err = f.full(h, f.publisher).Publish(bg)
	assert.ErrorIs(t, err, core.ErrPrecondition, "nothing to publish")
}

func TestPublishRefusedWhileRequestPending(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.published("first", "v1")
	f.edit(h, f.editor, "v2", nil)
	_, err := f.basic(h, f.editor).RequestPublication(bg, time.Time{})
	require.NoError(t, err)

	_, err = f.full(h, f.publisher).Publish(bg)
	assert.ErrorIs(t, err, core.ErrPrecondition)
	_, err = f.full(h, f.publisher).Delete(bg)
	assert.ErrorIs(t, err, core.ErrPrecondition)
}

func TestDepublish(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.published("first", "v1")

	v, err := f.full(h, f.publisher).Depublish(bg)
	require.NoError(t, err)
	assert.Equal(t, core.Unpublished, v.State)
	assert.Equal(t, "v1", v.Content)

	doc := f.load(h.ID)
	assert.Nil(t, doc.Published())
	assert.Equal(t, []string{core.Preview}, doc.Unpublished().Availability)
	assert.Equal(t, core.SummaryNew, doc.Handle.Summary)

	_, err = f.full(h, f.publisher).Depublish(bg)
	assert.ErrorIs(t, err, core.ErrPrecondition)

	// with unpublished changes, the published variant is dropped
	_, err = f.full(h, f.publisher).Publish(bg)
	require.NoError(t, err)
	f.edit(h, f.editor, "v2", nil)
	v, err = f.full(h, f.publisher).Depublish(bg)
	require.NoError(t, err)
	assert.Equal(t, "v2", v.Content)
	doc = f.load(h.ID)
	assert.Len(t, doc.Variants, 1)
}

func TestEditorCannotPublish(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.add("/news", "first", "markdown", "v1", nil)

	// a full workflow obtained by a publisher does not help an editor
	wf := f.full(h, f.publisher)
	wf.user = f.editor
	_, err := wf.Publish(bg)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestDeleteToAttic(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.published("first", "v1")
	f.edit(h, f.editor, "v2", nil)

	// a rejected request does not block direct deletion, and is dropped
	r, err := f.basic(h, f.editor).RequestPublication(bg, time.Time{})
	require.NoError(t, err)
	_, err = f.request(r, f.publisher).RejectRequest(bg, "later")
	require.NoError(t, err)

	wf := f.full(h, f.publisher)
	v, err := wf.Delete(bg)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, core.Deleted, v.State)
	assert.Equal(t, "v2", v.Content)
	assert.True(t, strings.HasPrefix(wf.Path(), "/attic/first-"))

	doc := f.load(h.ID)
	assert.Equal(t, "/news/first", doc.Handle.OriginalPath)
	assert.Equal(t, core.SummaryDeleted, doc.Handle.Summary)
	assert.Len(t, doc.Variants, 1)
	assert.Empty(t, doc.Variants[core.Deleted].Availability)
	assert.Empty(t, doc.Requests)

	// the attic is handled by the default workflow
	def, ok := f.workflow(CategoryDefault, core.HandleOf(h.ID), f.editor).(*Default)
	require.True(t, ok)
	assert.Equal(t, KindDefault, def.Kind())

	hints, err := def.Hints(bg)
	require.NoError(t, err)
	assert.True(t, hints["restore"])
	assert.True(t, hints["delete"])
	assert.False(t, hints["rename"])

	restored, err := def.Restore(bg)
	require.NoError(t, err)
	assert.Equal(t, "/news/first", restored.Path)

	doc = f.load(h.ID)
	assert.False(t, doc.Handle.InAttic())
	assert.Equal(t, "v2", doc.Unpublished().Content)
	assert.Equal(t, core.SummaryNew, doc.Handle.Summary)

	// delete again, then remove from the attic
	_, err = f.full(h, f.publisher).Delete(bg)
	require.NoError(t, err)
	def = f.workflow(CategoryDefault, core.HandleOf(h.ID), f.editor).(*Default)
	require.NoError(t, def.Delete(bg))

	err = core.WithTx(bg, f.store, func(tx core.Tx) error {
		_, err := tx.GetHandle(bg, h.ID)
		return err
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRestoreOccupiedPath(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.published("first", "v1")
	_, err := f.full(h, f.publisher).Delete(bg)
	require.NoError(t, err)

	f.add("/news", "first", "markdown", "new", nil)

	_, err = f.workflow(CategoryDefault, core.HandleOf(h.ID), f.editor).(*Default).Restore(bg)
	assert.ErrorIs(t, err, core.ErrPrecondition)
}

func TestDeleteWithRetentionRemove(t *testing.T) {
	f := newFixture(t, Config{Retention: RetentionRemove})
	h := f.published("first", "v1")

	v, err := f.full(h, f.publisher).Delete(bg)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = f.m.GetWorkflow(bg, CategoryDefault, core.HandleOf(h.ID), f.publisher)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteForeignDraft(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.published("first", "v1")
	_, err := f.basic(h, f.editor).ObtainEditableInstance(bg)
	require.NoError(t, err)

	_, err = f.full(h, f.publisher).Delete(bg)
	assert.ErrorIs(t, err, core.ErrPrecondition)
}

func TestUnlock(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.published("first", "v1")

	editorWF := f.basic(h, f.editor)
	_, err := editorWF.ObtainEditableInstance(bg)
	require.NoError(t, err)

	_, err = f.full(h, f.publisher).Unlock(bg)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	v, err := f.full(h, f.admin).Unlock(bg)
	require.NoError(t, err)
	assert.Equal(t, core.Published, v.State)
	assert.Nil(t, f.load(h.ID).Draft())

	// the former holder's workflow is stale
	_, err = editorWF.CommitEditableInstance(bg)
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = f.full(h, f.admin).Unlock(bg)
	assert.ErrorIs(t, err, core.ErrPrecondition)
}

func TestConflict(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.add("/news", "first", "markdown", "v1", nil)

	publisherWF := f.full(h, f.publisher)
	editorWF := f.basic(h, f.editor)

	_, err := editorWF.ObtainEditableInstance(bg)
	require.NoError(t, err)

	_, err = publisherWF.Publish(bg)
	assert.ErrorIs(t, err, core.ErrConflict)

	// a fresh workflow sees the draft
	_, err = f.full(h, f.publisher).Publish(bg)
	assert.ErrorIs(t, err, core.ErrPrecondition)

	// the editor's workflow follows its own changes
	_, err = editorWF.UpdateEditableInstance(bg, "v2", nil)
	require.NoError(t, err)
	_, err = editorWF.CommitEditableInstance(bg)
	require.NoError(t, err)
	assert.Equal(t, f.load(h.ID).Handle.Revision, editorWF.revision)
}

func TestReentrancyLimit(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.add("/news", "first", "markdown", "v1", nil)

	var ctx = context.Background()
	for i := 0; i < 8; i++ {
		var err error
		ctx, err = enter(ctx, "test", 8)
		require.NoError(t, err)
	}

	_, err := f.basic(h, f.editor).ObtainEditableInstance(ctx)
	assert.ErrorIs(t, err, core.ErrReentrancy)

	ctx, err = enter(context.Background(), "test", 8)
	require.NoError(t, err)
	_, err = f.basic(h, f.editor).ObtainEditableInstance(ctx)
	assert.NoError(t, err)
}

func TestEventLog(t *testing.T) {
	f := newFixture(t, Config{})
	h := f.published("first", "v1")

	_, err := f.full(h, f.publisher).Publish(bg)
	require.Error(t, err)

	entries, err := f.events.Recent(bg, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3) // add, publish, failed publish

	assert.Equal(t, "publish", entries[0].Method)
	assert.Equal(t, string(KindFull), entries[0].Class)
	assert.Equal(t, "publisher", entries[0].User)
	assert.NotEmpty(t, entries[0].Error)

	assert.Equal(t, "publish", entries[1].Method)
	assert.Equal(t, "/news/first", entries[1].Path)
	assert.Empty(t, entries[1].Error)
	assert.Contains(t, entries[1].Result, `"Content":"v1"`)

	assert.Equal(t, "add", entries[2].Method)
	assert.Equal(t, string(KindFolder), entries[2].Class)
}

type failingEvents struct{}

func (failingEvents) AppendEvent(ctx context.Context, e *eventlog.Entry) error {
	return errors.New("disk full")
}

func (failingEvents) PruneEvents(ctx context.Context, keep int) (int64, error) {
	return 0, errors.New("disk full")
}

func (failingEvents) RecentEvents(ctx context.Context, limit int) ([]*eventlog.Entry, error) {
	return nil, errors.New("disk full")
}

func TestEventLogFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, Config{})
	f.m.Events = eventlog.New(failingEvents{}, eventlog.Config{MaxEntries: 10}, zerolog.Nop(), nil)

	h := f.published("first", "v1")
	assert.Equal(t, core.SummaryLive, f.load(h.ID).Handle.Summary)
}
