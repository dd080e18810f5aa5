package backend

import (
	"time"

	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/eventlog"
	"github.com/wansing/docflow/workflow"
)

type handleJSON struct {
	ID           string       `json:"id"`
	Path         string       `json:"path"`
	DocType      string       `json:"doctype"`
	Summary      core.Summary `json:"summary"`
	OriginalPath string       `json:"original_path,omitempty"`
	Revision     int64        `json:"revision"`
	Created      time.Time    `json:"created"`
}

func newHandleJSON(h *core.Handle) *handleJSON {
	if h == nil {
		return nil
	}
	return &handleJSON{
		ID:           h.ID,
		Path:         h.Path,
		DocType:      h.DocType,
		Summary:      h.Summary,
		OriginalPath: h.OriginalPath,
		Revision:     h.Revision,
		Created:      h.Created,
	}
}

type variantJSON struct {
	ID           string            `json:"id"`
	State        core.State        `json:"state"`
	Holder       string            `json:"holder,omitempty"`
	Availability []string          `json:"availability"`
	Content      string            `json:"content"`
	Properties   map[string]string `json:"properties,omitempty"`
	Creator      string            `json:"creator"`
	Created      time.Time         `json:"created"`
	Modifier     string            `json:"modifier,omitempty"`
	Modified     time.Time         `json:"modified"`
}

func newVariantJSON(v *core.Variant) *variantJSON {
	if v == nil {
		return nil
	}
	return &variantJSON{
		ID:           v.ID,
		State:        v.State,
		Holder:       v.Holder,
		Availability: v.Availability,
		Content:      v.Content,
		Properties:   v.Properties,
		Creator:      v.Creator,
		Created:      v.Created,
		Modifier:     v.Modifier,
		Modified:     v.Modified,
	}
}

type requestJSON struct {
	ID        string           `json:"id"`
	Type      core.RequestType `json:"type"`
	Scheduled *time.Time       `json:"scheduled,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Username  string           `json:"username"`
	Created   time.Time        `json:"created"`
}

func newRequestJSON(r *core.Request) *requestJSON {
	if r == nil {
		return nil
	}
	var result = &requestJSON{
		ID:       r.ID,
		Type:     r.Type,
		Reason:   r.Reason,
		Username: r.Username,
		Created:  r.Created,
	}
	if !r.Scheduled.IsZero() {
		result.Scheduled = &r.Scheduled
	}
	return result
}

type snapshotJSON struct {
	Created    time.Time         `json:"created"`
	Labels     []string          `json:"labels"`
	State      core.State        `json:"state"`
	Content    string            `json:"content"`
	Properties map[string]string `json:"properties,omitempty"`
}

type documentJSON struct {
	Handle   *handleJSON    `json:"handle"`
	Variants []*variantJSON `json:"variants"`
	Requests []*requestJSON `json:"requests"`
	Workflow workflow.Kind  `json:"workflow,omitempty"`
	Hints    workflow.Hints `json:"hints,omitempty"`
}

// variantOrder lists the states in the order of the response.
var variantOrder = []core.State{core.Draft, core.Unpublished, core.Published, core.Deleted}

func newDocumentJSON(doc *core.Document) *documentJSON {
	var result = &documentJSON{
		Handle:   newHandleJSON(doc.Handle),
		Variants: []*variantJSON{},
		Requests: []*requestJSON{},
	}
	for _, state := range variantOrder {
		if v := doc.Variants[state]; v != nil {
			result.Variants = append(result.Variants, newVariantJSON(v))
		}
	}
	for _, r := range doc.Requests {
		result.Requests = append(result.Requests, newRequestJSON(r))
	}
	return result
}

type eventJSON struct {
	Seq    int64     `json:"seq"`
	Time   time.Time `json:"time"`
	User   string    `json:"user"`
	Class  string    `json:"class"`
	Method string    `json:"method"`
	Args   string    `json:"args,omitempty"`
	Result string    `json:"result,omitempty"`
	Path   string    `json:"path,omitempty"`
	Error  string    `json:"error,omitempty"`
}

func newEventJSON(e *eventlog.Entry) eventJSON {
	return eventJSON{
		Seq:    e.Seq,
		Time:   e.Time,
		User:   e.User,
		Class:  e.Class,
		Method: e.Method,
		Args:   e.Args,
		Result: e.Result,
		Path:   e.Path,
		Error:  e.Error,
	}
}
