package task

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/maestroship/maestro/pkg/engine"
)

func TestPullStreamsProgressAndSucceeds(t *testing.T) {
	client := &fakeClient{
		pullEvents: []engine.PullEvent{
			{ID: "layer1", ProgressCurrent: 50, ProgressTotal: 100},
			{ID: "layer1", ProgressCurrent: 100, ProgressTotal: 100},
		},
	}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)

	err := tk.Pull(context.Background(), Registries{})
	assert.NilError(t, err)
	assert.Equal(t, client.pullCalls, 1)

	texts := writer.texts()
	assert.Assert(t, len(texts) > 0)
	assert.Equal(t, texts[len(texts)-1], "pulled")
}

func TestPullPropagatesStreamError(t *testing.T) {
	client := &fakeClient{
		pullEvents: []engine.PullEvent{{Error: "manifest not found"}},
	}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)

	err := tk.Pull(context.Background(), Registries{})
	assert.ErrorContains(t, err, "manifest not found")
}

func TestPullPropagatesEngineError(t *testing.T) {
	client := &fakeClient{pullErr: errDbFailed{}}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)

	err := tk.Pull(context.Background(), Registries{})
	assert.ErrorContains(t, err, "db failed")
}
