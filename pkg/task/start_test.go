package task

import (
	"context"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/maestroship/maestro/pkg/engine"
	"github.com/maestroship/maestro/pkg/entities"
)

func TestStartAlreadyRunningIsNoOp(t *testing.T) {
	client := &fakeClient{exists: true, running: true, startedAt: time.Now()}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)

	err := tk.Start(context.Background(), StartOptions{})
	assert.NilError(t, err)
	assert.Equal(t, client.createCalls, 0)
	assert.Equal(t, client.startCalls, 0)
}

func TestStartPreStartCheckFailureIsFatal(t *testing.T) {
	client := &fakeClient{}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)
	tk.Container.Lifecycle["pre-start"] = []entities.LifecycleCheck{fakeCheck{name: "tcp:never", result: false}}

	err := tk.Start(context.Background(), StartOptions{})
	assert.ErrorContains(t, err, "pre-start checks failed")
	assert.Equal(t, client.createCalls, 0)
}

func TestStartCreatesAndStartsWhenAbsent(t *testing.T) {
	client := &fakeClient{images: []engine.ImageRecord{{ID: "sha256:abc", Tags: []string{"org/web:latest"}}}}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)

	err := tk.Start(context.Background(), StartOptions{})
	assert.NilError(t, err)
	assert.Equal(t, client.createCalls, 1)
	assert.Equal(t, client.startCalls, 1)
	assert.Equal(t, client.pullCalls, 0) // image already present locally
}

func TestStartPullsWhenImageNotLocallyPresent(t *testing.T) {
	client := &fakeClient{}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)

	err := tk.Start(context.Background(), StartOptions{})
	assert.NilError(t, err)
	assert.Equal(t, client.pullCalls, 1)
	assert.Equal(t, client.createCalls, 1)
}

func TestStartReusesExistingStoppedContainerWhenReuse(t *testing.T) {
	client := &fakeClient{exists: true, running: false}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)

	err := tk.Start(context.Background(), StartOptions{Reuse: true})
	assert.NilError(t, err)
	assert.Equal(t, client.createCalls, 0)
	assert.Equal(t, client.removeCalls, 0)
	assert.Equal(t, client.startCalls, 1)
}

func TestStartCleansExistingContainerWhenNotReusing(t *testing.T) {
	client := &fakeClient{exists: true, running: false,
		images: []engine.ImageRecord{{ID: "sha256:abc", Tags: []string{"org/web:latest"}}}}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)

	err := tk.Start(context.Background(), StartOptions{Reuse: false})
	assert.NilError(t, err)
	assert.Equal(t, client.removeCalls, 1)
	assert.Equal(t, client.createCalls, 1)
}

func TestStartRunningCheckFailureIncludesLogTail(t *testing.T) {
	client := &fakeClient{logTail: "boom: crashed on startup"}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)
	tk.Container.Lifecycle["running"] = []entities.LifecycleCheck{fakeCheck{name: "tcp:never", result: false}}

	err := tk.Start(context.Background(), StartOptions{})
	assert.ErrorContains(t, err, "running checks failed")
	assert.ErrorContains(t, err, "boom: crashed on startup")
}
