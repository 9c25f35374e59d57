package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

// manualDriver hands the job back to the test instead of waiting on a clock.
type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsPipelineOnTrigger(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	source := stubSource{articles: []domain.Article{
		rawArticle("https://x.com/a", "Scheduled story", "", domain.CategoryAI, published),
	}}
	notifier := &recordingNotifier{}
	p := NewPipeline(PipelineDeps{Source: source, Store: store, Notifier: notifier})

	driver := &manualDriver{}
	s := NewScheduler(driver, p, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(runTime)
	assert.Len(t, store.days[testDay], 1)
	assert.Len(t, notifier.messages, 1)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
