package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"medication-adherence/internal/domain/readings"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/platform/storeerr"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	committed []int64
	closed    int
	cancel    context.CancelFunc

	fetchErrs  []error
	commitErrs []error
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafkago.Message{}, err
	}
	if len(r.msgs) == 0 {
		r.cancel()
		return kafkago.Message{}, context.Canceled
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commitErrs) > 0 {
		err := r.commitErrs[0]
		r.commitErrs = r.commitErrs[1:]
		return err
	}
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

type fakeRecorder struct {
	calls []readings.RecordInput
	errs  []error
}

func (f *fakeRecorder) Record(ctx context.Context, in readings.RecordInput) (readings.Record, bool, error) {
	f.calls = append(f.calls, in)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return readings.Record{}, false, err
		}
	}
	return readings.Record{ID: in.ID, ElderID: in.ElderID}, true, nil
}

func msg(offset int64, body string) kafkago.Message {
	return kafkago.Message{Offset: offset, Value: []byte(body)}
}

func newTestConsumer(r *fakeReader, rec Recorder) *Consumer {
	c := newConsumer(r, rec, logger.Nop())
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestConsumer_RecordsAndCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{cancel: cancel, msgs: []kafkago.Message{
		msg(1, `{"id":"r-1","elder_id":"e1","timestamp":"2025-05-20T08:00:00+07:00","systolic_bp":150}`),
		msg(2, `{not json`),
		msg(3, `{"id":"r-3","elder_id":"e1","timestamp":"2025-05-20T09:00:00+07:00","flagged_abnormal":true}`),
	}}
	rec := &fakeRecorder{}

	require.NoError(t, newTestConsumer(r, rec).Run(ctx))

	assert.Equal(t, []int64{1, 2, 3}, r.committed)
	assert.Equal(t, 1, r.closed)
	require.Len(t, rec.calls, 2)
	assert.Equal(t, readings.SourceKafka, rec.calls[0].Source)
	assert.Equal(t, 150, *rec.calls[0].SystolicBP)
	assert.Nil(t, rec.calls[0].FlaggedAbnormal)
	assert.True(t, *rec.calls[1].FlaggedAbnormal)
}

func TestConsumer_RetriesTransientErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{cancel: cancel, msgs: []kafkago.Message{
		msg(7, `{"id":"r-7","elder_id":"e1","timestamp":"2025-05-20T08:00:00Z","pulse":40}`),
	}}
	transient := fmt.Errorf("%w: timeout", storeerr.ErrTransient)
	rec := &fakeRecorder{errs: []error{transient, transient, nil}}

	require.NoError(t, newTestConsumer(r, rec).Run(ctx))
	assert.Len(t, rec.calls, 3)
	assert.Equal(t, []int64{7}, r.committed)
}

func TestConsumer_InvalidReadingIsDiscarded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{cancel: cancel, msgs: []kafkago.Message{
		msg(4, `{"id":"r-4","elder_id":"","timestamp":"2025-05-20T08:00:00Z"}`),
	}}
	rec := &fakeRecorder{errs: []error{readings.ErrInvalidInput}}

	require.NoError(t, newTestConsumer(r, rec).Run(ctx))
	assert.Equal(t, []int64{4}, r.committed)
}

func TestConsumer_KeepsRetryingFailedReadingUntilRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{cancel: cancel, msgs: []kafkago.Message{
		msg(9, `{"id":"r-9","elder_id":"e1","timestamp":"2025-05-20T08:00:00Z","pulse":40}`),
		msg(10, `{"id":"r-10","elder_id":"e1","timestamp":"2025-05-20T09:00:00Z","pulse":41}`),
	}}
	boom := errors.New("disk full")
	rec := &fakeRecorder{errs: []error{boom, boom, nil, nil}}

	c := newTestConsumer(r, rec)
	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	require.NoError(t, c.Run(ctx))

	require.Len(t, rec.calls, 4)
	assert.Equal(t, "r-9", rec.calls[0].ID)
	assert.Equal(t, "r-9", rec.calls[2].ID)
	assert.Equal(t, "r-10", rec.calls[3].ID)
	assert.Equal(t, []int64{9, 10}, r.committed)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
	assert.Equal(t, 1, r.closed)
}

func TestConsumer_SurvivesFetchAndCommitErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{
		cancel:     cancel,
		fetchErrs:  []error{errors.New("broker unavailable")},
		commitErrs: []error{errors.New("rebalance in progress")},
		msgs: []kafkago.Message{
			msg(5, `{"id":"r-5","elder_id":"e1","timestamp":"2025-05-20T08:00:00Z","systolic_bp":120}`),
		},
	}
	rec := &fakeRecorder{}

	c := newTestConsumer(r, rec)
	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	require.NoError(t, c.Run(ctx))

	// el commit fallido vuelve a registrar el mismo mensaje
	require.Len(t, rec.calls, 2)
	assert.Equal(t, "r-5", rec.calls[1].ID)
	assert.Equal(t, []int64{5}, r.committed)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, waits)
}

func TestConsumer_BackoffIsCapped(t *testing.T) {
	r := &fakeReader{cancel: func() {}}
	c := newTestConsumer(r, &fakeRecorder{})

	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	for i := 1; i <= 8; i++ {
		require.NoError(t, c.pause(context.Background(), i, "fetch message", errors.New("x")))
	}

	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second, 30 * time.Second,
	}, waits)
}

func TestConsumer_StopsWhenCanceledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{cancel: cancel, msgs: []kafkago.Message{
		msg(9, `{"id":"r-9","elder_id":"e1","timestamp":"2025-05-20T08:00:00Z","pulse":40}`),
	}}
	rec := &fakeRecorder{errs: []error{errors.New("disk full")}}

	c := newTestConsumer(r, rec)
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	require.NoError(t, c.Run(ctx))
	assert.Empty(t, r.committed)
	assert.Len(t, rec.calls, 1)
	assert.Equal(t, 1, r.closed)
}
