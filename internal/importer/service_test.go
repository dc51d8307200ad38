package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuptia/admin/internal/couple"
)

// fakeCreator records creation requests and fails the emails listed in failOn.
type fakeCreator struct {
	mu       sync.Mutex
	requests []couple.CreateRequest
	failOn   map[string]bool
	delay    time.Duration
}

func (f *fakeCreator) CreateCouple(_ context.Context, req couple.CreateRequest) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failOn[req.Email] {
		return errors.New("duplicate email")
	}
	return nil
}

func (f *fakeCreator) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func csvFile(rows ...string) string {
	return "name,email,phone,partner1_name,partner2_name,wedding_date,budget,vibe_tags,venue_name,guest_count,venue_city,venue_state\n" +
		strings.Join(rows, "\n") + "\n"
}

func TestRun_OneOutcomePerRowInOrder(t *testing.T) {
	creator := &fakeCreator{}
	svc := NewService(creator, Options{})

	var rows []string
	for i := 0; i < 7; i++ {
		rows = append(rows, fmt.Sprintf("Couple %d,c%d@example.com", i, i))
	}

	runID, err := svc.StartRun(context.Background(), "couples.csv", csvFile(rows...))
	require.NoError(t, err)

	result, err := svc.Result(runID)
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 7)
	for i, o := range result.Outcomes {
		assert.Equal(t, fmt.Sprintf("Couple %d", i), o.Name)
		assert.Equal(t, StatusSuccess, o.Status)
	}
	assert.Equal(t, 7, result.TotalRows)
	assert.Equal(t, 7, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 7, creator.requestCount())
}

func TestRun_FailedRowDoesNotHaltRun(t *testing.T) {
	creator := &fakeCreator{failOn: map[string]bool{"b@example.com": true}}
	svc := NewService(creator, Options{})

	runID, err := svc.StartRun(context.Background(), "couples.csv", csvFile(
		"A,a@example.com",
		"B,b@example.com",
		"C,c@example.com",
	))
	require.NoError(t, err)

	result, err := svc.Result(runID)
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, StatusSuccess, result.Outcomes[0].Status)
	assert.Equal(t, StatusFailed, result.Outcomes[1].Status)
	assert.Equal(t, StatusSuccess, result.Outcomes[2].Status)
	assert.Equal(t, 3, creator.requestCount(), "all rows must be attempted")
	assert.Equal(t, 1, result.Failed)
}

func TestRun_AllFailedStillCompletes(t *testing.T) {
	creator := &fakeCreator{failOn: map[string]bool{
		"a@example.com": true,
		"b@example.com": true,
	}}
	svc := NewService(creator, Options{})

	runID, err := svc.StartRun(context.Background(), "couples.csv", csvFile(
		"A,a@example.com",
		"B,b@example.com",
	))
	require.NoError(t, err)

	result, err := svc.Result(runID)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.NotEmpty(t, result.Notification, "completion notification fires even when every row failed")

	progress, err := svc.Progress(runID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, progress.State)
	assert.Equal(t, 100, progress.Percent)
}

func TestRun_ProgressMonotoneEndingAt100(t *testing.T) {
	creator := &fakeCreator{delay: time.Millisecond}
	svc := NewService(creator, Options{})

	var rows []string
	for i := 0; i < 9; i++ {
		rows = append(rows, fmt.Sprintf("Couple %d,c%d@example.com", i, i))
	}

	runID, err := svc.StartRun(context.Background(), "couples.csv", csvFile(rows...))
	require.NoError(t, err)

	ch, err := svc.SubscribeProgress(runID)
	require.NoError(t, err)

	var percents []int
	for p := range ch {
		percents = append(percents, p.Percent)
	}

	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1],
			"progress must be non-decreasing: %v", percents)
	}

	final, err := svc.Progress(runID)
	require.NoError(t, err)
	assert.Equal(t, 100, final.Percent)
	assert.Equal(t, 9, final.Completed)
}

func TestRun_FreshStatePerRun(t *testing.T) {
	creator := &fakeCreator{failOn: map[string]bool{"bad@example.com": true}}
	svc := NewService(creator, Options{})

	first, err := svc.StartRun(context.Background(), "first.csv", csvFile(
		"A,a@example.com",
		"Bad,bad@example.com",
	))
	require.NoError(t, err)
	_, err = svc.Result(first)
	require.NoError(t, err)

	second, err := svc.StartRun(context.Background(), "second.csv", csvFile(
		"C,c@example.com",
	))
	require.NoError(t, err)

	result, err := svc.Result(second)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	require.Len(t, result.Outcomes, 1, "no outcomes leak from a previous run")
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.TotalRows)
}

func TestStartRun_NoDataRows(t *testing.T) {
	svc := NewService(&fakeCreator{}, Options{})

	_, err := svc.StartRun(context.Background(), "empty.csv", "name,email\n\n  \n")
	require.Error(t, err)
}

func TestStartRun_LimiterRejectsWhenFull(t *testing.T) {
	creator := &fakeCreator{delay: 200 * time.Millisecond}
	svc := NewService(creator, Options{
		MaxConcurrent: 1,
		MaxWaitTime:   20 * time.Millisecond,
	})

	first, err := svc.StartRun(context.Background(), "first.csv", csvFile("A,a@example.com"))
	require.NoError(t, err)

	_, err = svc.StartRun(context.Background(), "second.csv", csvFile("B,b@example.com"))
	require.ErrorIs(t, err, ErrTooManyImports)

	_, err = svc.Result(first)
	require.NoError(t, err)
}

func TestResult_UnknownRun(t *testing.T) {
	svc := NewService(&fakeCreator{}, Options{})

	_, err := svc.Result("no-such-run")
	require.Error(t, err)
	_, err = svc.Progress("no-such-run")
	require.Error(t, err)
}

func TestPercentDone(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 10, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // round, not truncate
		{10, 10, 100},
		{0, 0, 0},
	}

	for _, tt := range tests {
		if got := percentDone(tt.completed, tt.total); got != tt.want {
			t.Errorf("percentDone(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}
