package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"molequeue/internal/jobs"
	"molequeue/internal/logging"
)

type fakeResponse struct {
	kind    string
	names   []string
	jobID   int64
	code    ErrorCode
	message string
}

type fakeConn struct {
	id        string
	responses chan fakeResponse
	journal   *journal
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, responses: make(chan fakeResponse, 16)}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) SendQueueList(names []string) error {
	c.record("queueList")
	c.responses <- fakeResponse{kind: "queueList", names: names}
	return nil
}

func (c *fakeConn) SendSubmissionAccepted(jobID int64) error {
	c.record("submissionAccepted")
	c.responses <- fakeResponse{kind: "submissionAccepted", jobID: jobID}
	return nil
}

func (c *fakeConn) SendSubmissionRejected(code ErrorCode, message string) error {
	c.record("submissionRejected")
	c.responses <- fakeResponse{kind: "submissionRejected", code: code, message: message}
	return nil
}

func (c *fakeConn) SendCancellationAccepted(jobID int64) error {
	c.record("cancellationAccepted")
	c.responses <- fakeResponse{kind: "cancellationAccepted", jobID: jobID}
	return nil
}

func (c *fakeConn) SendCancellationRejected(code ErrorCode, message string) error {
	c.record("cancellationRejected")
	c.responses <- fakeResponse{kind: "cancellationRejected", code: code, message: message}
	return nil
}

func (c *fakeConn) record(event string) {
	if c.journal != nil {
		c.journal.append(event)
	}
}

func (c *fakeConn) next(t *testing.T) fakeResponse {
	t.Helper()
	select {
	case resp := <-c.responses:
		return resp
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
		return fakeResponse{}
	}
}

func (c *fakeConn) expectNone(t *testing.T) {
	t.Helper()
	select {
	case resp := <-c.responses:
		t.Fatalf("unexpected response %+v", resp)
	case <-time.After(100 * time.Millisecond):
	}
}

// journal records cross-component events in arrival order.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) append(event string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	cp := make([]string, len(j.events))
	copy(cp, j.events)
	return cp
}

type fakeQueue struct {
	name      string
	refuse    bool
	journal   *journal
	submitted chan *jobs.Job
	canceled  chan *jobs.Job
}

func newFakeQueue(name string) *fakeQueue {
	return &fakeQueue{
		name:      name,
		submitted: make(chan *jobs.Job, 16),
		canceled:  make(chan *jobs.Job, 16),
	}
}

func (q *fakeQueue) Name() string { return q.name }

func (q *fakeQueue) Submit(_ context.Context, job *jobs.Job) bool {
	if q.journal != nil {
		q.journal.append("queueSubmit")
	}
	q.submitted <- job
	return !q.refuse
}

func (q *fakeQueue) Cancel(_ context.Context, job *jobs.Job) bool {
	if job.IsTerminal() {
		return false
	}
	job.Status = jobs.StatusCanceled
	q.canceled <- job
	return true
}

type fakeDirectory struct {
	order  []string
	queues map[string]*fakeQueue
}

func newFakeDirectory(queues ...*fakeQueue) *fakeDirectory {
	dir := &fakeDirectory{queues: make(map[string]*fakeQueue)}
	for _, q := range queues {
		dir.order = append(dir.order, q.name)
		dir.queues[q.name] = q
	}
	return dir
}

func (d *fakeDirectory) Lookup(name string) (SubmittableQueue, bool) {
	q, ok := d.queues[name]
	if !ok {
		return nil, false
	}
	return q, true
}

func (d *fakeDirectory) Names() []string {
	return append([]string(nil), d.order...)
}

type fakeJobDirectory struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*jobs.Job
}

func newFakeJobDirectory() *fakeJobDirectory {
	return &fakeJobDirectory{byID: make(map[int64]*jobs.Job)}
}

func (d *fakeJobDirectory) NewJob(_ context.Context, spec jobs.Spec) (*jobs.Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	job := &jobs.Job{
		ID:        d.nextID,
		QueueName: spec.Queue,
		Program:   spec.Program,
		Status:    jobs.StatusAccepted,
	}
	d.byID[job.ID] = job
	return job, nil
}

func (d *fakeJobDirectory) GetByID(_ context.Context, id int64) (*jobs.Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	job, ok := d.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (d *fakeJobDirectory) Update(_ context.Context, job *jobs.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *job
	d.byID[job.ID] = &cp
	return nil
}

func (d *fakeJobDirectory) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byID)
}

type fakeNotifier struct {
	mu        sync.Mutex
	submitted []string
}

func (n *fakeNotifier) NotifyJobSubmitted(_ context.Context, jobID int64, queueName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, fmt.Sprintf("%d:%s", jobID, queueName))
	return nil
}

func (n *fakeNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.submitted...)
}

func startRouter(t *testing.T, queues QueueDirectory, jobDir JobDirectory) *Router {
	t.Helper()
	router := NewRouter(queues, jobDir, nil, 8, logging.NewNop())
	router.Start(context.Background())
	t.Cleanup(router.Stop)
	return router
}

func TestListQueuesReturnsDirectoryNames(t *testing.T) {
	dir := newFakeDirectory(newFakeQueue("local"), newFakeQueue("remote"))
	router := startRouter(t, dir, newFakeJobDirectory())

	conn := newFakeConn("conn-1")
	if err := router.Dispatch(conn, ListQueuesRequest{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	resp := conn.next(t)
	if resp.kind != "queueList" {
		t.Fatalf("response kind = %q, want queueList", resp.kind)
	}
	if len(resp.names) != 2 || resp.names[0] != "local" || resp.names[1] != "remote" {
		t.Fatalf("queue list = %v, want [local remote]", resp.names)
	}
}

func TestSubmissionAcknowledgedBeforeQueueSubmit(t *testing.T) {
	log := &journal{}
	q := newFakeQueue("local")
	q.journal = log
	router := startRouter(t, newFakeDirectory(q), newFakeJobDirectory())

	conn := newFakeConn("conn-1")
	conn.journal = log
	if err := router.Dispatch(conn, SubmitJobRequest{Spec: jobs.Spec{Queue: "local", Program: "orca"}}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	select {
	case <-q.submitted:
	case <-time.After(2 * time.Second):
		t.Fatal("queue never saw the job")
	}

	events := log.snapshot()
	if len(events) != 2 || events[0] != "submissionAccepted" || events[1] != "queueSubmit" {
		t.Fatalf("event order = %v, want [submissionAccepted queueSubmit]", events)
	}

	resp := conn.next(t)
	if resp.kind != "submissionAccepted" || resp.jobID == 0 {
		t.Fatalf("response = %+v, want submissionAccepted with job id", resp)
	}
}

func TestSubmitUnknownQueueRejectedWithoutSideEffects(t *testing.T) {
	q := newFakeQueue("local")
	jobDir := newFakeJobDirectory()
	router := startRouter(t, newFakeDirectory(q), jobDir)

	conn := newFakeConn("conn-1")
	if err := router.Dispatch(conn, SubmitJobRequest{Spec: jobs.Spec{Queue: "nope", Program: "orca"}}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	resp := conn.next(t)
	if resp.kind != "submissionRejected" {
		t.Fatalf("response kind = %q, want submissionRejected", resp.kind)
	}
	if resp.code != ErrInvalidQueue {
		t.Fatalf("code = %v, want ErrInvalidQueue", resp.code)
	}
	if !strings.Contains(resp.message, "nope") {
		t.Fatalf("message %q does not name the queue", resp.message)
	}
	if jobDir.count() != 0 {
		t.Fatal("rejected submission must not create a job")
	}
	select {
	case <-q.submitted:
		t.Fatal("queue must not see a rejected submission")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRefusedSubmissionMarkedFailedAfterAcknowledgement(t *testing.T) {
	q := newFakeQueue("local")
	q.refuse = true
	jobDir := newFakeJobDirectory()
	router := startRouter(t, newFakeDirectory(q), jobDir)

	conn := newFakeConn("conn-1")
	if err := router.Dispatch(conn, SubmitJobRequest{Spec: jobs.Spec{Queue: "local", Program: "orca"}}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	resp := conn.next(t)
	if resp.kind != "submissionAccepted" {
		t.Fatalf("response kind = %q, want submissionAccepted", resp.kind)
	}
	conn.expectNone(t)

	deadline := time.Now().Add(2 * time.Second)
	for {
		job, _ := jobDir.GetByID(context.Background(), resp.jobID)
		if job != nil && job.Status == jobs.StatusFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never marked failed: %+v", job)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCancelKnownJobAccepted(t *testing.T) {
	q := newFakeQueue("local")
	jobDir := newFakeJobDirectory()
	router := startRouter(t, newFakeDirectory(q), jobDir)

	job, err := jobDir.NewJob(context.Background(), jobs.Spec{Queue: "local", Program: "orca"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	conn := newFakeConn("conn-1")
	if err := router.Dispatch(conn, CancelJobRequest{JobID: job.ID}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	resp := conn.next(t)
	if resp.kind != "cancellationAccepted" || resp.jobID != job.ID {
		t.Fatalf("response = %+v, want cancellationAccepted for job %d", resp, job.ID)
	}
}

func TestCancelUnknownJobRejected(t *testing.T) {
	router := startRouter(t, newFakeDirectory(newFakeQueue("local")), newFakeJobDirectory())

	conn := newFakeConn("conn-1")
	if err := router.Dispatch(conn, CancelJobRequest{JobID: 777}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	resp := conn.next(t)
	if resp.kind != "cancellationRejected" {
		t.Fatalf("response kind = %q, want cancellationRejected", resp.kind)
	}
	if resp.code != ErrUnknownJob {
		t.Fatalf("code = %v, want ErrUnknownJob", resp.code)
	}
	if !strings.Contains(resp.message, "777") {
		t.Fatalf("message %q does not name the job", resp.message)
	}
}

func TestResponsesFollowOriginatingConnection(t *testing.T) {
	dir := newFakeDirectory(newFakeQueue("local"))
	router := startRouter(t, dir, newFakeJobDirectory())

	first := newFakeConn("conn-1")
	second := newFakeConn("conn-2")

	if err := router.Dispatch(first, SubmitJobRequest{Spec: jobs.Spec{Queue: "local", Program: "a"}}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := router.Dispatch(second, ListQueuesRequest{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := router.Dispatch(first, CancelJobRequest{JobID: 99}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if resp := first.next(t); resp.kind != "submissionAccepted" {
		t.Fatalf("first conn response = %q, want submissionAccepted", resp.kind)
	}
	if resp := first.next(t); resp.kind != "cancellationRejected" {
		t.Fatalf("first conn response = %q, want cancellationRejected", resp.kind)
	}
	first.expectNone(t)

	if resp := second.next(t); resp.kind != "queueList" {
		t.Fatalf("second conn response = %q, want queueList", resp.kind)
	}
	second.expectNone(t)
}

func TestEachRequestProducesExactlyOneResponse(t *testing.T) {
	dir := newFakeDirectory(newFakeQueue("local"))
	router := startRouter(t, dir, newFakeJobDirectory())

	conn := newFakeConn("conn-1")
	const n = 5
	for i := 0; i < n; i++ {
		if err := router.Dispatch(conn, SubmitJobRequest{Spec: jobs.Spec{Queue: "local", Program: fmt.Sprintf("p%d", i)}}); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
	}
	seen := make(map[int64]bool)
	for i := 0; i < n; i++ {
		resp := conn.next(t)
		if resp.kind != "submissionAccepted" {
			t.Fatalf("response kind = %q, want submissionAccepted", resp.kind)
		}
		if seen[resp.jobID] {
			t.Fatalf("duplicate response for job %d", resp.jobID)
		}
		seen[resp.jobID] = true
	}
	conn.expectNone(t)
}

func TestDispatchAfterStopFails(t *testing.T) {
	router := NewRouter(newFakeDirectory(newFakeQueue("local")), newFakeJobDirectory(), nil, 1, logging.NewNop())
	router.Start(context.Background())
	router.Stop()

	conn := newFakeConn("conn-1")
	if err := router.Dispatch(conn, ListQueuesRequest{}); err != ErrRouterStopped {
		t.Fatalf("Dispatch after stop = %v, want ErrRouterStopped", err)
	}
}

func TestDispatchAfterStopNeverEnqueues(t *testing.T) {
	// Buffered routers must refuse late requests deterministically; an
	// enqueue after Stop would never be answered.
	for i := 0; i < 500; i++ {
		router := NewRouter(newFakeDirectory(newFakeQueue("local")), newFakeJobDirectory(), nil, 8, logging.NewNop())
		router.Start(context.Background())
		router.Stop()

		conn := newFakeConn("conn-1")
		if err := router.Dispatch(conn, ListQueuesRequest{}); err != ErrRouterStopped {
			t.Fatalf("iteration %d: Dispatch after stop = %v, want ErrRouterStopped", i, err)
		}
		conn.expectNone(t)
	}
}

func TestSubmissionNotifierToldAfterDispatch(t *testing.T) {
	q := newFakeQueue("local")
	notifier := &fakeNotifier{}
	router := NewRouter(newFakeDirectory(q), newFakeJobDirectory(), notifier, 8, logging.NewNop())
	router.Start(context.Background())
	t.Cleanup(router.Stop)

	conn := newFakeConn("conn-1")
	if err := router.Dispatch(conn, SubmitJobRequest{Spec: jobs.Spec{Queue: "local", Program: "orca"}}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	resp := conn.next(t)
	if resp.kind != "submissionAccepted" {
		t.Fatalf("response kind = %q, want submissionAccepted", resp.kind)
	}

	want := fmt.Sprintf("%d:local", resp.jobID)
	deadline := time.Now().Add(2 * time.Second)
	for {
		seen := notifier.snapshot()
		if len(seen) == 1 && seen[0] == want {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("notifications = %v, want [%s]", seen, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubmissionNotifierSkippedOnRejection(t *testing.T) {
	notifier := &fakeNotifier{}
	router := NewRouter(newFakeDirectory(newFakeQueue("local")), newFakeJobDirectory(), notifier, 8, logging.NewNop())
	router.Start(context.Background())
	t.Cleanup(router.Stop)

	conn := newFakeConn("conn-1")
	if err := router.Dispatch(conn, SubmitJobRequest{Spec: jobs.Spec{Queue: "nope", Program: "orca"}}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp := conn.next(t); resp.kind != "submissionRejected" {
		t.Fatalf("response kind = %q, want submissionRejected", resp.kind)
	}
	if seen := notifier.snapshot(); len(seen) != 0 {
		t.Fatalf("rejected submission must not notify, got %v", seen)
	}
}
