package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/cuongbtq/deploy-orchestrator/shared/deployapi"
	"github.com/cuongbtq/deploy-orchestrator/shared/logger"
)

func testLogger() *slog.Logger {
	return logger.NewDiscard().Logger
}

// pollStep is one scripted answer of the status endpoint
type pollStep struct {
	status *deployapi.DeploymentStatus
	err    error
}

// st scripts a status with the given number of enumerable steps
func st(status string, steps int) pollStep {
	s := &deployapi.DeploymentStatus{Status: status}
	if steps > 0 {
		job := deployapi.DeploymentJob{Status: status}
		for i := 0; i < steps; i++ {
			job.Steps = append(job.Steps, deployapi.DeploymentStep{Name: fmt.Sprintf("step-%d", i)})
		}
		s.Jobs = []deployapi.DeploymentJob{job}
	}
	return pollStep{status: s}
}

func fail(err error) pollStep {
	return pollStep{err: err}
}

func intPtr(n int) *int {
	return &n
}

type logKey struct {
	step   int
	offset int
}

type fakeDeployment struct {
	script []pollStep
	polls  int
	pages  map[logKey]*deployapi.LogPage
	logErr error
}

type createCall struct {
	ref deployapi.StackRef
	req *deployapi.CreateDeploymentRequest
}

// fakeAPI is a scripted in-memory deployment service
type fakeAPI struct {
	mu          sync.Mutex
	deployments map[string]*fakeDeployment
	nextID      int
	ids         []string
	createErr   map[domain.WorkloadKind]error
	creates     []createCall
	logQueries  map[string][]deployapi.LogQuery
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		deployments: make(map[string]*fakeDeployment),
		createErr:   make(map[domain.WorkloadKind]error),
		logQueries:  make(map[string][]deployapi.LogQuery),
	}
}

func (f *fakeAPI) deployment(id string) *fakeDeployment {
	d, ok := f.deployments[id]
	if !ok {
		d = &fakeDeployment{pages: make(map[logKey]*deployapi.LogPage)}
		f.deployments[id] = d
	}
	return d
}

// script sets the status answers for id. The last answer repeats.
func (f *fakeAPI) script(id string, steps ...pollStep) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deployment(id).script = steps
}

// page serves lines for (step, offset). A nil next ends the step.
func (f *fakeAPI) page(id string, step, offset int, next *int, lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := &deployapi.LogPage{NextOffset: next}
	for _, l := range lines {
		p.Lines = append(p.Lines, deployapi.LogLine{Timestamp: "ts", Line: l})
	}
	f.deployment(id).pages[logKey{step, offset}] = p
}

func (f *fakeAPI) queries(id string) []deployapi.LogQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]deployapi.LogQuery(nil), f.logQueries[id]...)
}

func (f *fakeAPI) CreateDeployment(_ context.Context, ref deployapi.StackRef, req *deployapi.CreateDeploymentRequest) (*deployapi.CreateDeploymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.createErr[domain.WorkloadKind(ref.Project)]; err != nil {
		return nil, err
	}
	f.creates = append(f.creates, createCall{ref: ref, req: req})

	var id string
	if f.nextID < len(f.ids) {
		id = f.ids[f.nextID]
	} else {
		id = fmt.Sprintf("dep-%d", f.nextID+1)
	}
	f.nextID++

	return &deployapi.CreateDeploymentResponse{ID: id, ConsoleURL: "https://console/" + id}, nil
}

func (f *fakeAPI) GetDeployment(_ context.Context, ref deployapi.StackRef, id string) (*deployapi.DeploymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.deployments[id]
	if !ok || len(d.script) == 0 {
		return nil, &deployapi.RemoteCallError{Method: "GET", Path: id, StatusCode: 404}
	}

	idx := min(d.polls, len(d.script)-1)
	d.polls++
	step := d.script[idx]
	if step.err != nil {
		return nil, step.err
	}
	copied := *step.status
	return &copied, nil
}

func (f *fakeAPI) GetDeploymentLogs(_ context.Context, _ deployapi.StackRef, id string, query deployapi.LogQuery) (*deployapi.LogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logQueries[id] = append(f.logQueries[id], query)

	d := f.deployment(id)
	if d.logErr != nil {
		return nil, d.logErr
	}
	if p, ok := d.pages[logKey{query.Step, query.Offset}]; ok {
		return p, nil
	}
	return &deployapi.LogPage{}, nil
}

// recordingObserver captures every notification in order
type recordingObserver struct {
	mu     sync.Mutex
	events []string
	lines  map[string][]string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{lines: make(map[string][]string)}
}

func (r *recordingObserver) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingObserver) JobSubmitted(_ context.Context, job *domain.Job) {
	r.add("submitted " + job.ID)
}

func (r *recordingObserver) StatusChanged(_ context.Context, job *domain.Job, previous string) {
	r.add(fmt.Sprintf("status %s %s->%s", job.ID, previous, job.Status))
}

func (r *recordingObserver) LinesFetched(_ context.Context, job *domain.Job, lines []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[job.ID] = append(r.lines[job.ID], lines...)
}

func (r *recordingObserver) JobFinished(_ context.Context, job *domain.Job) {
	r.add("finished " + job.ID)
}

func (r *recordingObserver) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}
