// Package run_benchmark runs a memory benchmark on a build of chrome via
// swarming tasks.
//
// It builds the telemetry command line for a registered benchmark, wraps it
// in a swarming task request targeting the bot's device pool, and triggers
// or cancels those tasks.
package run_benchmark

import (
	"context"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	apipb "go.chromium.org/luci/swarming/proto/api_v2"
	"go.skia.org/infra/go/httputils"
	"go.skia.org/infra/go/skerr"
	"go.skia.org/infra/go/sklog"
	"go.skia.org/infra/go/swarming"
	swarmingv2 "go.skia.org/infra/go/swarming/v2"
	"golang.org/x/oauth2/google"
	"google.golang.org/grpc"
)

var runningStates = []string{
	swarming.TASK_STATE_PENDING,
	swarming.TASK_STATE_RUNNING,
}

// State is the state of a swarming task, e.g. swarming.TASK_STATE_COMPLETED.
type State string

// IsNoResource checks if a swarming task state has state NO_RESOURCE
func (s State) IsNoResource() bool {
	return string(s) == swarming.TASK_STATE_NO_RESOURCE
}

// IsTaskPending checks if a swarming task state is still pending
func (s State) IsTaskPending() bool {
	return string(s) == swarming.TASK_STATE_PENDING
}

// IsTaskFinished checks if a swarming task state is finished
func (s State) IsTaskFinished() bool {
	return !slices.Contains(runningStates, string(s))
}

// IsTaskSuccessful checks if a swarming task state is successful
func (s State) IsTaskSuccessful() bool {
	return string(s) == swarming.TASK_STATE_COMPLETED
}

// IsTaskTerminalFailure checks if a swarming task finished without
// completing the benchmark.
func (s State) IsTaskTerminalFailure() bool {
	return s.IsTaskFinished() && !s.IsTaskSuccessful()
}

// SwarmingClient is the part of the swarming Tasks API used to run
// benchmarks. swarmingv2.SwarmingV2Client satisfies it.
type SwarmingClient interface {
	NewTask(ctx context.Context, in *apipb.NewTaskRequest, opts ...grpc.CallOption) (*apipb.TaskRequestMetadataResponse, error)
	GetResult(ctx context.Context, in *apipb.TaskIdWithPerfRequest, opts ...grpc.CallOption) (*apipb.TaskResultResponse, error)
	CancelTask(ctx context.Context, in *apipb.TaskCancelRequest, opts ...grpc.CallOption) (*apipb.CancelResponse, error)
}

// NewSwarmingClient returns a swarming client for host. If client is nil one
// is created from the default token source.
func NewSwarmingClient(ctx context.Context, host string, client *http.Client) (SwarmingClient, error) {
	if client == nil {
		ts, err := google.DefaultTokenSource(ctx)
		if err != nil {
			return nil, skerr.Wrapf(err, "unable to fetch token source")
		}
		client = httputils.DefaultClientConfig().WithTokenSource(ts).With2xxOnly().Client()
	}
	return swarmingv2.NewDefaultClient(client, host), nil
}

// TaskRequest returns the swarming request that runs req on the build in
// casRef. An empty jobID is replaced by a random one.
func TaskRequest(jobID string, req BenchmarkRequest, casRef *apipb.CASReference) (*apipb.NewTaskRequest, error) {
	t, err := newTelemetryTest(req)
	if err != nil {
		return nil, skerr.Wrapf(err, "Failed to prepare benchmark test for execution")
	}
	if jobID == "" {
		jobID = uuid.New().String()
	}
	return createSwarmingRequest(swarmingRequestParams{
		jobID:      jobID,
		benchmark:  t.benchmark.Name,
		command:    t.GetCommand(),
		casRef:     casRef,
		dimensions: t.device.Dimensions,
		repeat:     t.benchmark.Repeat(),
	}), nil
}

// Run schedules iter swarming tasks that each run req.
func Run(ctx context.Context, sc SwarmingClient, jobID string, req BenchmarkRequest, casRef *apipb.CASReference, iter int) ([]*apipb.TaskRequestMetadataResponse, error) {
	swarmingRequest, err := TaskRequest(jobID, req, casRef)
	if err != nil {
		return nil, skerr.Wrap(err)
	}

	resp := make([]*apipb.TaskRequestMetadataResponse, 0, iter)
	for i := 0; i < iter; i++ {
		r, err := sc.NewTask(ctx, swarmingRequest)
		if err != nil {
			return nil, skerr.Wrapf(err, "benchmark task %d of %s failed to trigger", i, req.Benchmark)
		}
		sklog.Infof("Triggered %s on %s: task %s", req.Benchmark, req.Bot, r.GetTaskId())
		resp = append(resp, r)
	}

	return resp, nil
}

// Cancel cancels a swarming task, killing it if it is already running.
func Cancel(ctx context.Context, sc SwarmingClient, taskID string) error {
	_, err := sc.CancelTask(ctx, &apipb.TaskCancelRequest{
		TaskId:      taskID,
		KillRunning: true,
	})
	if err != nil {
		return skerr.Wrapf(err, "benchmark task %v cancellation failed", taskID)
	}

	return nil
}

// CancelAll cancels every task in taskIDs in parallel. All cancellations are
// attempted; the errors of the failed ones are returned together.
func CancelAll(ctx context.Context, sc SwarmingClient, taskIDs []string) error {
	g := multierror.Group{}
	for _, taskID := range taskIDs {
		g.Go(func() error {
			return Cancel(ctx, sc, taskID)
		})
	}
	return skerr.Wrap(g.Wait().ErrorOrNil())
}

// GetState returns the current state of a swarming task.
func GetState(ctx context.Context, sc SwarmingClient, taskID string) (State, error) {
	resp, err := sc.GetResult(ctx, &apipb.TaskIdWithPerfRequest{
		TaskId: taskID,
	})
	if err != nil {
		return "", skerr.Wrapf(err, "failed to get result of swarming task %s", taskID)
	}
	return State(resp.GetState().String()), nil
}
