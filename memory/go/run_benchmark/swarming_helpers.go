package run_benchmark

import (
	"fmt"

	apipb "go.chromium.org/luci/swarming/proto/api_v2"
)

const ExecutionTimeoutSecs = 2700 // 45 min
const PendingTimeoutSecs = 86400  // 1 day

// Long running benchmarks repeat the story set up to 60 times, so they get
// a longer execution timeout.
const longRunningExecutionTimeoutSecs = 3 * 3600
const longRunningRepeatThreshold = 10

func convertDimensions(dimensions []map[string]string) []*apipb.StringPair {
	dim := make([]*apipb.StringPair, len(dimensions))
	for i, kv := range dimensions {
		dim[i] = &apipb.StringPair{
			Key:   kv["key"],
			Value: kv["value"],
		}
	}
	return dim
}

func executionTimeout(repeat int) int32 {
	if repeat >= longRunningRepeatThreshold {
		return longRunningExecutionTimeoutSecs
	}
	return ExecutionTimeoutSecs
}

func generateProperties(command []string, casRef *apipb.CASReference, dim []*apipb.StringPair, timeout int32) *apipb.TaskProperties {
	return &apipb.TaskProperties{
		CasInputRoot:         casRef,
		Command:              command,
		Dimensions:           dim,
		ExecutionTimeoutSecs: timeout,
		IoTimeoutSecs:        timeout,
		RelativeCwd:          "out/Release",
	}
}

func generateTags(jobID, benchmark string, casRef *apipb.CASReference) []string {
	tags := []string{
		fmt.Sprintf("membench_job_id:%s", jobID),
		fmt.Sprintf("benchmark:%s", benchmark),
	}
	if d := casRef.GetDigest(); d != nil {
		tags = append(tags, fmt.Sprintf("build_cas:%s/%d", d.GetHash(), d.GetSizeBytes()))
	}
	return tags
}

type swarmingRequestParams struct {
	jobID      string
	benchmark  string
	command    []string
	casRef     *apipb.CASReference
	dimensions []map[string]string
	repeat     int
}

func createSwarmingRequest(p swarmingRequestParams) *apipb.NewTaskRequest {
	return &apipb.NewTaskRequest{
		BotPingToleranceSecs: 1200,
		ExpirationSecs:       PendingTimeoutSecs,
		Name:                 fmt.Sprintf("membench %s", p.benchmark),
		Priority:             100,
		Realm:                "chrome:pinpoint",
		ServiceAccount:       "chrome-tester@chops-service-accounts.iam.gserviceaccount.com",
		User:                 "membench",
		Properties:           generateProperties(p.command, p.casRef, convertDimensions(p.dimensions), executionTimeout(p.repeat)),
		Tags:                 generateTags(p.jobID, p.benchmark, p.casRef),
	}
}
