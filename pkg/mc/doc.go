/*
Package mc provides the HTTP client for the Mission Control API.

Mission Control is the remote coordination plane for DC1 sites: it
receives alerts and audit events, tracks GPUs and jobs, and executes
job relaunches during failover. Every component that talks to Mission
Control goes through this one client.

# Endpoints

	POST   /alerts                  deliver an alert          (PostAlert)
	POST   /security/audit          append an audit event     (PostAudit)
	GET    /gpus/{id}               GPU status                (GetGPU)
	GET    /gpus/{id}/metrics       GPU temperature           (GetGPUMetrics)
	GET    /jobs/{id}               job status                (GetJob)
	POST   /jobs                    create drill job          (CreateTestJob)
	POST   /jobs/{id}/relaunch      relaunch on another GPU   (RelaunchJob)
	POST   /jobs/{id}/notify        message the tenant        (NotifyJob)
	DELETE /jobs/{id}               remove a job              (DeleteJob)

All requests carry "Authorization: Bearer <token>". Any non-2xx status
is an error; callers decide whether that error is fatal (relaunch) or
shrug-and-continue (tenant notify).

# Timeouts

Each method wraps the caller's context with its own deadline, so a
caller without a deadline still cannot hang:

	GetGPU / GetJob / NotifyJob / DeleteJob / PostAudit   5s
	PostAlert                                             10s
	CreateTestJob                                         10s
	RelaunchJob                                           15s

Relaunch is the slow path: Mission Control pulls the container image
on the backup host before acknowledging.

# Usage

	client := mc.NewClient("http://mc.dc1.example:8084/api", "37c0fd6b", token)

	job, err := client.GetJob(ctx, "job-42")
	if err != nil {
		// job unknown or MC unreachable
	}

	err = client.RelaunchJob(ctx, "job-42", "pc1-rtx3060", ckptPath)

# Integration Points

  - pkg/alert routes MEDIUM and above through PostAlert
  - pkg/audit ships recovery and failover events through PostAudit
  - pkg/recovery polls GetJob during escalation and probes GetGPU during detection
  - pkg/failover drives GetGPU, RelaunchJob, GetJob, NotifyJob and the drill job lifecycle
  - pkg/checkpoint's scheduler snapshots job state via GetJob
*/
package mc
