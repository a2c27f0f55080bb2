/*
Package failover moves a job from a failed GPU to its designated backup
inside a hard time budget.

The whole sequence runs under one context deadline (default 60s); any
step that overruns it fails the attempt rather than stretching it.

	Failover(job, failed, backup)
	    1. verify backup usable   GET /gpus/<backup>, must be idle,
	                               host must answer SSH
	    2. load checkpoint         newest verified checkpoint; a job
	                               with none restarts from scratch
	    3. relaunch                POST /jobs/<id>/relaunch on backup
	    4. confirm                 poll GET /jobs/<id> (10 × 500ms)
	                               until gpu == backup and running
	    5. notify tenant           best effort, never fails the result

Every attempt is bracketed on the audit trail: failover_started, then
failover_complete or failover_failed with the elapsed milliseconds.
The notify step is the only one outside the success gate; a tenant who
missed the message still has a running job.

Drill runs the same sequence against a disposable Mission Control test
job, deletes the job afterwards, and reports the outcome as a MEDIUM
alert so monthly drills show up in the operator chat without paging.
*/
package failover
