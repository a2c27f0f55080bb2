/*
Package supervisor keeps the agent's long-running tasks alive.

Each task runs in its own goroutine with panic recovery. A panicking
task is restarted after a short backoff, up to three times; after that
it stays down and a CRITICAL alert pages the operator, because a task
that crashes four times will crash a fifth and flapping it forever
just hides the bug. A task that returns normally is finished and never
restarted.

One supervisor owns one shared context. Stop cancels it and waits,
bounded, for every task to exit; tasks are expected to watch their ctx
and return promptly.
*/
package supervisor
