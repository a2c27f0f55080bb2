/*
Package billing implements the revenue split and billing proof
primitives for DC1 sites.

Amounts are halala (1/100 SAR) as integers end to end; nothing in this
package touches floating point, so splits never leak a halala to
rounding. The 75/25 provider/site split floors the provider share and
gives the remainder to the site.

Billing proofs are SHA-256 over "jobId|sessionId|amount|timestamp" and
verified with a constant-time compare. The status_report command uses
Split to echo the month-to-date split Mission Control reports.
*/
package billing
