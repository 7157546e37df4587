// Package stepcheck decides whether a workflow step may advance and what
// outcome it records.
//
// Evaluate is a pure function over a step definition and the evidence
// gathered for it. Requirements (photo, annotation, scan, pass/fail mark)
// gate advancement; inspection checkbox completeness gates the recorded
// pass/fail status on a separate axis: an incomplete checklist forces Fail
// but never blocks. All blocking reasons are reported together so the
// operator sees the complete list of what remains to do. Evaluation is
// re-entrant and idempotent.
package stepcheck
