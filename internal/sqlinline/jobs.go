package sqlinline

// QClaimJob atomically takes ownership of the oldest pending job. SKIP LOCKED
// keeps concurrent workers from ever claiming the same row.
const QClaimJob = `--sql 8c1f4e02-93da-4d61-b1a4-6f2b9c3e7a15
with next_job as (
    select id
    from generation_jobs
    where status = 'pending'
    order by created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update generation_jobs
    set status = 'processing', claimed_by = $1, claimed_at = now()
    where id in (select id from next_job)
    returning id, entity_id, entity_type, job_type, payload, created_at
)
select * from claimed;
`

const QSelectJob = `--sql 5e7d2a90-1b3c-4f8e-9a67-d40c815f62b3
select id, entity_id, entity_type, job_type, status, payload, result,
       error_message, claimed_by, claimed_at, created_at, completed_at
from generation_jobs
where id = $1;
`

// QReclaimStaleJobs returns processing jobs whose claim is older than the
// cutoff back to pending so another worker can pick them up after a crash.
const QReclaimStaleJobs = `--sql a93b6c11-7f24-4e0d-8b5a-3cd901e4f782
update generation_jobs
set status = 'pending', claimed_by = '', claimed_at = null
where status = 'processing' and claimed_at < $1;
`
