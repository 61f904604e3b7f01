package sqlinline

const QJobInsert = `--sql 5b89c88c-ffd3-40cf-9411-38d69f79a15f
insert into generation_jobs (
    external_id, account_id, prompt, duration_seconds, aspect_ratio,
    cost, status, result_url, error_message, created_at, updated_at
)
values ($1::text, $2::bigint, $3::text, $4::int, $5::text, $6::bigint, $7::text, $8::text, $9::text, $10::timestamptz, $10::timestamptz);
`

const QJobGetByExternalID = `--sql b17bff97-e024-48f1-b604-6f0e39e7106b
select external_id, account_id, prompt, duration_seconds, aspect_ratio, cost,
       status, result_url, error_message, created_at, updated_at, polled_at
from generation_jobs
where external_id = $1::text;
`

// QJobUpdateStatus never moves a job out of a terminal status.
const QJobUpdateStatus = `--sql 20429bb6-3a70-4160-baf1-029f02e6800d
update generation_jobs
set status = $2::text,
    result_url = coalesce(nullif($3::text, ''), result_url),
    error_message = coalesce(nullif($4::text, ''), error_message),
    polled_at = $5::timestamptz,
    updated_at = now()
where external_id = $1::text
  and status not in ('SUCCEEDED', 'FAILED', 'ABORTED', 'CANCELED');
`

const QJobStatus = `--sql d634dbec-4926-471a-9217-da0352aeadc5
select status from generation_jobs where external_id = $1::text;
`

// QJobClaimStale leases non-terminal jobs by stamping polled_at so parallel
// sweepers skip them until the lease ages out.
const QJobClaimStale = `--sql 4dbbe7cb-612b-47aa-99fa-0b1102318112
with stale as (
    select external_id
    from generation_jobs
    where status not in ('SUCCEEDED', 'FAILED', 'ABORTED', 'CANCELED')
      and (polled_at is null or polled_at < $1::timestamptz)
    order by coalesce(polled_at, created_at) asc
    limit $2::int
    for update skip locked
),
leased as (
    update generation_jobs g
    set polled_at = now()
    from stale
    where g.external_id = stale.external_id
    returning g.external_id, g.account_id, g.prompt, g.duration_seconds, g.aspect_ratio, g.cost,
              g.status, g.result_url, g.error_message, g.created_at, g.updated_at, g.polled_at
)
select * from leased;
`
