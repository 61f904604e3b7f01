package sqlinline

// QSchema is idempotent and runs as one simple-protocol batch.
const QSchema = `--sql 068ffc53-ba40-4653-b5c2-6725f74bede8
create table if not exists accounts (
    id bigint primary key,
    balance bigint not null default 0 check (balance >= 0),
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);

create table if not exists vouchers (
    id bigserial primary key,
    code text not null unique,
    points bigint not null check (points > 0),
    redeemed boolean not null default false,
    redeemed_by bigint references accounts (id),
    redeemed_at timestamptz,
    created_at timestamptz not null default now(),
    check (redeemed = (redeemed_by is not null)),
    check (redeemed = (redeemed_at is not null))
);

create table if not exists generation_jobs (
    external_id text primary key,
    account_id bigint not null references accounts (id),
    prompt text not null,
    duration_seconds int not null,
    aspect_ratio text not null,
    cost bigint not null,
    status text not null,
    result_url text not null default '',
    error_message text not null default '',
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now(),
    polled_at timestamptz
);

create index if not exists generation_jobs_open_idx
    on generation_jobs (polled_at)
    where status not in ('SUCCEEDED', 'FAILED', 'ABORTED', 'CANCELED');

create table if not exists integration_tokens (
    id uuid primary key,
    provider text not null unique,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QPing = `--sql 687c9457-3916-4ff8-8064-4af25a7f73ad
select 1;
`
