package sqlinline

// QLedgerBalance touches the row on conflict so a single statement always
// returns it, even when another session created the account concurrently.
const QLedgerBalance = `--sql be7bcbf9-d367-4f15-a665-a9103350a9e1
insert into accounts (id)
values ($1::bigint)
on conflict (id) do update set id = excluded.id
returning balance;
`

// QLedgerDebit subtracts $2 only while balance >= $2. The row lock taken by
// the update re-checks the predicate against the latest committed balance.
const QLedgerDebit = `--sql 417cf4b4-8010-4cb0-a87c-947c4ececdae
with ensured as (
    insert into accounts (id)
    values ($1::bigint)
    on conflict (id) do nothing
),
debited as (
    update accounts
    set balance = balance - $2::bigint, updated_at = now()
    where id = $1::bigint and balance >= $2::bigint
    returning balance
)
select true as ok, balance from debited
union all
select false as ok, coalesce((select balance from accounts where id = $1::bigint), 0)
where not exists (select 1 from debited);
`

const QLedgerCredit = `--sql 06148170-3664-46f6-95c1-b118d63e78e9
insert into accounts (id, balance)
values ($1::bigint, $2::bigint)
on conflict (id) do update set
    balance = accounts.balance + excluded.balance,
    updated_at = now()
returning balance;
`

const QLedgerEnsureAccount = `--sql 6ef31fb9-b61c-48f8-a6ae-ee6d05e68d00
insert into accounts (id)
values ($1::bigint)
on conflict (id) do nothing;
`

const QLedgerLockBalance = `--sql 260dafa7-d935-47a1-a8f4-fcf529eb4a6f
select balance
from accounts
where id = $1::bigint
for update;
`

const QLedgerSetBalance = `--sql 660e348a-af56-4c7a-a7ad-98a393ab4dd3
update accounts
set balance = greatest($2::bigint, 0), updated_at = now()
where id = $1::bigint
returning balance;
`
