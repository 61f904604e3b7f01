package sqlinline

const QVoucherLockByCode = `--sql f21161bb-5878-4149-b6bb-db2eaf9de412
select id, points, redeemed
from vouchers
where code = $1::text
for update;
`

const QVoucherMarkRedeemed = `--sql 7aeb61e9-708d-4a71-99a0-f010cc65cb10
update vouchers
set redeemed = true,
    redeemed_by = $2::bigint,
    redeemed_at = $3::timestamptz
where id = $1::bigint and redeemed = false;
`

const QVoucherGet = `--sql a16d4836-0196-4755-9f55-edeca55277ac
select id, code, points, redeemed, redeemed_by, redeemed_at, created_at
from vouchers
where code = $1::text;
`

const QVoucherInsertBatch = `--sql 72002af1-e50d-43eb-8f5b-efc1e02c68fc
insert into vouchers (code, points)
select code, points
from unnest($1::text[], $2::bigint[]) as batch(code, points)
on conflict (code) do nothing
returning code;
`
