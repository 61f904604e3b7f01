package sqlinline

const QCredentialGet = `--sql 83936850-9fc7-4f32-bbfe-84a30bddcae9
select token
from integration_tokens
where provider = $1::text;
`

// QCredentialUpsert replaces the token for a provider, keeping one row per provider.
const QCredentialUpsert = `--sql 1b3f324b-0863-4608-a2d8-d7c6c9e1bb2e
insert into integration_tokens (id, provider, token, properties)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
